package domain

type Pick struct {
	Item   MenuItem `json:"item"`
	Reason string   `json:"reason,omitempty"`
}

type Recommendation struct {
	Language string `json:"language"`
	Summary  string `json:"summary"`
	Picks    []Pick `json:"picks"`
}
