package domain

// Category keys the front end knows how to group.
const (
	CategoryStarters    = "starters"
	CategoryMainCourses = "mainCourses"
	CategoryDesserts    = "desserts"
	CategoryDrinks      = "drinks"
	CategoryOther       = "other"
)

type LocalizedText struct {
	En string `json:"en"`
	Es string `json:"es"`
	Fr string `json:"fr,omitempty"` // optional third locale
}

// MenuItem is one visible dish as served to the site.
// ID is unique within a single response only; it changes on every fetch.
type MenuItem struct {
	ID             string        `json:"id"`
	Name           LocalizedText `json:"name"`
	Description    LocalizedText `json:"description"`
	Category       string        `json:"category"`
	Price          *string       `json:"price,omitempty"`
	ImageURL       string        `json:"imageUrl"`
	ImageHint      string        `json:"imageHint"`
	Allergens      []string      `json:"allergens,omitempty"`
	ChefSuggestion bool          `json:"chefSuggestion"`
}

// SheetRow maps exact header text to cell text for one data line.
type SheetRow struct {
	Index  int
	Line   int // 1-based line in the payload, for logs
	Fields map[string]string
}

func (r SheetRow) Get(header string) string { return r.Fields[header] }

// MapStats counts what happened to the parsed rows of one ingestion run.
type MapStats struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"` // malformed lines dropped by the parser
	Hidden  int `json:"hidden"`
	Invalid int `json:"invalid"`
	Emitted int `json:"emitted"`
}
