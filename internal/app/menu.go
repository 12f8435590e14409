package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tavola/internal/adapters/observability"
	"tavola/internal/domain"
)

// MenuService runs fetch -> parse -> map on every call. The menu is never cached.
type MenuService struct {
	src domain.SheetSource
	now func() time.Time
}

func NewMenuService(src domain.SheetSource) *MenuService {
	return &MenuService{src: src, now: time.Now}
}

// Load returns the visible menu items. The only errors are fetch failure,
// empty payload, header mismatch and missing configuration.
func (s *MenuService) Load(ctx context.Context) ([]domain.MenuItem, domain.MapStats, error) {
	if s.src == nil {
		return nil, domain.MapStats{}, domain.ErrNotConfigured
	}
	raw, err := s.src.FetchCSV(ctx)
	if err != nil {
		return nil, domain.MapStats{}, err
	}
	rows, skipped, err := ParseSheet(raw)
	if err != nil {
		return nil, domain.MapStats{Skipped: skipped}, err
	}
	items, st := MapRows(rows, s.now())
	st.Skipped = skipped

	observability.ObserveMenuRows("emitted", st.Emitted)
	observability.ObserveMenuRows("hidden", st.Hidden)
	observability.ObserveMenuRows("invalid", st.Invalid)
	observability.ObserveMenuRows("skipped", st.Skipped)
	log.Debug().Int("rows", st.Rows).Int("emitted", st.Emitted).Int("hidden", st.Hidden).
		Int("invalid", st.Invalid).Int("skipped", st.Skipped).Msg("menu loaded")
	return items, st, nil
}
