package app

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tavola/internal/domain"
)

const (
	PlaceholderImageURL = "https://placehold.co/600x400.png"
	genericHint         = "delicious food"
	fallbackHint        = "food"
)

/********** lookup tables **********/

var categoryKeys = map[string]string{
	"starters":     domain.CategoryStarters,
	"main courses": domain.CategoryMainCourses,
	"desserts":     domain.CategoryDesserts,
	"beverages":    domain.CategoryDrinks,
	"drinks":       domain.CategoryDrinks,
}

var truthy = map[string]struct{}{
	"true": {}, "1": {}, "sí": {}, "si": {}, "verdadero": {},
}

/********** row mapping **********/

// MapRows validates and maps parsed sheet rows. Bad rows are dropped and
// counted, never fatal. now seeds the per-response item IDs.
func MapRows(rows []domain.SheetRow, now time.Time) ([]domain.MenuItem, domain.MapStats) {
	st := domain.MapStats{Rows: len(rows)}
	out := make([]domain.MenuItem, 0, len(rows))
	for _, r := range rows {
		if !visible(r.Get(ColVisible)) {
			st.Hidden++
			continue
		}
		it, reason := mapRow(r, now)
		if reason != "" {
			log.Warn().Int("row", r.Index).Int("line", r.Line).Str("reason", reason).Msg("menu row dropped")
			st.Invalid++
			continue
		}
		out = append(out, it)
	}
	st.Emitted = len(out)
	return out, st
}

// mapRow returns a non-empty reason when the row lacks required data.
func mapRow(r domain.SheetRow, now time.Time) (domain.MenuItem, string) {
	nameES := strings.TrimSpace(r.Get(ColNameES))
	nameEN := strings.TrimSpace(r.Get(ColNameEN))
	catEN := strings.TrimSpace(r.Get(ColCategoryEN))
	switch {
	case nameES == "":
		return domain.MenuItem{}, "missing " + ColNameES
	case nameEN == "":
		return domain.MenuItem{}, "missing " + ColNameEN
	case catEN == "":
		return domain.MenuItem{}, "missing " + ColCategoryEN
	}

	cat := categoryKey(catEN)
	return domain.MenuItem{
		ID: fmt.Sprintf("%s-%d-%d", cat, r.Index, now.UnixNano()),
		Name: domain.LocalizedText{
			En: nameEN,
			Es: nameES,
			Fr: strings.TrimSpace(r.Get(ColNameFR)),
		},
		Description: domain.LocalizedText{
			En: strings.TrimSpace(r.Get(ColDescriptionEN)),
			Es: strings.TrimSpace(r.Get(ColDescriptionES)),
			Fr: strings.TrimSpace(r.Get(ColDescriptionFR)),
		},
		Category:       cat,
		Price:          formatPrice(r.Get(ColPrice)),
		ImageURL:       imageURL(r.Get(ColImageURL)),
		ImageHint:      imageHint(nameEN, catEN),
		Allergens:      allergens(r.Get(ColAllergens)),
		ChefSuggestion: isTruthy(r.Get(ColChefSuggestion)),
	}, ""
}

/********** tiny helpers **********/

// visible defaults to true; only FALSE or 0 hide a row.
func visible(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "false" && s != "0"
}

func categoryKey(s string) string {
	low := strings.ToLower(strings.TrimSpace(s))
	if k, ok := categoryKeys[low]; ok {
		return k
	}
	if slug := strings.Join(strings.Fields(low), ""); slug != "" {
		return slug
	}
	return domain.CategoryOther
}

func imageURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "FALSE") {
		return PlaceholderImageURL
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return PlaceholderImageURL
	}
	return s
}

func imageHint(nameEN, catEN string) string {
	words := strings.Fields(strings.ToLower(nameEN))
	if len(words) > 2 {
		words = words[:2]
	}
	if hint := strings.Join(words, " "); hint != "" && hint != genericHint {
		return hint
	}
	if c := strings.ToLower(strings.TrimSpace(catEN)); c != "" {
		return c
	}
	return fallbackHint
}

// formatPrice accepts "12.5", "12,50" or "€ 12,50". Anything else leaves the price unset.
func formatPrice(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "FALSE") || strings.EqualFold(s, "N/A") {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, "€"))
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	p := fmt.Sprintf("€%.2f", f)
	return &p
}

func allergens(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func isTruthy(s string) bool {
	_, ok := truthy[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
