package app

import (
	"encoding/csv"
	"strings"

	"github.com/rs/zerolog/log"

	"tavola/internal/domain"
)

// Sheet column headers, exact text as published.
const (
	ColVisible        = "Visible"
	ColCategoryES     = "Categoría (ES)"
	ColCategoryEN     = "Category (EN)"
	ColNameES         = "Nombre (ES)"
	ColNameEN         = "Name (EN)"
	ColDescriptionES  = "Descripción (ES)"
	ColDescriptionEN  = "Description (EN)"
	ColPrice          = "Precio (€)"
	ColImageURL       = "Imagen URL"
	ColChefSuggestion = "Sugerencia del Chef"
	ColAllergens      = "Alérgenos"

	// optional third locale
	ColNameFR        = "Name (FR)"
	ColDescriptionFR = "Description (FR)"
)

// RequiredHeaders must all be present in the header row, in any order.
var RequiredHeaders = []string{
	ColVisible, ColCategoryES, ColCategoryEN, ColNameES, ColNameEN,
	ColDescriptionES, ColDescriptionEN, ColPrice, ColImageURL,
	ColChefSuggestion, ColAllergens,
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParseSheet turns the raw CSV payload into header->cell rows, in source order.
// A missing required header aborts with *domain.HeaderMismatchError. Lines whose
// field count differs from the header are dropped and counted in skipped.
func ParseSheet(raw string) (rows []domain.SheetRow, skipped int, err error) {
	type line struct {
		no   int
		text string
	}
	var lines []line
	for i, l := range strings.Split(newlines.Replace(raw), "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, line{no: i + 1, text: l})
	}
	if len(lines) == 0 {
		return nil, 0, domain.ErrEmptyPayload
	}

	headers, err := splitLine(strings.TrimPrefix(lines[0].text, "\ufeff"))
	if err != nil {
		return nil, 0, &domain.HeaderMismatchError{Missing: RequiredHeaders}
	}
	if missing := missingHeaders(headers); len(missing) > 0 {
		return nil, 0, &domain.HeaderMismatchError{Missing: missing}
	}

	rows = make([]domain.SheetRow, 0, len(lines)-1)
	for _, l := range lines[1:] {
		fields, err := splitLine(l.text)
		if err != nil {
			log.Warn().Err(err).Int("line", l.no).Msg("menu line skipped: unreadable")
			skipped++
			continue
		}
		if len(fields) != len(headers) {
			log.Warn().Int("line", l.no).Int("fields", len(fields)).Int("headers", len(headers)).
				Msg("menu line skipped: field count mismatch")
			skipped++
			continue
		}
		m := make(map[string]string, len(headers))
		for i, h := range headers {
			m[h] = fields[i]
		}
		rows = append(rows, domain.SheetRow{Index: len(rows), Line: l.no, Fields: m})
	}
	return rows, skipped, nil
}

// splitLine splits one physical line on commas outside double quotes,
// then trims and unquotes each field.
func splitLine(s string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(s))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i, f := range rec {
		rec[i] = unquote(f)
	}
	return rec, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func missingHeaders(headers []string) []string {
	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, h := range RequiredHeaders {
		if _, ok := have[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}
