package app_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavola/internal/app"
	"tavola/internal/domain"
)

func TestParseSheet_RowsInSourceOrder(t *testing.T) {
	rows, skipped, err := app.ParseSheet(sampleSheet)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped, "short line is skipped")
	require.Len(t, rows, 6)
	for i, r := range rows {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, "Sopa de tomate, casera", rows[0].Get("Descripción (ES)"))
	assert.Equal(t, "12,50", rows[0].Get("Precio (€)"))
	assert.Equal(t, "Grilled Octopus Plate", rows[5].Get("Name (EN)"))
}

func TestParseSheet_HeaderMismatch(t *testing.T) {
	raw := "Visible,Category (EN),Name (EN),Extra\nTRUE,Starters,Soup,x\n"
	rows, _, err := app.ParseSheet(raw)

	assert.Empty(t, rows)
	require.True(t, errors.Is(err, domain.ErrHeaderMismatch))
	var hm *domain.HeaderMismatchError
	require.True(t, errors.As(err, &hm))
	assert.Contains(t, hm.Missing, "Nombre (ES)")
	assert.Contains(t, hm.Missing, "Alérgenos")
	assert.NotContains(t, hm.Missing, "Visible")
}

func TestParseSheet_ExtraHeadersAndQuotes(t *testing.T) {
	raw := `"Visible", "Categoría (ES)",Category (EN),Nombre (ES),Name (EN),Descripción (ES),Description (EN),Precio (€),Imagen URL,Sugerencia del Chef,Alérgenos,Notes` + "\r" +
		`TRUE,Entrantes,Starters,Pan,Bread,"Pan ""de la casa""",House bread,3,,,,internal`

	rows, skipped, err := app.ParseSheet(raw)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, `Pan "de la casa"`, rows[0].Get("Descripción (ES)"))
	assert.Equal(t, "internal", rows[0].Get("Notes"))
}

func TestParseSheet_BlankPayload(t *testing.T) {
	_, _, err := app.ParseSheet("\n\r\n  \n")
	assert.ErrorIs(t, err, domain.ErrEmptyPayload)
}
