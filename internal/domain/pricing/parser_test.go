package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/precios-api/internal/domain/pricing"
)

// ──────────────────────────────────────────────────────────────────────────────
// ParsePrice es la base numérica de todo el pipeline: si interpreta mal un
// separador, cada agregado aguas abajo queda corrupto. Los vectores de abajo
// cubren los formatos reales observados en listas de proveedores colombianos.
// ──────────────────────────────────────────────────────────────────────────────

func TestParsePrice_FormatosValidos(t *testing.T) {
	cases := []struct {
		nombre string
		input  string
		want   string
	}{
		{"entero simple", "316350", "316350"},
		{"punto de miles", "316.350", "316350"},
		{"varios puntos de miles", "1.234.567", "1234567"},
		{"coma de miles", "316,350", "316350"},
		{"decimal de dos dígitos", "10.5", "10.5"},
		{"decimal con coma", "10,5", "10.5"},
		{"decimal de dos cifras", "12.99", "12.99"},
		{"mixto punto-coma", "1.234,56", "1234.56"},
		{"mixto coma-punto", "1,234.56", "1234.56"},
		{"punto repetido, final decimal", "1.234.56", "1234.56"},
		{"coma repetida, final decimal", "1,234,56", "1234.56"},
		{"grupos irregulares, final decimal", "1.23.4", "123.4"},
		{"sufijo K", "179K", "179000"},
		{"sufijo K minúscula", "179k", "179000"},
		{"sufijo K con decimal", "2.5K", "2500"},
		{"sufijo M", "1.2M", "1200000"},
		{"símbolo de pesos", "$ 12.500", "12500"},
		{"prefijo COP", "COP 45.000", "45000"},
		{"sufijo COP", "45.000 COP", "45000"},
		{"espacios internos", " 7 500 ", "7500"},
	}

	for _, tc := range cases {
		t.Run(tc.nombre, func(t *testing.T) {
			got, err := pricing.ParsePrice(tc.input)
			require.NoError(t, err, "el vector %q debe ser interpretable", tc.input)
			want, _ := decimal.NewFromString(tc.want)
			assert.True(t, want.Equal(got),
				"ParsePrice(%q) = %s, se esperaba %s", tc.input, got, want)
		})
	}
}

// TestParsePrice_Idempotente verifica que interpretar la salida canónica como
// texto reproduce exactamente el mismo valor (sin deriva en re-procesos).
func TestParsePrice_Idempotente(t *testing.T) {
	inputs := []string{"316.350", "179K", "10.5", "1.234,56", "$ 99.900", "2.5K"}
	for _, in := range inputs {
		first, err := pricing.ParsePrice(in)
		require.NoError(t, err)

		second, err := pricing.ParsePrice(first.String())
		require.NoError(t, err, "la salida canónica %q debe ser interpretable", first.String())
		assert.True(t, first.Equal(second),
			"re-interpretar %q produjo %s en vez de %s", first.String(), second, first)
	}
}

func TestParsePrice_Determinista(t *testing.T) {
	a, err1 := pricing.ParsePrice("1.234,56")
	b, err2 := pricing.ParsePrice("1.234,56")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, a.Equal(b), "el mismo input siempre debe producir el mismo decimal")
}

func TestParsePrice_Invalidos(t *testing.T) {
	cases := []struct {
		nombre string
		input  string
	}{
		{"cadena vacía", ""},
		{"solo espacios", "   "},
		{"texto", "precio a convenir"},
		{"residuo alfabético", "12a00"},
		{"separador al final", "1.234."},
		{"grupos de miles rotos con final largo", "1.2345.678"},
		{"solo sufijo", "K"},
	}

	for _, tc := range cases {
		t.Run(tc.nombre, func(t *testing.T) {
			_, err := pricing.ParsePrice(tc.input)
			require.Error(t, err, "el input %q debe rechazarse", tc.input)

			var perr *pricing.ParseError
			assert.True(t, errors.As(err, &perr),
				"el error debe ser *pricing.ParseError con motivo, no %T", err)
			if perr != nil {
				assert.NotEmpty(t, perr.Reason, "el ParseError debe llevar motivo")
			}
		})
	}
}
