package extraction

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/pkg/logger"
)

func docTexto(body string) *entity.Document {
	return &entity.Document{Filename: "lista.txt", MIME: "text/plain", Content: []byte(body)}
}

func TestTextExtractor_ListaSemiestructurada(t *testing.T) {
	body := `LISTA DE PRECIOS - DISTRIBUIDORA EL CAMPO

Tomate chonto 8.500/kg
Queso campesino $179K
Arroz bulto x50: 316.350
Leche entera 3,5 /litro

Pedidos al 300 000 0000
`
	res, err := NewTextExtractor(logger.Nop()).Extract(context.Background(), docTexto(body))

	require.NoError(t, err)
	require.Len(t, res.Items, 4)

	assert.Equal(t, "Tomate chonto", res.Items[0].RawName)
	assert.True(t, res.Items[0].UnitPrice.Equal(decimal.NewFromInt(8_500)))
	assert.Equal(t, "kg", res.Items[0].Unit)

	assert.Equal(t, "Queso campesino", res.Items[1].RawName)
	assert.True(t, res.Items[1].UnitPrice.Equal(decimal.NewFromInt(179_000)), "sufijo K = miles")

	assert.Equal(t, "Arroz bulto x50", res.Items[2].RawName)
	assert.True(t, res.Items[2].UnitPrice.Equal(decimal.NewFromInt(316_350)))

	assert.Equal(t, "Leche entera", res.Items[3].RawName)
	assert.True(t, res.Items[3].UnitPrice.Equal(decimal.NewFromFloat(3.5)))
	assert.Equal(t, "litro", res.Items[3].Unit)
}

// TestTextExtractor_LineasConDigitosQueNoParsean: cuentan en el denominador
// de completitud; el teléfono del encabezado es el caso típico.
func TestTextExtractor_LineasConDigitosQueNoParsean(t *testing.T) {
	body := "Tomate 8500\nPedidos al 300 000 0000\nwhatsapp 3001234567\n"

	res, err := NewTextExtractor(logger.Nop()).Extract(context.Background(), docTexto(body))

	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsDetected)
	assert.GreaterOrEqual(t, res.RowsExtracted, 1)
	assert.Less(t, res.Completeness, 1.0)
}

func TestTextExtractor_PaginaDeOrigenEnCadaItem(t *testing.T) {
	res, err := NewTextExtractor(logger.Nop()).Extract(context.Background(), docTexto("Tomate 8500\n"))

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Items[0].SourcePage)
}

func TestTextExtractor_CanHandle(t *testing.T) {
	e := NewTextExtractor(logger.Nop())

	assert.True(t, e.CanHandle(&entity.Document{MIME: "application/pdf"}))
	assert.True(t, e.CanHandle(&entity.Document{Filename: "lista.TXT", Content: []byte("hola")}))
	assert.True(t, e.CanHandle(&entity.Document{Filename: "raro.bin", Content: []byte("texto plano igual sirve")}),
		"contenido textual sin extensión conocida aplica como respaldo")
	assert.False(t, e.CanHandle(&entity.Document{Filename: "foto.jpg", Content: []byte{0x00, 0x01, 0x02, 0xff, 0xd8}}))
}
