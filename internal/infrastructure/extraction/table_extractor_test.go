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

func docCSV(name, body string) *entity.Document {
	return &entity.Document{Filename: name, MIME: "text/csv", Content: []byte(body)}
}

func TestTableExtractor_CSVConEncabezadosEnEspanol(t *testing.T) {
	body := "Lista de precios - Agosto\n" +
		"PRODUCTO;PRECIO UNITARIO ($);CANT;UNIDAD;CATEGORIA\n" +
		"Tomate chonto;8.500;3;kg;verduras\n" +
		"Queso campesino;22.000;;libra;lacteos\n" +
		"Arroz bulto;316.350;1;bulto;granos\n"

	e := NewTableExtractor(logger.Nop())
	res, err := e.Extract(context.Background(), docCSV("lista.csv", body))

	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.RowsDetected)
	assert.Equal(t, 3, res.RowsExtracted)
	assert.InDelta(t, 1.0, res.Completeness, 1e-9)

	it := res.Items[0]
	assert.Equal(t, "Tomate chonto", it.RawName)
	assert.True(t, it.UnitPrice.Equal(decimal.NewFromInt(8_500)), "8.500 es separador de miles")
	assert.True(t, it.Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "kg", it.Unit)
	assert.Equal(t, "verduras", it.CategoryHint)

	assert.True(t, res.Items[2].UnitPrice.Equal(decimal.NewFromInt(316_350)))
}

// TestTableExtractor_FilaIlegibleBajaLaCompletitud: las filas con precio que
// no parsea cuentan como candidatas perdidas, no desaparecen del denominador.
func TestTableExtractor_FilaIlegibleBajaLaCompletitud(t *testing.T) {
	body := "producto,precio\n" +
		"Tomate,8500\n" +
		"Cebolla,consultar\n" +
		"Papa,5500\n" +
		"Yuca,ver nota\n"

	res, err := NewTableExtractor(logger.Nop()).Extract(context.Background(), docCSV("lista.csv", body))

	require.NoError(t, err)
	assert.Equal(t, 4, res.RowsDetected)
	assert.Equal(t, 2, res.RowsExtracted)
	assert.InDelta(t, 0.5, res.Completeness, 1e-9)
}

func TestTableExtractor_DetectaDelimitadorPuntoYComa(t *testing.T) {
	// coma decimal adentro del campo; el separador real es ';'
	body := "nombre;valor\nLeche entera;3,5\n"

	res, err := NewTableExtractor(logger.Nop()).Extract(context.Background(), docCSV("lista.csv", body))

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].UnitPrice.Equal(decimal.NewFromFloat(3.5)))
}

func TestTableExtractor_SinEncabezadoUsaColumnasPosicionales(t *testing.T) {
	body := "Tomate chonto,8500,kg\nPapa criolla,5500,kg\n"

	res, err := NewTableExtractor(logger.Nop()).Extract(context.Background(), docCSV("lista.csv", body))

	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Tomate chonto", res.Items[0].RawName)
	assert.True(t, res.Items[0].UnitPrice.Equal(decimal.NewFromInt(8_500)))
}

func TestTableExtractor_TotalNoCapturaLaColumnaDeUnitario(t *testing.T) {
	body := "producto,precio total,precio,cantidad\n" +
		"Tomate,25500,8500,3\n"

	res, err := NewTableExtractor(logger.Nop()).Extract(context.Background(), docCSV("lista.csv", body))

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].UnitPrice.Equal(decimal.NewFromInt(8_500)))
	assert.True(t, res.Items[0].TotalPrice.Equal(decimal.NewFromInt(25_500)))
}

func TestTableExtractor_CanHandle(t *testing.T) {
	e := NewTableExtractor(logger.Nop())

	assert.True(t, e.CanHandle(&entity.Document{Filename: "lista.xlsx"}))
	assert.True(t, e.CanHandle(&entity.Document{MIME: "text/csv"}))
	assert.True(t, e.CanHandle(&entity.Document{Filename: "precios.TSV"}))
	assert.False(t, e.CanHandle(&entity.Document{Filename: "foto.jpg", MIME: "image/jpeg"}))
}
