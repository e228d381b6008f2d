package entity

import "github.com/shopspring/decimal"

// RawLineItem es una fila de producto tal como la produjo una estrategia de
// extracción: sin reconciliar y con los campos numéricos que la fuente traía.
// Los campos ausentes quedan en cero; la cantidad se asume 1 más adelante.
type RawLineItem struct {
	RawName      string
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	TotalPrice   decimal.Decimal
	Unit         string
	SourcePage   int    // página o fila de origen, para auditoría
	CategoryHint string // pista de categoría que la fuente declaró (opcional)
}

// ReconciledLineItem es el registro derivado con unit_price, quantity y
// total_price completos y coherentes entre sí. No muta el RawLineItem de
// origen: lo conserva como procedencia.
type ReconciledLineItem struct {
	Raw        RawLineItem
	UnitPrice  decimal.Decimal
	Quantity   decimal.Decimal
	TotalPrice decimal.Decimal
	// Consistent es false cuando el total explícito difiere de
	// unit_price×quantity más allá de la tolerancia. Ambos valores se
	// conservan para revisión manual; nunca se "corrigen" en silencio.
	Consistent bool
}
