package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord es un precio vigente o histórico de un producto canónico para
// un proveedor. El catálogo es append-only: al llegar un precio nuevo, el
// registro activo anterior recibe ValidTo en lugar de borrarse. Hay a lo sumo
// un registro activo (ValidTo nulo) por (proveedor, llave canónica).
type PriceRecord struct {
	ID          string
	SupplierID  string
	ProductKey  string
	ProductName string // nombre canónico, redundante para listados
	Amount      decimal.Decimal
	Unit        string
	ValidFrom   time.Time
	ValidTo     *time.Time
}

// Active indica si el registro es el precio vigente.
func (r PriceRecord) Active() bool { return r.ValidTo == nil }
