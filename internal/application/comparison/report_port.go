package comparison

import "context"

// ReportGenerator puerto de salida para la representación en PDF del informe
// de ahorros de una factura comparada.
type ReportGenerator interface {
	GenerateSavingsReport(ctx context.Context, report *CompareReport) ([]byte, error)
}
