package entity

// ValidationStatus resultado de la verificación de plausibilidad de un ítem.
type ValidationStatus string

const (
	ValidationOK             ValidationStatus = "ok"
	ValidationSuspiciousLow  ValidationStatus = "suspicious_low"
	ValidationSuspiciousHigh ValidationStatus = "suspicious_high"
	ValidationUnitMismatch   ValidationStatus = "unit_mismatch"
)

// ValidationResult es consultivo: se adjunta al ítem para revisión posterior
// pero nunca bloquea ni descarta la ingesta.
type ValidationResult struct {
	Status ValidationStatus
	Detail string
}
