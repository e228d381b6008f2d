package entity

// StandardizedProduct es la forma canónica de un producto, usada como
// sustrato de emparejamiento entre proveedores. Para un mismo par
// (raw_name, raw_unit) el estandarizador siempre produce el mismo valor.
type StandardizedProduct struct {
	CanonicalName    string
	CanonicalUnit    string
	Category         string
	DetectedLanguage string // "es", "en" o "" si no hubo coincidencias léxicas
	Confidence       float64
}

// Key devuelve la llave canónica (nombre|unidad) que identifica el mismo
// producto entre proveedores y documentos.
func (p StandardizedProduct) Key() string {
	return p.CanonicalName + "|" + p.CanonicalUnit
}
