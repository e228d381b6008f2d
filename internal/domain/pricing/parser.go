// Package pricing implementa el núcleo numérico del pipeline: conversión
// texto→decimal consciente del formato local (puntos de miles, sufijos K/M),
// reconciliación de cantidades y validación de plausibilidad por categoría.
//
// Todo el dinero se maneja con shopspring/decimal; nunca float64.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseError indica que un campo numérico individual no se pudo interpretar.
// El caller descarta solo ese campo, no el ítem completo.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("precio %q no interpretable: %s", e.Input, e.Reason)
}

var (
	milUnidades = decimal.NewFromInt(1_000)
	millon      = decimal.NewFromInt(1_000_000)
)

// ParsePrice convierte un texto de precio en decimal. Reglas, en orden:
//
//  1. Se eliminan símbolos de moneda ("$", "COP") y espacios.
//  2. Un sufijo final "K" (insensible a mayúsculas) multiplica por 1.000;
//     "M" multiplica por 1.000.000. ("179K" → 179000)
//  3. Un separador ('.' o ',') seguido de exactamente tres dígitos y sin más
//     separadores es separador de miles ("316.350" → 316350). Seguido de uno
//     o dos dígitos es decimal ("10.5" → 10.5).
//  4. Con más de un separador, el mismo repetido con grupos de tres dígitos es
//     agrupación de miles ("1.234.567" → 1234567). En cualquier otro caso
//     ambiguo el último separador es decimal y los anteriores miles, siempre
//     que el grupo final tenga uno o dos dígitos ("1.234,56" → 1234.56,
//     "1.234.56" → 1234.56).
//
// El resultado se redondea a 2 decimales, de modo que volver a interpretar la
// salida canónica reproduce el mismo valor (el COP no usa fracciones menores).
// Determinista e idempotente.
func ParsePrice(text string) (decimal.Decimal, error) {
	s := stripCurrency(text)
	if s == "" {
		return decimal.Zero, &ParseError{Input: text, Reason: "cadena vacía"}
	}

	mult := decimal.NewFromInt(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = milUnidades
		s = strings.TrimSpace(s[:len(s)-1])
	case 'm', 'M':
		mult = millon
		s = strings.TrimSpace(s[:len(s)-1])
	}
	if s == "" {
		return decimal.Zero, &ParseError{Input: text, Reason: "sufijo sin número"}
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Zero, &ParseError{Input: text, Reason: "residuo no numérico"}
		}
	}

	canon, reason := normalizeSeparators(s)
	if reason != "" {
		return decimal.Zero, &ParseError{Input: text, Reason: reason}
	}

	d, err := decimal.NewFromString(canon)
	if err != nil {
		return decimal.Zero, &ParseError{Input: text, Reason: "número inválido"}
	}
	return d.Mul(mult).Round(2), nil
}

// stripCurrency quita símbolos de moneda y todo espacio (incluido NBSP).
func stripCurrency(text string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '$', ' ', '\t', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	// "COP 12.500" o "12.500 COP"
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "COP") {
		s = s[3:]
	} else if strings.HasSuffix(upper, "COP") {
		s = s[:len(s)-3]
	}
	return s
}

// normalizeSeparators devuelve la cadena con '.' como único separador decimal
// y sin separadores de miles, o un motivo de rechazo.
func normalizeSeparators(s string) (canon string, reason string) {
	var seps []int
	hasDot, hasComma := false, false
	for i, r := range s {
		if r == '.' || r == ',' {
			seps = append(seps, i)
			if r == '.' {
				hasDot = true
			} else {
				hasComma = true
			}
		}
	}

	switch {
	case len(seps) == 0:
		return s, ""

	case hasDot && hasComma:
		// Ambiguo: el último separador es decimal, los anteriores miles.
		last := seps[len(seps)-1]
		if last == len(s)-1 {
			return "", "separador al final"
		}
		var b strings.Builder
		for i, r := range s {
			if r == '.' || r == ',' {
				if i == last {
					b.WriteByte('.')
				}
				continue
			}
			b.WriteRune(r)
		}
		return b.String(), ""

	case len(seps) == 1:
		idx := seps[0]
		after := len(s) - idx - 1
		switch {
		case after == 0:
			return "", "separador al final"
		case after == 3:
			// miles: se elimina
			return s[:idx] + s[idx+1:], ""
		default:
			// decimal (1-2 dígitos; más de 3 también se trata como decimal)
			return s[:idx] + "." + s[idx+1:], ""
		}

	default:
		// Mismo separador repetido: con grupos de exactamente tres dígitos es
		// agrupación de miles. Con grupo final de uno o dos dígitos, el último
		// separador se resuelve como decimal y los anteriores como miles
		// ("1.234.56" → 1234.56), igual que en el caso mixto.
		last := seps[len(seps)-1]
		lastGroup := len(s) - last - 1
		if lastGroup == 0 {
			return "", "separador al final"
		}

		grouped := lastGroup == 3
		prev := seps[0]
		for _, idx := range seps[1:] {
			if idx-prev-1 != 3 {
				grouped = false
				break
			}
			prev = idx
		}
		if grouped {
			return strings.Map(func(r rune) rune {
				if r == '.' || r == ',' {
					return -1
				}
				return r
			}, s), ""
		}

		if lastGroup > 2 {
			return "", "separadores inconsistentes"
		}
		var b strings.Builder
		for i, r := range s {
			if r == '.' || r == ',' {
				if i == last {
					b.WriteByte('.')
				}
				continue
			}
			b.WriteRune(r)
		}
		return b.String(), ""
	}
}
