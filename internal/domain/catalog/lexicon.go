// Package catalog canonicaliza nombres crudos de productos en una llave
// estable de emparejamiento entre proveedores: normalización, detección de
// idioma, corrección de errores de digitación acotada por distancia de
// edición y mapeo a categoría.
package catalog

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// lexEntry es un término de abarrotes del léxico bilingüe. El lado español es
// la forma canónica: un hit por el lado inglés converge al término español,
// de modo que "tomato" y "tomate" producen la misma llave.
type lexEntry struct {
	ES       string
	EN       string // vacío para términos solo locales (chonto, lulo, ...)
	Category string // vacío para términos descriptivos sin categoría propia
}

// groceryLexicon léxico de abarrotes español/inglés. Las categorías coinciden
// con la tabla de rangos de plausibilidad de pricing.
var groceryLexicon = []lexEntry{
	// verduras
	{"tomate", "tomato", "verduras"},
	{"cebolla", "onion", "verduras"},
	{"papa", "potato", "verduras"},
	{"zanahoria", "carrot", "verduras"},
	{"lechuga", "lettuce", "verduras"},
	{"espinaca", "spinach", "verduras"},
	{"brocoli", "broccoli", "verduras"},
	{"pepino", "cucumber", "verduras"},
	{"pimenton", "pepper", "verduras"},
	{"ajo", "garlic", "verduras"},
	{"apio", "celery", "verduras"},
	{"repollo", "cabbage", "verduras"},
	{"cilantro", "coriander", "verduras"},
	{"ahuyama", "pumpkin", "verduras"},
	{"platano", "plantain", "verduras"},
	{"yuca", "cassava", "verduras"},
	{"chonto", "", "verduras"},
	// frutas
	{"manzana", "apple", "frutas"},
	{"banano", "banana", "frutas"},
	{"naranja", "orange", "frutas"},
	{"limon", "lemon", "frutas"},
	{"mango", "", "frutas"},
	{"papaya", "", "frutas"},
	{"pina", "pineapple", "frutas"},
	{"fresa", "strawberry", "frutas"},
	{"mora", "blackberry", "frutas"},
	{"lulo", "", "frutas"},
	{"maracuya", "passionfruit", "frutas"},
	{"sandia", "watermelon", "frutas"},
	{"uva", "grape", "frutas"},
	{"guayaba", "guava", "frutas"},
	{"coco", "coconut", "frutas"},
	{"aguacate", "avocado", "frutas"},
	// lácteos y quesos
	{"leche", "milk", "lacteos"},
	{"yogur", "yogurt", "lacteos"},
	{"mantequilla", "butter", "lacteos"},
	{"crema", "cream", "lacteos"},
	{"kumis", "", "lacteos"},
	{"arequipe", "", "lacteos"},
	{"queso", "cheese", "quesos"},
	{"cuajada", "curd", "quesos"},
	{"mozarela", "mozzarella", "quesos"},
	{"parmesano", "parmesan", "quesos"},
	// carnes
	{"pollo", "chicken", "carnes"},
	{"res", "beef", "carnes"},
	{"cerdo", "pork", "carnes"},
	{"pescado", "fish", "carnes"},
	{"carne", "meat", "carnes"},
	{"costilla", "ribs", "carnes"},
	{"chorizo", "sausage", "carnes"},
	{"tilapia", "", "carnes"},
	{"atun", "tuna", "carnes"},
	{"jamon", "ham", "carnes"},
	{"pechuga", "breast", "carnes"},
	{"tocino", "bacon", "carnes"},
	// granos
	{"arroz", "rice", "granos"},
	{"frijol", "beans", "granos"},
	{"lenteja", "lentils", "granos"},
	{"garbanzo", "chickpeas", "granos"},
	{"arveja", "peas", "granos"},
	{"quinua", "quinoa", "granos"},
	{"avena", "oats", "granos"},
	{"maiz", "corn", "granos"},
	// bebidas
	{"cafe", "coffee", "bebidas"},
	{"jugo", "juice", "bebidas"},
	{"gaseosa", "soda", "bebidas"},
	{"agua", "water", "bebidas"},
	{"cerveza", "beer", "bebidas"},
	{"te", "tea", "bebidas"},
	{"chocolate", "", "bebidas"},
	{"panela", "", "bebidas"},
	// panadería
	{"pan", "bread", "panaderia"},
	{"arepa", "", "panaderia"},
	{"galleta", "cookie", "panaderia"},
	{"torta", "cake", "panaderia"},
	{"harina", "flour", "panaderia"},
	{"bunuelo", "", "panaderia"},
	{"almojabana", "", "panaderia"},
	// huevos
	{"huevo", "egg", "huevos"},
	{"codorniz", "quail", "huevos"},
	// aseo
	{"jabon", "soap", "aseo"},
	{"detergente", "detergent", "aseo"},
	{"blanqueador", "bleach", "aseo"},
	{"servilleta", "napkin", "aseo"},
	{"esponja", "sponge", "aseo"},
	{"cepillo", "brush", "aseo"},
	{"toalla", "towel", "aseo"},
	{"champu", "shampoo", "aseo"},
	// abarrotes secos sin rango propio
	{"aceite", "oil", "abarrotes"},
	{"sal", "salt", "abarrotes"},
	{"azucar", "sugar", "abarrotes"},
	{"pasta", "", "abarrotes"},
	{"vinagre", "vinegar", "abarrotes"},
	{"mayonesa", "mayonnaise", "abarrotes"},
	{"salsa", "sauce", "abarrotes"},
	{"cereal", "", "abarrotes"},
	// descriptivos (sin categoría propia)
	{"fresco", "fresh", ""},
	{"grande", "large", ""},
	{"pequeno", "small", ""},
	{"rojo", "red", ""},
	{"verde", "green", ""},
	{"blanco", "white", ""},
	{"entero", "whole", ""},
	{"descremado", "skim", ""},
	{"integral", "wholegrain", ""},
	{"organico", "organic", ""},
	{"congelado", "frozen", ""},
	{"criollo", "", ""},
	{"campesino", "", ""},
}

// LangES / LangEN idiomas que puede reportar el estandarizador.
const (
	LangES = "es"
	LangEN = "en"
)

// indexEntry término indexado para búsqueda exacta y difusa.
type indexEntry struct {
	Term      string // forma buscable (ES o EN)
	Canonical string // siempre el lado español
	Lang      string
	Category  string
}

// Lexicon índice precalculado sobre el léxico: lookup exacto O(1) y búsqueda
// difusa acotada por cubetas de longitud, en lugar de escanear la lista
// entera por token.
type Lexicon struct {
	exact    map[string]indexEntry
	byLength map[int][]indexEntry
}

// NewLexicon construye el índice sobre el léxico de abarrotes incorporado.
func NewLexicon() *Lexicon {
	lex := &Lexicon{
		exact:    make(map[string]indexEntry),
		byLength: make(map[int][]indexEntry),
	}
	add := func(term string, e lexEntry, lang string) {
		if term == "" {
			return
		}
		ie := indexEntry{Term: term, Canonical: e.ES, Lang: lang, Category: e.Category}
		// El lado español gana ante colisiones de término.
		if prev, ok := lex.exact[term]; !ok || prev.Lang == LangEN && lang == LangES {
			lex.exact[term] = ie
		}
		lex.byLength[len(term)] = append(lex.byLength[len(term)], ie)
	}
	for _, e := range groceryLexicon {
		add(e.ES, e, LangES)
		add(e.EN, e, LangEN)
	}
	// Orden estable dentro de cada cubeta: la búsqueda difusa es determinista.
	for l := range lex.byLength {
		sort.Slice(lex.byLength[l], func(i, j int) bool {
			return lex.byLength[l][i].Term < lex.byLength[l][j].Term
		})
	}
	return lex
}

// Lookup búsqueda exacta de un token normalizado.
func (l *Lexicon) Lookup(token string) (indexEntry, bool) {
	e, ok := l.exact[token]
	return e, ok
}

// Nearest busca el término del léxico más cercano dentro de maxDist ediciones.
// Recorre solo las cubetas de longitud compatible. Ante empate de distancia
// gana el término lexicográficamente menor (determinismo).
func (l *Lexicon) Nearest(token string, maxDist int) (indexEntry, int, bool) {
	var best indexEntry
	bestDist := maxDist + 1
	for length := len(token) - maxDist; length <= len(token)+maxDist; length++ {
		for _, cand := range l.byLength[length] {
			d := levenshtein.ComputeDistance(token, cand.Term)
			if d < bestDist || (d == bestDist && bestDist <= maxDist && cand.Term < best.Term) {
				best = cand
				bestDist = d
			}
		}
	}
	if bestDist > maxDist {
		return indexEntry{}, 0, false
	}
	return best, bestDist, true
}

// unitSynonyms sinónimos de unidad → unidad canónica.
var unitSynonyms = map[string]string{
	"kg": "kg", "kilo": "kg", "kilos": "kg", "kilogramo": "kg", "kilogramos": "kg", "kgs": "kg",
	"g": "g", "gr": "g", "gramo": "g", "gramos": "g",
	"lb": "lb", "libra": "lb", "libras": "lb", "pound": "lb",
	"l": "l", "lt": "l", "litro": "l", "litros": "l", "liter": "l",
	"ml":  "ml",
	"und": "und", "un": "und", "u": "und", "unidad": "und", "unidades": "und",
	"pieza": "und", "pza": "und", "unit": "und", "piece": "und", "each": "und", "ea": "und",
	"paq": "paq", "paquete": "paq", "paquetes": "paq", "pack": "paq",
	"caja": "caja", "cajas": "caja", "box": "caja",
	"doc": "doc", "docena": "doc", "dozen": "doc",
	"bulto": "bulto", "bultos": "bulto", "saco": "bulto", "sack": "bulto",
	"bolsa": "bolsa", "bag": "bolsa",
	"arroba":  "arroba",
	"bandeja": "bandeja", "tray": "bandeja",
	"atado": "atado", "manojo": "atado", "bunch": "atado",
}

// NormalizeUnit lleva una unidad cruda a su forma canónica; sin coincidencia
// (o vacía) devuelve "und".
func NormalizeUnit(raw string) string {
	if u, ok := unitSynonyms[normalizeText(raw)]; ok {
		return u
	}
	return "und"
}
