// Package units converts recipe and stock quantities between units of measure.
package units

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnconvertibleUnits is returned when no conversion path exists.
var ErrUnconvertibleUnits = errors.New("unconvertible units")

// Dimension groups units that share a base unit.
type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Count  Dimension = "count"
)

// Base units per dimension.
const (
	Gram       = "g"
	Milliliter = "ml"
	Each       = "each"
)

type unitDef struct {
	dim    Dimension
	toBase float64
}

var builtin = map[string]unitDef{
	"g":     {Mass, 1},
	"kg":    {Mass, 1000},
	"mg":    {Mass, 0.001},
	"oz":    {Mass, 28.349523125},
	"lb":    {Mass, 453.59237},
	"ml":    {Volume, 1},
	"l":     {Volume, 1000},
	"tsp":   {Volume, 4.92892159375},
	"tbsp":  {Volume, 14.78676478125},
	"floz":  {Volume, 29.5735295625},
	"cup":   {Volume, 236.5882365},
	"pt":    {Volume, 473.176473},
	"qt":    {Volume, 946.352946},
	"gal":   {Volume, 3785.411784},
	"each":  {Count, 1},
	"dozen": {Count, 12},
	"case":  {Count, 24},
}

var aliases = map[string]string{
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"milligram": "mg", "milligrams": "mg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"teaspoon": "tsp", "teaspoons": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp",
	"fl oz": "floz", "fluid ounce": "floz", "fluid ounces": "floz",
	"cups": "cup", "c": "cup",
	"pint": "pt", "pints": "pt",
	"quart": "qt", "quarts": "qt",
	"gallon": "gal", "gallons": "gal",
	"ea": "each", "piece": "each", "pieces": "each", "pc": "each", "pcs": "each", "portion": "each", "portions": "each",
	"doz": "dozen", "dozens": "dozen",
	"cases": "case",
}

// Normalize returns the canonical spelling of a unit name.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, ".")
	if canonical, ok := aliases[u]; ok {
		return canonical
	}
	return u
}

// DimensionOf reports the dimension of a built-in unit.
func DimensionOf(unit string) (Dimension, bool) {
	def, ok := builtin[Normalize(unit)]
	return def.dim, ok
}

// Converter converts quantities using built-in units plus registered edges
// such as "each egg = 50 g" or a kitchen's "#10 can = 3 qt".
type Converter struct {
	mu    sync.RWMutex
	edges map[string]map[string]float64
}

// NewConverter creates a converter with only the built-in units.
func NewConverter() *Converter {
	return &Converter{edges: make(map[string]map[string]float64)}
}

// Register adds a direct conversion: 1 from = factor to. The inverse is
// registered as well.
func (c *Converter) Register(from, to string, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("registering %s->%s: factor must be positive", from, to)
	}
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addEdge(from, to, factor)
	c.addEdge(to, from, 1/factor)
	return nil
}

func (c *Converter) addEdge(from, to string, factor float64) {
	m, ok := c.edges[from]
	if !ok {
		m = make(map[string]float64)
		c.edges[from] = m
	}
	m[to] = factor
}

// Convert converts qty from one unit to another. Lookup order is the direct
// table, then a shared base unit, then a breadth-first path through registered
// edges and built-in dimensions.
func (c *Converter) Convert(qty float64, from, to string) (float64, error) {
	factor, err := c.Factor(from, to)
	if err != nil {
		return 0, err
	}
	return qty * factor, nil
}

// Factor returns the multiplier that converts one unit of from into to.
func (c *Converter) Factor(from, to string) (float64, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return 1, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if f, ok := c.edges[from][to]; ok {
		return f, nil
	}

	fd, fok := builtin[from]
	td, tok := builtin[to]
	if fok && tok && fd.dim == td.dim {
		return fd.toBase / td.toBase, nil
	}

	if f, ok := c.search(from, to); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s to %s", ErrUnconvertibleUnits, from, to)
}

// CanConvert reports whether a conversion path exists.
func (c *Converter) CanConvert(from, to string) bool {
	_, err := c.Factor(from, to)
	return err == nil
}

type hop struct {
	unit   string
	factor float64
}

// search walks the unit graph. A built-in unit is adjacent to its dimension's
// base unit, and a base unit to every built-in unit of its dimension.
func (c *Converter) search(from, to string) (float64, bool) {
	visited := map[string]bool{from: true}
	queue := []hop{{from, 1}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range c.neighbors(cur.unit) {
			if visited[next.unit] {
				continue
			}
			f := cur.factor * next.factor
			if next.unit == to {
				return f, true
			}
			visited[next.unit] = true
			queue = append(queue, hop{next.unit, f})
		}
	}
	return 0, false
}

func (c *Converter) neighbors(unit string) []hop {
	var out []hop
	for to, f := range c.edges[unit] {
		out = append(out, hop{to, f})
	}
	def, ok := builtin[unit]
	if !ok {
		return out
	}
	base := baseUnit(def.dim)
	if unit != base {
		out = append(out, hop{base, def.toBase})
		return out
	}
	for name, other := range builtin {
		if other.dim == def.dim && name != base {
			out = append(out, hop{name, 1 / other.toBase})
		}
	}
	return out
}

func baseUnit(d Dimension) string {
	switch d {
	case Mass:
		return Gram
	case Volume:
		return Milliliter
	default:
		return Each
	}
}
