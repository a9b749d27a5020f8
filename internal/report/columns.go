package report

import (
	"strconv"

	"example.com/edmdat/internal/edm"
)

// Column is one report column: a field of the table bound to an engine.
type Column struct {
	Title  string
	Field  edm.Field
	Engine int
}

// Columns lists the report columns for a flight in output order. Per-engine
// titles carry an L or R prefix on twin-engine configurations.
func Columns(flags edm.Features, engines int) []Column {
	var cols []Column
	for e := 0; e < engines; e++ {
		for _, f := range edm.Fields {
			if !f.Enabled(flags, e, engines) {
				continue
			}
			cols = append(cols, Column{Title: enginePrefix(f, e, engines) + f.Name, Field: f, Engine: e})
		}
	}
	return cols
}

func enginePrefix(f edm.Field, engine, engines int) string {
	if !f.PerEngine || engines == 1 {
		return ""
	}
	if engine > 0 {
		return "R"
	}
	return "L"
}

// IsMarker reports whether the column is the trailing mark column.
func (c Column) IsMarker() bool {
	_, ok := c.Field.Value.(edm.Marker)
	return ok
}

// Raw returns the column's unscaled value and scale. ok is false when the
// value is not available.
func (c Column) Raw(s *edm.Snapshot) (v int16, scale int, ok bool) {
	switch fv := c.Field.Value.(type) {
	case edm.Stored:
		slot := fv.Slot
		if c.Field.PerEngine {
			slot += edm.Slot(c.Engine * edm.TwinJump)
		}
		if s.NA(slot) {
			return 0, fv.Scale, false
		}
		return s.Value(slot), fv.Scale, true
	case edm.Computed:
		return fv.Value(s, c.Engine), 1, true
	case edm.Marker:
		return s.Value(fv.Slot), 1, true
	}
	return 0, 1, false
}

// Float returns the scaled value of the column.
func (c Column) Float(s *edm.Snapshot) (float64, bool) {
	v, scale, ok := c.Raw(s)
	if !ok {
		return 0, false
	}
	if scale <= 1 {
		return float64(v), true
	}
	return float64(v) / float64(scale), true
}

// FormatScaled renders v/scale, appending the remainder as a fraction only
// when it is non-zero. Scale is 1 or 10 for every field in the table.
func FormatScaled(v int16, scale int) string {
	if scale <= 1 {
		return strconv.Itoa(int(v))
	}
	n := int(v)
	neg := n < 0
	if neg {
		n = -n
	}
	whole, frac := n/scale, n%scale
	out := strconv.Itoa(whole)
	if frac != 0 {
		out += "." + strconv.Itoa(frac)
	}
	if neg {
		out = "-" + out
	}
	return out
}
