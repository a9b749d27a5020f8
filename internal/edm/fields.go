package edm

// FieldValue is how a report column obtains its value: Stored, Computed or
// Marker.
type FieldValue interface {
	fieldValue()
}

// Stored reads a snapshot slot and divides it by Scale (1 or 10).
type Stored struct {
	Slot  Slot
	Scale int
}

// Computed derives a value for an engine instead of reading a slot.
type Computed struct {
	Value func(s *Snapshot, engine int) int16
}

// Marker renders as a short token when the slot is non-zero. It is always
// the last column of a row.
type Marker struct {
	Slot  Slot
	Token string
}

func (Stored) fieldValue()   {}
func (Computed) fieldValue() {}
func (Marker) fieldValue()   {}

// Field describes one report column.
type Field struct {
	Name string
	// PerEngine fields repeat for each engine, Stored slots shifted by
	// TwinJump for the second engine. Other fields appear once, in the
	// last engine's pass.
	PerEngine bool
	// Feature bits must all be set for the column to appear.
	Feature Features
	// Engines restricts the column to engines whose bit (1<<engine) is set;
	// zero means any engine.
	Engines uint8
	Value   FieldValue
}

// Enabled reports whether the column is emitted for engine (0-based) of a
// configuration with the given engine count and flags.
func (f Field) Enabled(flags Features, engine, engines int) bool {
	if !f.PerEngine && engine < engines-1 {
		return false
	}
	if f.Engines != 0 && f.Engines&(1<<uint(engine)) == 0 {
		return false
	}
	if s, ok := f.Value.(Stored); ok && f.PerEngine {
		// Cylinders 7-9 borrow the second engine's slots.
		if engines > 1 && int(s.Slot) >= TwinJump {
			return false
		}
		if int(s.Slot)+engine*TwinJump >= SlotCount {
			return false
		}
	}
	return flags.Has(f.Feature)
}

func stored(name string, perEngine bool, slot Slot, scale int, feat Features) Field {
	return Field{Name: name, PerEngine: perEngine, Feature: feat, Value: Stored{Slot: slot, Scale: scale}}
}

// Fields is the report column table in output order.
var Fields = []Field{
	stored("E1", true, SlotE1, 1, FeatE1),
	stored("E2", true, SlotE2, 1, FeatE2),
	stored("E3", true, SlotE3, 1, FeatE3),
	stored("E4", true, SlotE4, 1, FeatE4),
	stored("E5", true, SlotE5, 1, FeatE5),
	stored("E6", true, SlotE6, 1, FeatE6),
	stored("E7", true, SlotRE1, 1, FeatE7),
	stored("E8", true, SlotRE2, 1, FeatE8),
	stored("E9", true, SlotRE3, 1, FeatE9),
	stored("C1", true, SlotC1, 1, FeatC1),
	stored("C2", true, SlotC2, 1, FeatC2),
	stored("C3", true, SlotC3, 1, FeatC3),
	stored("C4", true, SlotC4, 1, FeatC4),
	stored("C5", true, SlotC5, 1, FeatC5),
	stored("C6", true, SlotC6, 1, FeatC6),
	stored("C7", true, SlotRE4, 1, FeatC7),
	stored("C8", true, SlotRE5, 1, FeatC8),
	stored("C9", true, SlotRE6, 1, FeatC9),
	stored("T1", true, SlotT1, 1, FeatT1),
	stored("T2", true, SlotT2, 1, FeatT2),
	stored("OIL", true, SlotOIL, 1, FeatOIL),
	{Name: "DIF", PerEngine: true, Feature: FeatDIF, Value: Computed{Value: func(s *Snapshot, engine int) int16 {
		return s.Spread(engine)
	}}},
	stored("CLD", true, SlotCLD, 1, FeatCLD),
	stored("OAT", false, SlotOAT, 1, FeatOAT),
	stored("CDT", true, SlotCDT, 1, FeatCDT),
	stored("IAT", true, SlotIAT, 1, FeatIAT),
	// Single engine models list BAT before fuel, the twin after it.
	{Name: "BAT", Feature: FeatBAT, Engines: 0x01, Value: Stored{Slot: SlotBAT, Scale: 10}},
	stored("FF", true, SlotFF, 10, FeatFF),
	stored("USD", true, SlotUSD, 10, FeatUSD),
	{Name: "BAT", Feature: FeatBAT, Engines: 0x02, Value: Stored{Slot: SlotBAT, Scale: 10}},
	stored("RPM", false, SlotRPM, 1, FeatRPM),
	stored("MAP", false, SlotMAP, 10, FeatMAP),
	stored("HP", false, SlotHP, 1, FeatHP),

	{Name: "MARK", Feature: FeatMARK, Value: Marker{Slot: SlotMARK, Token: "S"}},
}
