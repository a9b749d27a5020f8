package edm

// Slot addresses one of the 48 delta-compressed fields of a data record.
// Slots come in six groups of eight; each group is gated by one bit of the
// record's decode flags. The second engine (and cylinders 7-9 of a single
// engine) live TwinJump slots after the first engine's EGTs.
type Slot int

const (
	SlotE1 Slot = iota
	SlotE2
	SlotE3
	SlotE4
	SlotE5
	SlotE6
	SlotT1
	SlotT2

	SlotC1
	SlotC2
	SlotC3
	SlotC4
	SlotC5
	SlotC6
	SlotCLD
	SlotOIL

	SlotMARK
	SlotUnknown17
	SlotCDT
	SlotIAT
	SlotBAT
	SlotOAT
	SlotUSD
	SlotFF

	SlotRE1
	SlotRE2
	SlotRE3
	SlotRE4
	SlotRE5
	SlotRE6
	SlotHP
	SlotRT2

	SlotRC1
	SlotRC2
	SlotRC3
	SlotRC4
	SlotRC5
	SlotRC6
	SlotRCLD
	SlotROIL

	SlotMAP
	SlotRPM
	SlotRPMHigh
	SlotRIAT
	SlotUnknown44
	SlotUnknown45
	SlotRUSD
	SlotRFF

	// SlotCount is the number of addressable slots.
	SlotCount int = iota
)

const (
	// SlotRT1 is the twin-engine meaning of SlotHP.
	SlotRT1 = SlotHP
	// SlotRCDT is the twin-engine meaning of SlotRPMHigh.
	SlotRCDT = SlotRPMHigh
)

const (
	// GroupCount is the number of eight-slot value groups.
	GroupCount = 6
	// TwinJump is the slot offset of the second engine block.
	TwinJump = int(SlotRE1)
	// slotSentinel is the power-on value of every slot.
	slotSentinel int16 = 0x00F0
)

// Snapshot is the absolute sensor state of one flight. Data records apply
// signed deltas to it in place; it is never reset mid-flight.
type Snapshot struct {
	vals    [SlotCount]int16
	na      uint64
	spread  [2]int16
	engines int
}

// NewSnapshot returns the initial state for a configuration with the given
// number of engines.
func NewSnapshot(engines int) *Snapshot {
	s := &Snapshot{engines: engines}
	for i := range s.vals {
		s.vals[i] = slotSentinel
	}
	if engines == 1 {
		s.vals[SlotRPM] = 0
		s.vals[SlotRPMHigh] = 0
	}
	return s
}

// Engines returns the number of engines the snapshot models.
func (s *Snapshot) Engines() int { return s.engines }

// Value returns the accumulated value of slot.
func (s *Snapshot) Value(slot Slot) int16 { return s.vals[slot] }

// NA reports whether slot is flagged not available.
func (s *Snapshot) NA(slot Slot) bool { return s.na&(1<<uint(slot)) != 0 }

// Spread returns the computed EGT spread (DIF) of engine 0 or 1.
func (s *Snapshot) Spread(engine int) int16 { return s.spread[engine] }

// Mark reports whether the pilot mark event is set.
func (s *Snapshot) Mark() bool { return s.vals[SlotMARK] != 0 }

func (s *Snapshot) setNA(slot Slot, na bool) {
	if na {
		s.na |= 1 << uint(slot)
	} else {
		s.na &^= 1 << uint(slot)
	}
}

func (s *Snapshot) add(slot Slot, delta int16, negative bool) {
	if negative {
		s.vals[slot] -= delta
	} else {
		s.vals[slot] += delta
	}
}

// EGTSlot returns the storage slot of cylinder cyl (0-based) on engine.
// Cylinders 7-9 of a single engine share the second engine's EGT block.
func EGTSlot(engine, cyl int) Slot {
	if cyl < 6 {
		return Slot(cyl + engine*TwinJump)
	}
	return Slot(cyl - 6 + TwinJump)
}

// updateSpread recomputes the per-engine EGT spread over active, available
// cylinders.
func (s *Snapshot) updateSpread(cylinders int) {
	for e := 0; e < s.engines; e++ {
		emax, emin := int16(-1), int16(0x7fff)
		for c := 0; c < cylinders; c++ {
			slot := EGTSlot(e, c)
			if s.NA(slot) {
				continue
			}
			v := s.vals[slot]
			if v < emin {
				emin = v
			}
			if v > emax {
				emax = v
			}
		}
		s.spread[e] = emax - emin
	}
}
