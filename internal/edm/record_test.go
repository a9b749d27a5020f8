package edm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// withChecksum appends the legacy checksum of body.
func withChecksum(body ...byte) []byte {
	return append(body, LegacyChecksum(body))
}

const singleFlags = FeatBAT | FeatC1 | FeatC2 | FeatC3 | FeatC4 |
	FeatE1 | FeatE2 | FeatE3 | FeatE4 | FeatRPM | FeatMAP | FeatFF

func TestNewSnapshotInitialValues(t *testing.T) {
	single := NewSnapshot(1)
	twin := NewSnapshot(2)
	for slot := Slot(0); int(slot) < SlotCount; slot++ {
		if single.NA(slot) || twin.NA(slot) {
			t.Fatalf("slot %d starts NA", slot)
		}
		if twin.Value(slot) != 0x00F0 {
			t.Fatalf("twin slot %d = %d, want 240", slot, twin.Value(slot))
		}
		want := int16(0x00F0)
		if slot == SlotRPM || slot == SlotRPMHigh {
			want = 0
		}
		if single.Value(slot) != want {
			t.Fatalf("single slot %d = %d, want %d", slot, single.Value(slot), want)
		}
	}
}

func TestApplyRecord(t *testing.T) {
	tests := []struct {
		name   string
		engine int
		setup  func(s *Snapshot)
		record []byte
		check  func(t *testing.T, s *Snapshot)
	}{
		{
			name:   "positive delta",
			engine: 1,
			record: withChecksum(0x01, 0x01, 0x00, 0x01, 0x00, 0x05),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotE1); got != 245 {
					t.Fatalf("E1 = %d, want 245", got)
				}
			},
		},
		{
			name:   "negative delta",
			engine: 1,
			record: withChecksum(0x01, 0x01, 0x00, 0x02, 0x02, 0x0a),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotE2); got != 230 {
					t.Fatalf("E2 = %d, want 230", got)
				}
			},
		},
		{
			name:   "zero delta marks NA",
			engine: 1,
			record: withChecksum(0x01, 0x01, 0x00, 0x01, 0x00, 0x00),
			check: func(t *testing.T, s *Snapshot) {
				if !s.NA(SlotE1) {
					t.Fatalf("E1 should be NA")
				}
				if got := s.Value(SlotE1); got != 240 {
					t.Fatalf("E1 accumulator = %d, want 240", got)
				}
			},
		},
		{
			name:   "scale byte extends to sixteen bits",
			engine: 1,
			record: withChecksum(0x41, 0x01, 0x00, 0x01, 0x01, 0x00, 0x05, 0x04),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotE1); got != 240+5+4*256 {
					t.Fatalf("E1 = %d, want %d", got, 240+5+4*256)
				}
			},
		},
		{
			name:   "scale byte clears NA",
			engine: 1,
			record: withChecksum(0x41, 0x01, 0x00, 0x01, 0x01, 0x00, 0x00, 0x02),
			check: func(t *testing.T, s *Snapshot) {
				if s.NA(SlotE1) {
					t.Fatalf("E1 should be available once its high byte is set")
				}
				if got := s.Value(SlotE1); got != 240+512 {
					t.Fatalf("E1 = %d, want %d", got, 240+512)
				}
			},
		},
		{
			name:   "rpm high byte folds into rpm",
			engine: 1,
			record: withChecksum(0x20, 0x20, 0x00, 0x06, 0x00, 0x60, 0x09),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotRPM); got != 2400 {
					t.Fatalf("RPM = %d, want 2400", got)
				}
				if got := s.Value(SlotRPMHigh); got != 0 {
					t.Fatalf("RPM high byte = %d, want 0 after fold", got)
				}
			},
		},
		{
			name:   "rpm high byte takes the rpm sign",
			engine: 1,
			setup: func(s *Snapshot) {
				s.vals[SlotRPM] = 2400
			},
			record: withChecksum(0x20, 0x20, 0x00, 0x06, 0x02, 0x60, 0x09),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotRPM); got != 0 {
					t.Fatalf("RPM = %d, want 0", got)
				}
			},
		},
		{
			name:   "twin engines do not fold",
			engine: 2,
			record: withChecksum(0x20, 0x20, 0x00, 0x06, 0x00, 0x60, 0x09),
			check: func(t *testing.T, s *Snapshot) {
				if got := s.Value(SlotRPM); got != 240+0x60 {
					t.Fatalf("slot 41 = %d, want %d", got, 240+0x60)
				}
				if got := s.Value(SlotRCDT); got != 249 {
					t.Fatalf("RCDT = %d, want 249", got)
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSnapshot(tc.engine)
			if tc.setup != nil {
				tc.setup(s)
			}
			repeat, size, err := ApplyRecord(s, singleFlags, tc.record)
			if err != nil {
				t.Fatalf("ApplyRecord: %v", err)
			}
			if repeat != 0 {
				t.Fatalf("repeat = %d", repeat)
			}
			if size != len(tc.record) {
				t.Fatalf("size = %d, want %d", size, len(tc.record))
			}
			tc.check(t, s)
		})
	}
}

func TestApplyRecordTruncated(t *testing.T) {
	full := withChecksum(0x03, 0x03, 0x00, 0x03, 0x01, 0x00, 0x00, 0x05, 0x06, 0x07)
	for n := 0; n < len(full); n++ {
		_, _, err := ApplyRecord(NewSnapshot(1), singleFlags, full[:n])
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Fatalf("length %d: expected ErrUnexpectedEOF, got %v", n, err)
		}
	}
	if _, _, err := ApplyRecord(NewSnapshot(1), singleFlags, full); err != nil {
		t.Fatalf("full record: %v", err)
	}
}

func TestSpreadSkipsUnavailableCylinders(t *testing.T) {
	s := NewSnapshot(1)
	s.vals[SlotE1] = 1400
	s.vals[SlotE2] = 1420
	s.vals[SlotE3] = 9999
	s.setNA(SlotE3, true)
	s.vals[SlotE4] = 1390
	s.updateSpread(4)
	if got := s.Spread(0); got != 30 {
		t.Fatalf("spread = %d, want 30", got)
	}
}

func TestSpreadUsesSecondBlockForHighCylinders(t *testing.T) {
	if EGTSlot(0, 6) != SlotRE1 || EGTSlot(0, 8) != SlotRE3 {
		t.Fatalf("cylinders 7-9 should map to the second EGT block")
	}
	if EGTSlot(1, 0) != SlotRE1 || EGTSlot(1, 5) != SlotRE6 {
		t.Fatalf("second engine should map to the second EGT block")
	}
	s := NewSnapshot(1)
	s.vals[SlotRE3] = 1500
	s.updateSpread(9)
	if got := s.Spread(0); got != 1500-240 {
		t.Fatalf("spread = %d, want %d", got, 1500-240)
	}
}

func TestApplyRecordIsDeterministic(t *testing.T) {
	records := [][]byte{
		withChecksum(0x41, 0x01, 0x00, 0x0f, 0x01, 0x04, 0x05, 0x06, 0x07, 0x08, 0x02),
		withChecksum(0x20, 0x20, 0x02, 0x06, 0x00, 0x60, 0x09),
		withChecksum(0x01, 0x01, 0x00, 0x01, 0x00, 0x00),
	}
	run := func() *Snapshot {
		s := NewSnapshot(1)
		for _, r := range records {
			if _, _, err := ApplyRecord(s, singleFlags, r); err != nil {
				t.Fatalf("ApplyRecord: %v", err)
			}
		}
		return s
	}
	a, b := run(), run()
	if diff := cmp.Diff(a, b, cmp.AllowUnexported(Snapshot{})); diff != "" {
		t.Fatalf("snapshots differ (-a +b):\n%s", diff)
	}
}
