package edm

import (
	"fmt"
	"math/bits"
)

const (
	// scaleGroups is the number of EGT scale-extension byte groups.
	scaleGroups = 2
	// minRecordBytes is the smallest remainder that can hold another record.
	minRecordBytes = 4
)

// rawRecord is the byte layout of one delta record. Walking it does not
// depend on the snapshot, so the decoder and the rewriter share it.
type rawRecord struct {
	decode [2]byte
	repeat byte
	value  [GroupCount]byte
	scale  [scaleGroups]byte
	sign   [GroupCount]byte

	deltas      []byte // one per set value bit, in slot order
	scaleDeltas []byte // one per set scale bit, in slot order

	// body spans the first decode flag byte through the last delta byte.
	body     []byte
	checksum byte
}

// size is the number of bytes the record occupies including its checksum.
func (r *rawRecord) size() int {
	return len(r.body) + 1
}

func testBit(groups []byte, bit int) bool {
	return groups[bit/8]&(1<<uint(bit%8)) != 0
}

func countBits(groups []byte) int {
	n := 0
	for _, g := range groups {
		n += bits.OnesCount8(g)
	}
	return n
}

// walkRecord splits the record at the start of buf. buf must end at the end
// of the flight's byte range.
func walkRecord(buf []byte) (*rawRecord, error) {
	pos := 0
	next := func() (byte, error) {
		if pos >= len(buf) {
			return 0, fmt.Errorf("%w: data record truncated at byte %d", ErrUnexpectedEOF, pos)
		}
		b := buf[pos]
		pos++
		return b, nil
	}

	r := &rawRecord{}
	var err error
	for i := range r.decode {
		if r.decode[i], err = next(); err != nil {
			return nil, err
		}
	}
	if r.repeat, err = next(); err != nil {
		return nil, err
	}
	for i := 0; i < GroupCount; i++ {
		if r.decode[0]&(1<<uint(i)) != 0 {
			if r.value[i], err = next(); err != nil {
				return nil, err
			}
		}
	}
	for i := 0; i < scaleGroups; i++ {
		if r.decode[0]&(0x40<<uint(i)) != 0 {
			if r.scale[i], err = next(); err != nil {
				return nil, err
			}
		}
	}
	for i := 0; i < GroupCount; i++ {
		if r.decode[1]&(1<<uint(i)) != 0 {
			if r.sign[i], err = next(); err != nil {
				return nil, err
			}
		}
	}

	n := countBits(r.value[:])
	if pos+n > len(buf) {
		return nil, fmt.Errorf("%w: data record values truncated", ErrUnexpectedEOF)
	}
	r.deltas = buf[pos : pos+n]
	pos += n

	n = countBits(r.scale[:])
	if pos+n > len(buf) {
		return nil, fmt.Errorf("%w: data record scale bytes truncated", ErrUnexpectedEOF)
	}
	r.scaleDeltas = buf[pos : pos+n]
	pos += n

	if pos >= len(buf) {
		return nil, fmt.Errorf("%w: data record has no checksum byte", ErrUnexpectedEOF)
	}
	r.body = buf[:pos]
	r.checksum = buf[pos]
	return r, nil
}

// apply adds the record's deltas to s. A zero value byte marks its slot not
// available; the accumulator is still updated with it.
func (r *rawRecord) apply(s *Snapshot, flags Features) {
	k := 0
	for i := 0; i < SlotCount; i++ {
		if !testBit(r.value[:], i) {
			continue
		}
		slot := Slot(i)
		d := r.deltas[k]
		k++
		s.setNA(slot, d == 0)
		s.add(slot, int16(d), testBit(r.sign[:], i))
	}

	k = 0
	for j := 0; j < scaleGroups; j++ {
		for i := 0; i < 8; i++ {
			if !testBit(r.scale[j:j+1], i) {
				continue
			}
			slot := Slot(j*TwinJump + i)
			x := r.scaleDeltas[k]
			k++
			// A zero high byte leaves the NA mark set by the low byte.
			if x == 0 {
				continue
			}
			s.setNA(slot, false)
			s.add(slot, int16(uint16(x)<<8), testBit(r.sign[:], int(slot)))
		}
	}

	if s.engines == 1 {
		// The RPM high byte carries no sign bit of its own; it follows RPM.
		if testBit(r.sign[:], int(SlotRPM)) {
			s.vals[SlotRPMHigh] = -s.vals[SlotRPMHigh]
		}
		if s.vals[SlotRPMHigh] != 0 {
			s.setNA(SlotRPM, false)
		}
	}

	s.updateSpread(flags.Cylinders())

	if s.engines == 1 && flags.Has(FeatRPM) {
		s.vals[SlotRPM] += s.vals[SlotRPMHigh] << 8
		s.vals[SlotRPMHigh] = 0
	}
}

// ApplyRecord decodes the record at the start of buf into s and returns its
// repeat count and size in bytes. It neither validates the checksum nor
// emits rows.
func ApplyRecord(s *Snapshot, flags Features, buf []byte) (repeat int, size int, err error) {
	r, err := walkRecord(buf)
	if err != nil {
		return 0, 0, err
	}
	r.apply(s, flags)
	return int(r.repeat), r.size(), nil
}
