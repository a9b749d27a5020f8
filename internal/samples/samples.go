// Package samples builds deterministic synthetic engine-monitor files for
// tests and demonstrations.
package samples

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"example.com/edmdat/internal/edm"
)

const (
	// File names exposed for generator consumers.
	SingleFileName = "sample.DAT"
	TwinFileName   = "twin.DAT"
	LegacyFileName = "legacy.DAT"

	maxDelta = 0xff
)

// Record describes one delta record.
type Record struct {
	// Repeat is the number of times the previous row is re-emitted first.
	Repeat uint8
	// Deltas are signed per-slot changes in the range -255..255.
	Deltas map[edm.Slot]int
	// NA slots are written with a zero delta byte.
	NA []edm.Slot
	// High adds value<<8 to EGT slots through the scale-extension bytes.
	// The sign must agree with any low delta of the same slot.
	High map[edm.Slot]int
	// DivergentFlags writes a second decode flag byte with an extra bit set.
	DivergentFlags bool
}

// Flight describes one flight block.
type Flight struct {
	Number uint16
	// Flags defaults to the file flags when zero.
	Flags        edm.Features
	Unknown      uint16
	IntervalSecs uint16
	Start        time.Time
	Records      []Record
}

// File describes a complete synthetic file.
type File struct {
	TailNumber string
	Model      uint16
	Flags      edm.Features
	Unknown    uint16
	Firmware   uint16
	Limits     edm.Limits
	Fuel       edm.Fuel
	Download   edm.Timestamp
	Flights    []Flight
}

// current reports whether binary records carry negated-sum checksums.
func (f File) current() bool {
	return edm.SchemeFor(f.Model).UsesCurrent(f.Firmware)
}

func (f File) checksum(b []byte) byte {
	if f.current() {
		return edm.CurrentChecksum(b)
	}
	return edm.LegacyChecksum(b)
}

// Build encodes f.
func Build(f File) ([]byte, error) {
	var blocks [][]byte
	for _, fl := range f.Flights {
		b, err := buildFlight(f, fl)
		if err != nil {
			return nil, fmt.Errorf("flight %d: %w", fl.Number, err)
		}
		if len(b)/2 > 0xffff {
			return nil, fmt.Errorf("flight %d: %d bytes do not fit the index", fl.Number, len(b))
		}
		blocks = append(blocks, b)
	}

	var out bytes.Buffer
	writeHeaderLine(&out, "U,%s", f.TailNumber)
	l := f.Limits
	writeHeaderLine(&out, "A,%d,%d,%d,%d,%d,%d,%d,%d", l.VoltsHi, l.VoltsLo, l.Dif, l.CHT, l.CLD, l.TIT, l.OilHi, l.OilLo)
	fu := f.Fuel
	writeHeaderLine(&out, "F,%d,%d,%d,%d,%d", fu.Warn1, fu.Capacity, fu.Warn2, fu.KFactor1, fu.KFactor2)
	ts := f.Download
	writeHeaderLine(&out, "T,%d,%d,%d,%d,%d,%d", ts.Month, ts.Day, ts.Year, ts.Hour, ts.Minute, ts.Unknown)
	writeHeaderLine(&out, "C,%d,%d,%d,%d,%d", f.Model, uint32(f.Flags)&0xffff, uint32(f.Flags)>>16, f.Unknown, f.Firmware)
	for i, fl := range f.Flights {
		writeHeaderLine(&out, "D,%d,%d", fl.Number, len(blocks[i])/2)
	}
	writeHeaderLine(&out, "L,%d", 0)
	for _, b := range blocks {
		out.Write(b)
	}
	return out.Bytes(), nil
}

// HeaderLine returns a signed, CRLF-terminated header record for body, which
// excludes the leading '$'.
func HeaderLine(body string) []byte {
	return []byte(fmt.Sprintf("$%s*%02X\r\n", body, edm.LegacyChecksum([]byte(body))))
}

func writeHeaderLine(out *bytes.Buffer, format string, args ...interface{}) {
	out.Write(HeaderLine(fmt.Sprintf(format, args...)))
}

func buildFlight(f File, fl Flight) ([]byte, error) {
	flags := fl.Flags
	if flags == 0 {
		flags = f.Flags
	}
	hdr := make([]byte, edm.FlightHeaderSize)
	binary.BigEndian.PutUint16(hdr[0:2], fl.Number)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(flags))
	binary.BigEndian.PutUint16(hdr[4:6], uint16(flags>>16))
	binary.BigEndian.PutUint16(hdr[6:8], fl.Unknown)
	binary.BigEndian.PutUint16(hdr[8:10], fl.IntervalSecs)
	binary.BigEndian.PutUint16(hdr[10:12], PackDate(fl.Start))
	binary.BigEndian.PutUint16(hdr[12:14], PackTime(fl.Start))

	out := append(hdr, f.checksum(hdr))
	for i, r := range fl.Records {
		body, err := EncodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, body...)
		out = append(out, f.checksum(body))
	}
	if len(out)%2 != 0 {
		out = append(out, 0)
	}
	return out, nil
}

// PackDate encodes the date of t the way flight headers store it.
func PackDate(t time.Time) uint16 {
	return uint16(t.Day()) | uint16(t.Month())<<5 | uint16(t.Year()%100)<<9
}

// PackTime encodes the time of day of t with two-second resolution.
func PackTime(t time.Time) uint16 {
	return uint16(t.Second()/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11
}

// EncodeRecord returns the record bytes without the trailing checksum.
func EncodeRecord(r Record) ([]byte, error) {
	var value, sign [edm.GroupCount]byte
	var scale [2]byte
	deltas := map[edm.Slot]byte{}
	highs := map[edm.Slot]byte{}

	set := func(groups []byte, bit int) {
		groups[bit/8] |= 1 << uint(bit%8)
	}
	for slot, d := range r.Deltas {
		if d == 0 || d < -maxDelta || d > maxDelta {
			return nil, fmt.Errorf("slot %d: delta %d out of range", slot, d)
		}
		set(value[:], int(slot))
		if d < 0 {
			set(sign[:], int(slot))
			d = -d
		}
		deltas[slot] = byte(d)
	}
	for _, slot := range r.NA {
		if _, ok := deltas[slot]; ok {
			return nil, fmt.Errorf("slot %d: both NA and a delta", slot)
		}
		set(value[:], int(slot))
		deltas[slot] = 0
	}
	for slot, h := range r.High {
		group := int(slot) / edm.TwinJump
		bit := int(slot) % edm.TwinJump
		if bit >= 8 || group >= len(scale) {
			return nil, fmt.Errorf("slot %d has no scale byte", slot)
		}
		if h == 0 || h < -maxDelta || h > maxDelta {
			return nil, fmt.Errorf("slot %d: high delta %d out of range", slot, h)
		}
		if d, ok := r.Deltas[slot]; ok && (d < 0) != (h < 0) {
			return nil, fmt.Errorf("slot %d: high and low deltas disagree in sign", slot)
		}
		scale[group] |= 1 << uint(bit)
		if h < 0 {
			set(sign[:], int(slot))
			h = -h
		}
		highs[slot] = byte(h)
	}

	var decode byte
	for i := 0; i < edm.GroupCount; i++ {
		if value[i] != 0 || sign[i] != 0 {
			decode |= 1 << uint(i)
		}
	}
	for i := range scale {
		if scale[i] != 0 {
			decode |= 0x40 << uint(i)
		}
	}
	second := decode
	if r.DivergentFlags {
		second |= 0x80
	}

	out := []byte{decode, second, r.Repeat}
	for i := 0; i < edm.GroupCount; i++ {
		if decode&(1<<uint(i)) != 0 {
			out = append(out, value[i])
		}
	}
	for i := range scale {
		if decode&(0x40<<uint(i)) != 0 {
			out = append(out, scale[i])
		}
	}
	for i := 0; i < edm.GroupCount; i++ {
		if second&(1<<uint(i)) != 0 {
			out = append(out, sign[i])
		}
	}
	out = append(out, sortedBytes(deltas)...)
	out = append(out, sortedBytes(highs)...)
	return out, nil
}

func sortedBytes(m map[edm.Slot]byte) []byte {
	slots := make([]int, 0, len(m))
	for s := range m {
		slots = append(slots, int(s))
	}
	sort.Ints(slots)
	out := make([]byte, len(slots))
	for i, s := range slots {
		out[i] = m[edm.Slot(s)]
	}
	return out
}

// SingleEngineFlags is the feature set of the single-engine sample.
const SingleEngineFlags = edm.FeatBAT |
	edm.FeatC1 | edm.FeatC2 | edm.FeatC3 | edm.FeatC4 | edm.FeatC5 | edm.FeatC6 |
	edm.FeatE1 | edm.FeatE2 | edm.FeatE3 | edm.FeatE4 | edm.FeatE5 | edm.FeatE6 |
	edm.FeatOIL | edm.FeatOAT | edm.FeatRPM | edm.FeatFF | edm.FeatMAP

// TwinEngineFlags is the feature set of the twin-engine sample.
const TwinEngineFlags = edm.FeatBAT |
	edm.FeatC1 | edm.FeatC2 | edm.FeatC3 | edm.FeatC4 |
	edm.FeatE1 | edm.FeatE2 | edm.FeatE3 | edm.FeatE4 |
	edm.FeatOIL | edm.FeatOAT | edm.FeatFF

// SampleStart is the start time of the first sample flight.
var SampleStart = time.Date(2021, time.June, 12, 14, 30, 0, 0, time.UTC)

// SingleEngine returns a current-firmware single-engine file with two
// flights.
func SingleEngine() File {
	return File{
		TailNumber: "N12345",
		Model:      830,
		Flags:      SingleEngineFlags,
		Unknown:    0,
		Firmware:   310,
		Limits:     edm.Limits{VoltsHi: 150, VoltsLo: 120, Dif: 500, CHT: 450, CLD: 60, TIT: 1650, OilHi: 230, OilLo: 90},
		Fuel:       edm.Fuel{Warn1: 0, Capacity: 92, Warn2: 10, KFactor1: 2950, KFactor2: 2950},
		Download:   edm.Timestamp{Month: 6, Day: 13, Year: 21, Hour: 9, Minute: 5, Unknown: 1},
		Flights: []Flight{
			{
				Number:       101,
				Unknown:      0x20,
				IntervalSecs: 6,
				Start:        SampleStart,
				Records: []Record{
					{Deltas: map[edm.Slot]int{
						edm.SlotE1: 5, edm.SlotE2: 10, edm.SlotE3: -3, edm.SlotE4: 20,
						edm.SlotC1: 60, edm.SlotOIL: -50, edm.SlotOAT: -220,
						edm.SlotBAT: -100, edm.SlotFF: 15, edm.SlotRPM: 96, edm.SlotRPMHigh: 9,
						edm.SlotMAP: 5, edm.SlotMARK: -240,
					}},
					{Repeat: 2, Deltas: map[edm.Slot]int{edm.SlotE1: 2}},
					{Deltas: map[edm.Slot]int{edm.SlotMARK: 1}, NA: []edm.Slot{edm.SlotE6}},
					{Deltas: map[edm.Slot]int{edm.SlotMARK: -1, edm.SlotE5: -40}, High: map[edm.Slot]int{edm.SlotE2: 4}},
				},
			},
			{
				Number:       102,
				IntervalSecs: 1000,
				Start:        SampleStart.Add(3 * time.Hour),
				Records: []Record{
					{Deltas: map[edm.Slot]int{edm.SlotE1: 100, edm.SlotRPM: 200, edm.SlotMARK: -240}},
					{DivergentFlags: true, Deltas: map[edm.Slot]int{edm.SlotE1: -1}},
				},
			},
		},
	}
}

// TwinEngine returns a current-firmware twin-engine file with one flight.
func TwinEngine() File {
	return File{
		TailNumber: "N760TW",
		Model:      760,
		Flags:      TwinEngineFlags,
		Firmware:   144,
		Download:   edm.Timestamp{Month: 1, Day: 2, Year: 22, Hour: 8, Minute: 0},
		Flights: []Flight{
			{
				Number:       7,
				IntervalSecs: 2,
				Start:        time.Date(2022, time.January, 2, 7, 15, 30, 0, time.UTC),
				Records: []Record{
					{Deltas: map[edm.Slot]int{
						edm.SlotE1: 10, edm.SlotE2: 20, edm.SlotE3: 30, edm.SlotE4: 40,
						edm.SlotRE1: -10, edm.SlotRE2: -20, edm.SlotRE3: -30, edm.SlotRE4: -40,
						edm.SlotRFF: 5, edm.SlotMARK: -240,
					}},
					{Deltas: map[edm.Slot]int{edm.SlotE1: 1}, High: map[edm.Slot]int{edm.SlotRE1: 3}},
				},
			},
		},
	}
}

// Legacy returns an old-firmware single-engine file whose records use XOR
// checksums.
func Legacy() File {
	f := SingleEngine()
	f.TailNumber = "N1LEG"
	f.Firmware = 250
	f.Flights = f.Flights[:1]
	return f
}

// WriteFiles writes every sample file into dir.
func WriteFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name string
		file File
	}{
		{SingleFileName, SingleEngine()},
		{TwinFileName, TwinEngine()},
		{LegacyFileName, Legacy()},
	}
	var paths []string
	for _, f := range files {
		data, err := Build(f.file)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
