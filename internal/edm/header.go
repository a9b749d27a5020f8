package edm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"example.com/edmdat/internal/common"
)

const (
	// MaxFlights is the capacity of the flight index.
	MaxFlights = 512
	// maxTailNumber is the longest tail number kept from the $U record.
	maxTailNumber = 15
)

// Limits holds the alarm limits from the $A record.
type Limits struct {
	VoltsHi uint16
	VoltsLo uint16
	Dif     uint16
	CHT     uint16
	CLD     uint16
	TIT     uint16
	OilHi   uint16
	OilLo   uint16
}

// Fuel holds the fuel configuration from the $F record.
type Fuel struct {
	Warn1    uint16
	Capacity uint16
	Warn2    uint16
	KFactor1 uint16
	KFactor2 uint16
}

// Timestamp holds the download time from the $T record.
type Timestamp struct {
	Month   uint16
	Day     uint16
	Year    uint16
	Hour    uint16
	Minute  uint16
	Unknown uint16
}

// FlightEntry is one $D record of the flight index.
type FlightEntry struct {
	Number uint16
	Words  uint16 // data length in 16-bit words
}

// Bytes returns the declared flight length in bytes.
func (e FlightEntry) Bytes() int {
	return int(e.Words) * 2
}

// Header is everything established by the text header block.
type Header struct {
	TailNumber string
	Limits     Limits
	Fuel       Fuel
	Timestamp  Timestamp
	Config     Config
	HeaderEnd  uint16 // value of the $L record, meaning not known
	Flights    []FlightEntry

	// DataOffset is the buffer offset of the first flight's binary block.
	DataOffset int

	// VersionPatch rewrites the $C firmware text to the legacy label and
	// re-signs the line. It is only applied when a file is downgraded.
	VersionPatch []PatchEdit
}

// ParseHeader consumes the CRLF-terminated $-records at the start of buf.
// Parsing stops after the $L record; reaching the end of buf first is an
// error.
func ParseHeader(buf []byte) (*Header, error) {
	h := &Header{}
	pos := 0
	for pos < len(buf) {
		cr := bytes.IndexByte(buf[pos:], '\r')
		if cr < 0 {
			break
		}
		end := pos + cr
		if end+1 >= len(buf) || buf[end+1] != '\n' {
			return nil, formatErrorf("header record at offset %d is not CRLF terminated", pos)
		}
		line := buf[pos:end]
		next := end + 2

		star, err := checkHeaderRecord(line)
		if err != nil {
			return nil, err
		}

		switch line[1] {
		case 'U':
			h.TailNumber = parseTailNumber(line)
		case 'A':
			v, err := parseValues(line, star, 8)
			if err != nil {
				return nil, err
			}
			h.Limits = Limits{v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]}
		case 'F':
			v, err := parseValues(line, star, 5)
			if err != nil {
				return nil, err
			}
			h.Fuel = Fuel{v[0], v[1], v[2], v[3], v[4]}
		case 'T':
			v, err := parseValues(line, star, 6)
			if err != nil {
				return nil, err
			}
			h.Timestamp = Timestamp{v[0], v[1], v[2], v[3], v[4], v[5]}
		case 'C':
			// model, flags low word, flags high word, unknown, firmware
			v, err := parseValues(line, star, 5)
			if err != nil {
				return nil, err
			}
			h.Config = Config{
				Model:    v[0],
				Flags:    Features(uint32(v[1]) | uint32(v[2])<<16),
				Unknown:  v[3],
				Firmware: v[4],
			}
			if h.Config.CurrentChecksums() {
				h.VersionPatch = versionPatch(line, star, pos, h.Config.Scheme().LegacyLabel)
			}
		case 'L':
			v, err := parseValues(line, star, 1)
			if err != nil {
				return nil, err
			}
			h.HeaderEnd = v[0]
			h.DataOffset = next
			return h, nil
		case 'D':
			if len(h.Flights) >= MaxFlights {
				return nil, fmt.Errorf("%w: more than %d flights in file", ErrCapacity, MaxFlights)
			}
			v, err := parseValues(line, star, 2)
			if err != nil {
				return nil, err
			}
			h.Flights = append(h.Flights, FlightEntry{Number: v[0], Words: v[1]})
		default:
			common.Logf("unrecognized header record: %s", line)
		}
		pos = next
	}
	return nil, fmt.Errorf("%w: header block has no $L record", ErrUnexpectedEOF)
}

// checkHeaderRecord verifies the $ and *XX framing of line and its XOR
// checksum, returning the index of the '*'.
func checkHeaderRecord(line []byte) (int, error) {
	if len(line) < 2 || line[0] != '$' {
		return 0, formatErrorf("expected $ at beginning of record: %q", line)
	}
	star := bytes.LastIndexByte(line, '*')
	if star < 0 || len(line)-star-1 != 2 {
		return 0, formatErrorf("header checksum format error: %q", line)
	}
	want, err := strconv.ParseUint(string(line[star+1:]), 16, 8)
	if err != nil {
		return 0, formatErrorf("header checksum format error: %q", line)
	}
	if got := LegacyChecksum(line[1:star]); got != byte(want) {
		return 0, checksumErrorf("header record %q computes %02X", line, got)
	}
	return star, nil
}

// parseValues reads n comma-separated unsigned 16-bit values following the
// record tag.
func parseValues(line []byte, star, n int) ([]uint16, error) {
	comma := bytes.IndexByte(line[:star], ',')
	if comma < 0 {
		return nil, formatErrorf("not enough values (%d): %q", n, line)
	}
	fields := strings.Split(string(line[comma+1:star]), ",")
	if len(fields) < n {
		return nil, formatErrorf("not enough values (%d): %q", n, line)
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseUint(strings.TrimSpace(fields[i]), 10, 16)
		if err != nil {
			return nil, formatErrorf("bad value %q in record %q", fields[i], line)
		}
		out[i] = uint16(v)
	}
	return out, nil
}

func parseTailNumber(line []byte) string {
	if len(line) <= 3 {
		return ""
	}
	rest := line[3:]
	if i := bytes.IndexByte(rest, '*'); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) > maxTailNumber {
		rest = rest[:maxTailNumber]
	}
	return string(rest)
}

// versionPatch builds the edits that replace the three-character firmware
// field of a $C line with label and fix the line checksum. Lines whose last
// field is not exactly three characters are left alone.
func versionPatch(line []byte, star, offset int, label string) []PatchEdit {
	ver := bytes.LastIndexByte(line[:star], ',')
	if ver < 0 {
		return nil
	}
	ver++
	for ver < star && line[ver] == ' ' {
		ver++
	}
	if star-ver != len(label) {
		common.Logf("firmware field in %q is not %d characters; version text left unchanged", line, len(label))
		return nil
	}
	patched := make([]byte, len(line))
	copy(patched, line)
	copy(patched[ver:], label)
	sum := []byte(fmt.Sprintf("%02X", LegacyChecksum(patched[1:star])))
	return []PatchEdit{
		newPatchEdit(int64(offset+ver), line[ver:star], []byte(label), "firmware version"),
		newPatchEdit(int64(offset+star+1), line[star+1:], sum, "header checksum"),
	}
}
