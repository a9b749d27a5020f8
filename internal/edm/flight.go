package edm

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// FlightHeaderSize is the on-disk size of a flight header, not counting
	// its checksum byte.
	FlightHeaderSize = 14

	minIntervalSecs     = 2
	maxIntervalSecs     = 512
	defaultIntervalSecs = 6

	// oatFahrenheitBit is the bit of FlightHeader.Unknown that appears to
	// select Fahrenheit OAT.
	oatFahrenheitBit = 0x20
)

// FlightHeader is the fixed record at the start of every flight block.
type FlightHeader struct {
	Number       uint16
	Flags        Features
	Unknown      uint16
	IntervalSecs uint16
	Date         uint16 // day:5 month:4 year:7
	Time         uint16 // secs/2:5 mins:6 hours:5
}

// ParseFlightHeader decodes the big-endian header words at the start of b.
func ParseFlightHeader(b []byte) (FlightHeader, error) {
	var h FlightHeader
	if len(b) < FlightHeaderSize {
		return h, fmt.Errorf("%w: flight header needs %d bytes, have %d", ErrUnexpectedEOF, FlightHeaderSize, len(b))
	}
	h.Number = binary.BigEndian.Uint16(b[0:2])
	h.Flags = Features(uint32(binary.BigEndian.Uint16(b[2:4])) | uint32(binary.BigEndian.Uint16(b[4:6]))<<16)
	h.Unknown = binary.BigEndian.Uint16(b[6:8])
	h.IntervalSecs = binary.BigEndian.Uint16(b[8:10])
	h.Date = binary.BigEndian.Uint16(b[10:12])
	h.Time = binary.BigEndian.Uint16(b[12:14])
	return h, nil
}

// DecodeDate unpacks the flight date. Year is the raw two-digit value.
func (h FlightHeader) DecodeDate() (month, day, year int) {
	day = int(h.Date & 0x001f)
	month = int(h.Date&0x01e0) >> 5
	year = int(h.Date&0xfe00) >> 9
	return
}

// DecodeTime unpacks the flight start time.
func (h FlightHeader) DecodeTime() (hour, min, sec int) {
	sec = int(h.Time&0x001f) * 2
	min = int(h.Time&0x07e0) >> 5
	hour = int(h.Time&0xf800) >> 11
	return
}

// Start returns the flight start time in loc. Two-digit years below 50 are
// taken as 20xx.
func (h FlightHeader) Start(loc *time.Location) (time.Time, error) {
	month, day, year := h.DecodeDate()
	hour, min, sec := h.DecodeTime()
	if month < 1 || month > 12 {
		return time.Time{}, formatErrorf("flight %d has invalid month %d", h.Number, month)
	}
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, loc), nil
}

// OATFahrenheit reports the OAT unit heuristic.
func (h FlightHeader) OATFahrenheit() bool {
	return h.Unknown&oatFahrenheitBit != 0
}

// Interval returns the sample interval, replacing implausible values with
// the six second default.
func (h FlightHeader) Interval() time.Duration {
	secs := h.IntervalSecs
	if secs < minIntervalSecs || secs > maxIntervalSecs {
		secs = defaultIntervalSecs
	}
	return time.Duration(secs) * time.Second
}

// Flight is one decoded flight block handed to a FlightSink.
type Flight struct {
	Index      int
	Entry      FlightEntry
	Header     FlightHeader
	Config     Config
	TailNumber string
	Start      time.Time
	Interval   time.Duration

	// Offset and End delimit the flight's bytes within the file buffer.
	Offset int
	End    int
}

// Engines returns the number of engines recorded.
func (f *Flight) Engines() int {
	return f.Config.Engines()
}

// flightRange returns the byte range of flight i starting at cursor.
func flightRange(buf []byte, cursor int, entry FlightEntry) (int, error) {
	end := cursor + entry.Bytes()
	if end > len(buf) {
		return 0, fmt.Errorf("%w: flight %d data runs past end of file", ErrUnexpectedEOF, entry.Number)
	}
	if end-cursor < FlightHeaderSize+1 {
		return 0, formatErrorf("flight %d data length too short", entry.Number)
	}
	return end, nil
}
