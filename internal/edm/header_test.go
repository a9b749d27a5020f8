package edm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func headerLine(body string) string {
	return fmt.Sprintf("$%s*%02X\r\n", body, LegacyChecksum([]byte(body)))
}

func buildHeader(lines ...string) []byte {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(headerLine(l))
	}
	return []byte(b.String())
}

func standardHeader(firmware int) []byte {
	return buildHeader(
		"U,N12345",
		"A,150,120,500,450,60,1650,230,90",
		"F,0,92,10,2950,2950",
		"T,6,13,21,9,5,1",
		fmt.Sprintf("C,830,%d,%d,0,%d", 0x0000f87c, 0x0643, firmware),
		"D,101,30",
		"D,102,12",
		"L,0",
	)
}

func TestParseHeader(t *testing.T) {
	buf := append(standardHeader(310), 0xAA, 0xBB)
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.TailNumber != "N12345" {
		t.Fatalf("TailNumber = %q", h.TailNumber)
	}
	if h.Limits != (Limits{150, 120, 500, 450, 60, 1650, 230, 90}) {
		t.Fatalf("Limits = %+v", h.Limits)
	}
	if h.Fuel.Capacity != 92 || h.Fuel.KFactor2 != 2950 {
		t.Fatalf("Fuel = %+v", h.Fuel)
	}
	if h.Timestamp.Month != 6 || h.Timestamp.Minute != 5 {
		t.Fatalf("Timestamp = %+v", h.Timestamp)
	}
	if h.Config.Model != 830 || h.Config.Firmware != 310 {
		t.Fatalf("Config = %+v", h.Config)
	}
	if h.Config.Flags != Features(0x0643f87c) {
		t.Fatalf("Flags = 0x%08X", uint32(h.Config.Flags))
	}
	want := []FlightEntry{{Number: 101, Words: 30}, {Number: 102, Words: 12}}
	if len(h.Flights) != len(want) || h.Flights[0] != want[0] || h.Flights[1] != want[1] {
		t.Fatalf("Flights = %+v", h.Flights)
	}
	if h.DataOffset != len(buf)-2 {
		t.Fatalf("DataOffset = %d, want %d", h.DataOffset, len(buf)-2)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	good := headerLine("L,0")
	tests := []struct {
		name string
		buf  string
		want error
	}{
		{name: "missing dollar", buf: "U,N1*00\r\n" + good, want: ErrFormat},
		{name: "missing star", buf: "$U,N1\r\n" + good, want: ErrFormat},
		{name: "bad hex", buf: "$U,N1*ZZ\r\n" + good, want: ErrFormat},
		{name: "three hex digits", buf: "$L,0*" + fmt.Sprintf("%02X", LegacyChecksum([]byte("L,0"))) + "0\r\n", want: ErrFormat},
		{name: "checksum mismatch", buf: "$U,N1*00\r\n" + good, want: ErrChecksum},
		{name: "bare carriage return", buf: strings.TrimSuffix(headerLine("U,N1"), "\n") + "x" + good, want: ErrFormat},
		{name: "too few values", buf: headerLine("A,1,2,3") + good, want: ErrFormat},
		{name: "non numeric value", buf: headerLine("D,1,abc") + good, want: ErrFormat},
		{name: "no end record", buf: headerLine("U,N1"), want: ErrUnexpectedEOF},
		{name: "empty", buf: "", want: ErrUnexpectedEOF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader([]byte(tc.buf))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUnexpectedEOFIsFormatError(t *testing.T) {
	_, err := ParseHeader(buildHeader("U,N1"))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected a format error, got %v", err)
	}
}

func TestParseHeaderChecksumCoversEveryByte(t *testing.T) {
	buf := standardHeader(310)
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	for i := 0; i < h.DataOffset; i++ {
		switch buf[i] {
		case '$', '*', '\r', '\n':
			continue
		}
		mutated := append([]byte(nil), buf...)
		mutated[i] ^= 0x01
		if _, err := ParseHeader(mutated); err == nil {
			t.Fatalf("flipping byte %d (%q) went unnoticed", i, buf[i])
		}
	}
}

func TestParseHeaderFlightCapacity(t *testing.T) {
	lines := []string{"U,N1", "C,830,0,0,0,200"}
	for i := 1; i <= MaxFlights; i++ {
		lines = append(lines, fmt.Sprintf("D,%d,8", i))
	}
	h, err := ParseHeader(buildHeader(append(lines, "L,0")...))
	if err != nil {
		t.Fatalf("ParseHeader at capacity: %v", err)
	}
	if len(h.Flights) != MaxFlights {
		t.Fatalf("Flights = %d, want %d", len(h.Flights), MaxFlights)
	}

	lines = append(lines, fmt.Sprintf("D,%d,8", MaxFlights+1), "L,0")
	if _, err := ParseHeader(buildHeader(lines...)); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestParseHeaderSkipsUnknownRecords(t *testing.T) {
	h, err := ParseHeader(buildHeader("U,N1", "X,1,2,3", "L,7"))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.HeaderEnd != 7 {
		t.Fatalf("HeaderEnd = %d, want 7", h.HeaderEnd)
	}
}

func TestParseHeaderTruncatesTailNumber(t *testing.T) {
	h, err := ParseHeader(buildHeader("U,ABCDEFGHIJKLMNOPQRST", "L,0"))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.TailNumber != "ABCDEFGHIJKLMNO" {
		t.Fatalf("TailNumber = %q", h.TailNumber)
	}
}

func TestVersionPatch(t *testing.T) {
	buf := standardHeader(310)
	orig := append([]byte(nil), buf...)
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if !bytes.Equal(buf, orig) {
		t.Fatalf("ParseHeader modified its input")
	}
	if len(h.VersionPatch) != 2 {
		t.Fatalf("VersionPatch has %d edits, want 2", len(h.VersionPatch))
	}

	patched := append([]byte(nil), buf...)
	if err := ApplyEdits(patched, h.VersionPatch); err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if !bytes.Contains(patched, []byte(headerLine(fmt.Sprintf("C,830,%d,%d,0,299", 0x0000f87c, 0x0643)))) {
		t.Fatalf("patched header lacks the legacy version line:\n%s", patched)
	}
	h2, err := ParseHeader(patched)
	if err != nil {
		t.Fatalf("ParseHeader patched: %v", err)
	}
	if h2.Config.Firmware != 299 || h2.Config.CurrentChecksums() {
		t.Fatalf("patched config = %+v", h2.Config)
	}
	if len(h2.VersionPatch) != 0 {
		t.Fatalf("legacy firmware should not produce a version patch")
	}
}
