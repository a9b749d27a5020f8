package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
)

const (
	// durationPlaceholder is written before the flight length is known and
	// later overwritten in place by durationPatch.
	durationPlaceholder = "\"Duration  0.00Hours   Interval %d seconds    \"\n"
	durationPatch       = "\"Duration %5.2f"
	// maxDurationHours keeps the patched text within the placeholder.
	maxDurationHours = 99.99

	markToken = "\"S\""
)

// CSVName returns the report file name for a flight.
func CSVName(number uint16, noSuffix bool) string {
	suffix := "-HACK"
	if noSuffix {
		suffix = ""
	}
	return fmt.Sprintf("F%05d%s.CSV", number, suffix)
}

// IntroLines returns the banner lines written before the column titles.
// The duration line is the last one.
func IntroLines(fl *edm.Flight, now time.Time) []string {
	hdr := fl.Header
	month, day, year := hdr.DecodeDate()
	hour, min, sec := hdr.DecodeTime()
	oat := "C"
	if hdr.OATFahrenheit() {
		oat = "F"
	}
	units := fmt.Sprintf("\"Eng Deg F     OAT Deg %s ", oat)
	if hdr.Flags.Has(edm.FeatFF) {
		units += "    F/F GPH"
	}
	units += "\"\n"
	return []string{
		fmt.Sprintf("\"EZSave     %02d/%02d/%02d\"\n", int(now.Month()), now.Day(), now.Year()%100),
		fmt.Sprintf("\"EDM-%4d V %3d J.P.Instruments  (C) 1998\"\n", fl.Config.Model, fl.Config.Firmware),
		fmt.Sprintf("\"Aircraft Number %s\"\n", fl.TailNumber),
		fmt.Sprintf("\"Flight #%d %d/%d/%d %d:%d:%d\"\n", hdr.Number, month, day, year, hour, min, sec),
		units,
		fmt.Sprintf(durationPlaceholder, hdr.IntervalSecs),
	}
}

// TitleRow returns the column title line, including the trailing comma the
// vendor tool writes.
func TitleRow(cols []Column) string {
	var b strings.Builder
	b.WriteString("\"TIME\"")
	for _, c := range cols {
		b.WriteString(",\"")
		b.WriteString(c.Title)
		b.WriteString("\"")
	}
	b.WriteString(",\n")
	return b.String()
}

// FormatRow renders one data row. The mark token closes every row whether or
// not the mark column is titled.
func FormatRow(t time.Time, s *edm.Snapshot, cols []Column) string {
	var b strings.Builder
	hour, min, sec := t.Clock()
	fmt.Fprintf(&b, "\"%d:%d:%d\"", hour, min, sec)
	for _, c := range cols {
		if c.IsMarker() {
			continue
		}
		v, scale, ok := c.Raw(s)
		if !ok {
			b.WriteString(",\"NA\"")
			continue
		}
		b.WriteByte(',')
		b.WriteString(FormatScaled(v, scale))
	}
	b.WriteByte(',')
	if s.Mark() {
		b.WriteString(markToken)
	}
	b.WriteByte('\n')
	return b.String()
}

// DurationText returns the text overwriting the start of the duration line.
func DurationText(d time.Duration) string {
	hours := d.Hours()
	if hours < 0 {
		hours = 0
	}
	if hours > maxDurationHours {
		common.Warnf("flight duration %.2f hours does not fit the report header", hours)
		hours = maxDurationHours
	}
	return fmt.Sprintf(durationPatch, hours)
}

// WriteAtWriter is a sequential writer that also supports positioned writes,
// such as *os.File.
type WriteAtWriter interface {
	io.Writer
	io.WriterAt
}

// CSVWriter writes one flight as a CSV report. It implements edm.FlightSink.
type CSVWriter struct {
	dst    WriteAtWriter
	bw     *bufio.Writer
	closer io.Closer
	flight *edm.Flight
	cols   []Column

	written        int64
	durationOffset int64
}

// NewCSVWriter writes the banner and column titles for fl to dst. now is the
// export date shown in the first line.
func NewCSVWriter(dst WriteAtWriter, fl *edm.Flight, now time.Time) (*CSVWriter, error) {
	w := &CSVWriter{
		dst:    dst,
		bw:     bufio.NewWriter(dst),
		flight: fl,
		cols:   Columns(fl.Header.Flags, fl.Engines()),
	}
	if c, ok := dst.(io.Closer); ok {
		w.closer = c
	}
	intro := IntroLines(fl, now)
	for i, line := range intro {
		if i == len(intro)-1 {
			w.durationOffset = w.written
		}
		if err := w.writeString(line); err != nil {
			return nil, err
		}
	}
	if err := w.writeString(TitleRow(w.cols)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *CSVWriter) writeString(s string) error {
	n, err := w.bw.WriteString(s)
	w.written += int64(n)
	return err
}

// WriteSample appends one data row.
func (w *CSVWriter) WriteSample(t time.Time, s *edm.Snapshot) error {
	return w.writeString(FormatRow(t, s, w.cols))
}

// Finish flushes the rows and patches the duration line with the time
// between the flight start and last.
func (w *CSVWriter) Finish(last time.Time) error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	_, err := w.dst.WriteAt([]byte(DurationText(last.Sub(w.flight.Start))), w.durationOffset)
	return err
}

// Close flushes any buffered rows and closes the destination if it is a
// closer.
func (w *CSVWriter) Close() error {
	err := w.bw.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// CSVOptions configure CSVSinks.
type CSVOptions struct {
	// Dir receives the report files.
	Dir string
	// NoSuffix drops the -HACK suffix from report names.
	NoSuffix bool
	// Now supplies the export date; nil means time.Now.
	Now func() time.Time
	// Created is called with the path of every report opened.
	Created func(path string)
}

// CSVSinks returns a factory creating one report file per flight.
func CSVSinks(opts CSVOptions) edm.SinkFactory {
	return func(fl *edm.Flight) (edm.FlightSink, error) {
		now := time.Now()
		if opts.Now != nil {
			now = opts.Now()
		}
		if opts.Dir != "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return nil, err
			}
		}
		path := filepath.Join(opts.Dir, CSVName(fl.Header.Number, opts.NoSuffix))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("unable to open output file %s: %w", path, err)
		}
		w, err := NewCSVWriter(f, fl, now)
		if err != nil {
			f.Close()
			return nil, err
		}
		if opts.Created != nil {
			opts.Created(path)
		}
		return w, nil
	}
}
