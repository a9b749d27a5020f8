package edm

import (
	"fmt"
	"os"
	"time"

	"example.com/edmdat/internal/common"
)

// File is the decoding context for one input file. It owns the file bytes
// and the parsed header; nothing is shared between files.
type File struct {
	Path   string
	Header *Header

	buf     []byte
	metrics *common.Metrics
}

// Open parses the header block of buf. The buffer is not modified.
func Open(path string, buf []byte) (*File, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, Header: h, buf: buf}, nil
}

// ReadFile loads path into memory and parses its header block.
func ReadFile(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(path, buf)
}

// Bytes returns the file contents.
func (f *File) Bytes() []byte {
	return f.buf
}

// SetMetrics attaches a metrics recorder.
func (f *File) SetMetrics(m *common.Metrics) {
	f.metrics = m
	if m != nil {
		m.AddFile(int64(len(f.buf)))
	}
}

// FlightSink receives the rows of one flight. Close is always called once
// the sink has been opened, including when decoding fails part way.
type FlightSink interface {
	// WriteSample must not keep s; it is updated in place for the next row.
	WriteSample(t time.Time, s *Snapshot) error
	// Finish is called after the last row with the time of that row.
	Finish(last time.Time) error
	Close() error
}

// SinkFactory opens the sink for a flight.
type SinkFactory func(fl *Flight) (FlightSink, error)

// DecodeOptions control Decode.
type DecodeOptions struct {
	// Flight restricts decoding to one flight number; zero decodes all.
	Flight uint16
	// Location is used to build sample times; nil means time.Local.
	Location *time.Location
}

// Decode walks every flight in index order, decompressing its records and
// feeding each emitted row to the sink returned by open.
func (f *File) Decode(opts DecodeOptions, open SinkFactory) error {
	cursor := f.Header.DataOffset
	for i, entry := range f.Header.Flights {
		end, err := flightRange(f.buf, cursor, entry)
		if err != nil {
			return err
		}
		if opts.Flight == 0 || opts.Flight == entry.Number {
			if err := f.decodeFlight(i, entry, cursor, end, opts, open); err != nil {
				return err
			}
		}
		cursor = end
	}
	return nil
}

func (f *File) decodeFlight(index int, entry FlightEntry, start, end int, opts DecodeOptions, open SinkFactory) error {
	cfg := f.Header.Config
	data := f.buf[start:end]

	hdr, err := ParseFlightHeader(data)
	if err != nil {
		return err
	}
	if !cfg.ValidChecksum(data[:FlightHeaderSize], data[FlightHeaderSize]) {
		return checksumErrorf("flight %d header at offset %d", entry.Number, start)
	}
	if hdr.Number != entry.Number {
		return formatErrorf("flight numbers don't match (%d header, %d index)", hdr.Number, entry.Number)
	}
	if cfg.Engines() > 1 && hdr.Flags&FeatHighCylinders != 0 {
		return formatErrorf("flight %d: twin-engine flight flags %#08x claim more than 6 cylinders", hdr.Number, uint32(hdr.Flags))
	}
	interval := hdr.Interval()
	hdr.IntervalSecs = uint16(interval / time.Second)

	t, err := hdr.Start(opts.Location)
	if err != nil {
		return err
	}

	fl := &Flight{
		Index:      index,
		Entry:      entry,
		Header:     hdr,
		Config:     cfg,
		TailNumber: f.Header.TailNumber,
		Start:      t,
		Interval:   interval,
		Offset:     start,
		End:        end,
	}
	sink, err := open(fl)
	if err != nil {
		return err
	}
	defer sink.Close()

	snap := NewSnapshot(cfg.Engines())
	last := t
	emit := func() error {
		if err := sink.WriteSample(t, snap); err != nil {
			return err
		}
		last = t
		t = t.Add(interval)
		return nil
	}

	pos := FlightHeaderSize + 1
	for len(data)-pos >= minRecordBytes {
		r, err := walkRecord(data[pos:])
		if err != nil {
			return fmt.Errorf("flight %d record at offset %d: %w", entry.Number, start+pos, err)
		}
		if r.decode[0] != r.decode[1] {
			common.Logf("flight %d record at offset %d: decode flags differ (%02x %02x)", entry.Number, start+pos, r.decode[0], r.decode[1])
			if f.metrics != nil {
				f.metrics.IncAnomaly()
			}
		}
		if r.scale[1] != 0 && cfg.Engines() == 1 {
			common.Logf("flight %d record at offset %d: second scale group on a single engine", entry.Number, start+pos)
			if f.metrics != nil {
				f.metrics.IncAnomaly()
			}
		}

		for n := 0; n < int(r.repeat); n++ {
			if err := emit(); err != nil {
				return err
			}
		}

		r.apply(snap, hdr.Flags)

		if !cfg.ValidChecksum(r.body, r.checksum) {
			return checksumErrorf("flight %d data record at offset %d", entry.Number, start+pos)
		}
		if err := emit(); err != nil {
			return err
		}
		if f.metrics != nil {
			f.metrics.AddRecord(int64(r.size()))
		}
		pos += r.size()
	}
	if f.metrics != nil {
		f.metrics.AddFlight()
	}
	return sink.Finish(last)
}
