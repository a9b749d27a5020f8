package archive

import (
	"fmt"
	"time"

	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/report"
)

// Sinks returns a factory that archives every decoded flight of the import.
// Rows are buffered and written in one transaction when the flight finishes.
func (imp *Import) Sinks() edm.SinkFactory {
	return func(fl *edm.Flight) (edm.FlightSink, error) {
		var cols []report.Column
		for _, c := range report.Columns(fl.Header.Flags, fl.Engines()) {
			if !c.IsMarker() {
				cols = append(cols, c)
			}
		}
		return &flightSink{imp: imp, flight: fl, cols: cols}, nil
	}
}

type sampleValue struct {
	seq     int
	ts      time.Time
	channel string
	value   *float64
	mark    bool
}

type flightSink struct {
	imp    *Import
	flight *edm.Flight
	cols   []report.Column
	rows   int
	values []sampleValue
}

func (s *flightSink) WriteSample(t time.Time, snap *edm.Snapshot) error {
	mark := snap.Mark()
	for _, c := range s.cols {
		sv := sampleValue{seq: s.rows, ts: t, channel: c.Title, mark: mark}
		if v, ok := c.Float(snap); ok {
			sv.value = &v
		}
		s.values = append(s.values, sv)
	}
	s.rows++
	return nil
}

func (s *flightSink) Finish(last time.Time) error {
	tx, err := s.imp.db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	fl := s.flight
	if _, err := tx.Exec(`INSERT OR REPLACE INTO flights (
		import_id, number, start, interval_secs, flags, rows, duration_secs
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.imp.ID, fl.Header.Number, fl.Start, int(fl.Interval/time.Second), uint32(fl.Header.Flags), s.rows, last.Sub(fl.Start).Seconds(),
	); err != nil {
		return fmt.Errorf("failed to insert flight %d: %w", fl.Header.Number, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO samples (
		import_id, flight, seq, ts, channel, value, mark
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range s.values {
		var value interface{}
		if v.value != nil {
			value = *v.value
		}
		if _, err := stmt.Exec(s.imp.ID, fl.Header.Number, v.seq, v.ts, v.channel, value, v.mark); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.values = nil
	return nil
}

func (s *flightSink) Close() error {
	s.values = nil
	return nil
}
