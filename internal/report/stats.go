package report

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"example.com/edmdat/internal/edm"
)

// ChannelStats summarises one report column over a flight. NA samples are
// excluded and counted separately.
type ChannelStats struct {
	Name    string  `json:"name"`
	Samples int     `json:"samples"`
	NA      int     `json:"na"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
}

// FlightSummary is the statistics of one decoded flight.
type FlightSummary struct {
	Number   uint16         `json:"number"`
	Start    time.Time      `json:"start"`
	Duration time.Duration  `json:"duration"`
	Interval time.Duration  `json:"interval"`
	Rows     int            `json:"rows"`
	Marks    int            `json:"marks"`
	Channels []ChannelStats `json:"channels"`
}

// FileSummary is the statistics of every decoded flight in a file.
type FileSummary struct {
	Path       string          `json:"path"`
	SHA256     string          `json:"sha256"`
	TailNumber string          `json:"tailNumber"`
	Model      uint16          `json:"model"`
	Firmware   uint16          `json:"firmware"`
	Flights    []FlightSummary `json:"flights"`
}

// StatsCollector accumulates per-flight channel statistics.
type StatsCollector struct {
	Flights []FlightSummary
}

// Sinks returns a factory feeding the collector.
func (c *StatsCollector) Sinks() edm.SinkFactory {
	return func(fl *edm.Flight) (edm.FlightSink, error) {
		cols := Columns(fl.Header.Flags, fl.Engines())
		data := make([]channel, 0, len(cols))
		for _, col := range cols {
			if col.IsMarker() {
				continue
			}
			data = append(data, channel{col: col})
		}
		return &statsSink{owner: c, flight: fl, channels: data}, nil
	}
}

type channel struct {
	col    Column
	values []float64
	na     int
}

type statsSink struct {
	owner    *StatsCollector
	flight   *edm.Flight
	channels []channel
	rows     int
	marks    int
}

func (s *statsSink) WriteSample(_ time.Time, snap *edm.Snapshot) error {
	s.rows++
	if snap.Mark() {
		s.marks++
	}
	for i := range s.channels {
		ch := &s.channels[i]
		v, ok := ch.col.Float(snap)
		if !ok {
			ch.na++
			continue
		}
		ch.values = append(ch.values, v)
	}
	return nil
}

func (s *statsSink) Finish(last time.Time) error {
	sum := FlightSummary{
		Number:   s.flight.Header.Number,
		Start:    s.flight.Start,
		Duration: last.Sub(s.flight.Start),
		Interval: s.flight.Interval,
		Rows:     s.rows,
		Marks:    s.marks,
	}
	for _, ch := range s.channels {
		sum.Channels = append(sum.Channels, ch.stats())
	}
	s.owner.Flights = append(s.owner.Flights, sum)
	return nil
}

func (s *statsSink) Close() error { return nil }

func (ch channel) stats() ChannelStats {
	out := ChannelStats{Name: ch.col.Title, Samples: len(ch.values), NA: ch.na}
	if len(ch.values) == 0 {
		return out
	}
	out.Min = floats.Min(ch.values)
	out.Max = floats.Max(ch.values)
	out.Mean, out.StdDev = stat.MeanStdDev(ch.values, nil)
	if len(ch.values) == 1 {
		out.StdDev = 0
	}
	return out
}
