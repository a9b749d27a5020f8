package common

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts decoding work across a batch. Counters may be bumped from
// any goroutine; the clock is guarded separately.
type Metrics struct {
	clock sync.Mutex
	start time.Time
	end   time.Time

	files     atomic.Int64
	fileBytes atomic.Int64
	flights   atomic.Int64
	records   atomic.Int64
	recBytes  atomic.Int64
	anomalies atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Start begins timing. Later calls are ignored until Stop.
func (m *Metrics) Start() {
	m.clock.Lock()
	defer m.clock.Unlock()
	if m.start.IsZero() || !m.end.IsZero() {
		m.start, m.end = time.Now(), time.Time{}
	}
}

func (m *Metrics) Stop() {
	m.clock.Lock()
	defer m.clock.Unlock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
}

// AddRecord counts one data record of size bytes.
func (m *Metrics) AddRecord(size int64) {
	if size <= 0 {
		return
	}
	m.records.Add(1)
	m.recBytes.Add(size)
}

func (m *Metrics) AddFlight() { m.flights.Add(1) }

// IncAnomaly counts a record that decoded but showed an unexpected pattern.
func (m *Metrics) IncAnomaly() { m.anomalies.Add(1) }

// AddFile counts another input file of size bytes.
func (m *Metrics) AddFile(size int64) {
	m.files.Add(1)
	if size > 0 {
		m.fileBytes.Add(size)
	}
}

// Snapshot returns the counters and the elapsed time so far.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.clock.Lock()
	var elapsed time.Duration
	switch {
	case m.start.IsZero():
	case m.end.IsZero():
		elapsed = time.Since(m.start)
	default:
		elapsed = m.end.Sub(m.start)
	}
	m.clock.Unlock()

	return MetricsSnapshot{
		Duration:   elapsed,
		Bytes:      m.recBytes.Load(),
		TotalBytes: m.fileBytes.Load(),
		Records:    m.records.Load(),
		Flights:    m.flights.Load(),
		Files:      m.files.Load(),
		Anomalies:  m.anomalies.Load(),
	}
}

type MetricsSnapshot struct {
	Duration   time.Duration
	Bytes      int64 // record bytes decoded
	TotalBytes int64 // input file bytes
	Records    int64
	Flights    int64
	Files      int64
	Anomalies  int64
}

// RecordsPerSecond is zero until some time has elapsed.
func (s MetricsSnapshot) RecordsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Records) / s.Duration.Seconds()
}

func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("duration=%s files=%d flights=%d records=%d anomalies=%d input=%s decoded=%s (%.0f records/s)",
		s.Duration.Round(time.Millisecond),
		s.Files,
		s.Flights,
		s.Records,
		s.Anomalies,
		FormatBytes(s.TotalBytes),
		FormatBytes(s.Bytes),
		s.RecordsPerSecond(),
	)
}

// FormatBytes renders b with binary unit prefixes.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	units := "KMGTPE"
	v := float64(b) / unit
	i := 0
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	return fmt.Sprintf("%.2f %ciB", v, units[i])
}
