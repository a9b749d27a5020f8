package report

import (
	"errors"
	"time"

	"example.com/edmdat/internal/edm"
)

type teeSink []edm.FlightSink

// Tee combines sink factories so every flight feeds all of them. A nil
// factory is skipped.
func Tee(factories ...edm.SinkFactory) edm.SinkFactory {
	return func(fl *edm.Flight) (edm.FlightSink, error) {
		var sinks teeSink
		for _, open := range factories {
			if open == nil {
				continue
			}
			s, err := open(fl)
			if err != nil {
				sinks.Close()
				return nil, err
			}
			sinks = append(sinks, s)
		}
		return sinks, nil
	}
}

func (t teeSink) WriteSample(ts time.Time, s *edm.Snapshot) error {
	for _, sink := range t {
		if err := sink.WriteSample(ts, s); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Finish(last time.Time) error {
	for _, sink := range t {
		if err := sink.Finish(last); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Close() error {
	var errs []error
	for _, sink := range t {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
