package main

import (
	"fmt"
	"io"
	"path/filepath"

	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/report"
)

func summaryCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("summary")
	var cf commonFlags
	cf.register(fs)
	in := fs.String("in", "", "input .DAT/.JPI file")
	flight := fs.Uint16("flight", 0, "summarise only this flight number")
	pdfOut := fs.String("pdf", "", "PDF output path")
	jsonOut := fs.String("json", "", "JSON output path")
	fromJSON := fs.String("from-json", "", "load a summary saved with --json instead of decoding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*in == "") == (*fromJSON == "") {
		fmt.Fprintln(stdout, "required: exactly one of --in or --from-json")
		return errUsage
	}
	cfg, closeLog, err := cf.setup()
	if err != nil {
		return err
	}
	defer closeLog()

	var sum report.FileSummary
	if *fromJSON != "" {
		if sum, err = report.LoadSummaryJSON(*fromJSON); err != nil {
			return fmt.Errorf("read json: %w", err)
		}
		sum.Flights = selectFlight(sum.Flights, *flight)
	} else {
		loc, err := cfg.location()
		if err != nil {
			return fmt.Errorf("time zone: %w", err)
		}
		if sum, err = summarize(*in, edm.DecodeOptions{Flight: *flight, Location: loc}); err != nil {
			return err
		}
	}
	if len(sum.Flights) == 0 && *flight != 0 {
		return fmt.Errorf("flight %d not found", *flight)
	}
	for _, fl := range sum.Flights {
		fmt.Fprintf(stdout, "Flight #%d %s: %d rows over %s\n", fl.Number, fl.Start.Format("2006-01-02 15:04:05"), fl.Rows, fl.Duration)
	}
	if *jsonOut != "" {
		if err := report.SaveSummaryJSON(sum, *jsonOut); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", *jsonOut)
	}
	if *pdfOut != "" {
		if err := report.SaveSummaryPDF(sum, *pdfOut); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", *pdfOut)
	}
	return nil
}

func summarize(path string, opts edm.DecodeOptions) (report.FileSummary, error) {
	f, err := edm.ReadFile(path)
	if err != nil {
		return report.FileSummary{}, err
	}
	var stats report.StatsCollector
	if err := f.Decode(opts, stats.Sinks()); err != nil {
		return report.FileSummary{}, fmt.Errorf("%s: %w", path, err)
	}
	return report.FileSummary{
		Path:       filepath.Base(path),
		SHA256:     common.Sha256OfBytes(f.Bytes()),
		TailNumber: f.Header.TailNumber,
		Model:      f.Header.Config.Model,
		Firmware:   f.Header.Config.Firmware,
		Flights:    stats.Flights,
	}, nil
}

func selectFlight(flights []report.FlightSummary, number uint16) []report.FlightSummary {
	if number == 0 {
		return flights
	}
	for _, fl := range flights {
		if fl.Number == number {
			return []report.FlightSummary{fl}
		}
	}
	return nil
}
