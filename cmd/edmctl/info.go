package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/report"
)

func infoCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("info")
	in := fs.String("in", "", "input .DAT/.JPI file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}
	if *in == "" {
		fmt.Fprintln(stdout, "required: --in")
		return errUsage
	}
	f, err := edm.ReadFile(*in)
	if err != nil {
		return err
	}
	writeInfo(stdout, f.Header)
	return nil
}

func writeInfo(w io.Writer, h *edm.Header) {
	cfg := h.Config
	scheme := cfg.Scheme()
	checksums := "legacy (XOR)"
	if cfg.CurrentChecksums() {
		checksums = "current (negated sum)"
	}

	t := newTable(w, "Field", "Value")
	t.Append([]string{"Aircraft", h.TailNumber})
	t.Append([]string{"Model", fmt.Sprintf("EDM-%d", cfg.Model)})
	t.Append([]string{"Firmware", strconv.Itoa(int(cfg.Firmware))})
	t.Append([]string{"Checksums", checksums})
	t.Append([]string{"Scheme threshold", strconv.Itoa(int(scheme.Threshold))})
	t.Append([]string{"Engines", strconv.Itoa(cfg.Engines())})
	t.Append([]string{"Cylinders", strconv.Itoa(cfg.Flags.Cylinders())})
	t.Append([]string{"Flags", fmt.Sprintf("0x%08X", uint32(cfg.Flags))})
	t.Append([]string{"Unknown", fmt.Sprintf("0x%04X", cfg.Unknown)})
	t.Append([]string{"Downloaded", fmt.Sprintf("%d/%d/%d %d:%02d", h.Timestamp.Month, h.Timestamp.Day, h.Timestamp.Year, h.Timestamp.Hour, h.Timestamp.Minute)})
	t.Render()

	l := h.Limits
	t = newTable(w, "Limit", "Value")
	for _, row := range []struct {
		name string
		v    uint16
	}{
		{"Volts high (x10)", l.VoltsHi}, {"Volts low (x10)", l.VoltsLo}, {"DIF", l.Dif}, {"CHT", l.CHT},
		{"CLD", l.CLD}, {"TIT", l.TIT}, {"Oil high", l.OilHi}, {"Oil low", l.OilLo},
	} {
		t.Append([]string{row.name, strconv.Itoa(int(row.v))})
	}
	t.Render()

	fu := h.Fuel
	t = newTable(w, "Fuel", "Value")
	t.Append([]string{"Warning 1", strconv.Itoa(int(fu.Warn1))})
	t.Append([]string{"Capacity", strconv.Itoa(int(fu.Capacity))})
	t.Append([]string{"Warning 2", strconv.Itoa(int(fu.Warn2))})
	t.Append([]string{"K-factor 1", strconv.Itoa(int(fu.KFactor1))})
	t.Append([]string{"K-factor 2", strconv.Itoa(int(fu.KFactor2))})
	t.Render()

	t = newTable(w, "Flight", "Words", "Bytes", "Report")
	for _, e := range h.Flights {
		t.Append([]string{
			strconv.Itoa(int(e.Number)),
			strconv.Itoa(int(e.Words)),
			strconv.Itoa(e.Bytes()),
			report.CSVName(e.Number, false),
		})
	}
	t.Render()
}

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(headers)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}
