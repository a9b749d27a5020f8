package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"gonum.org/v1/gonum/floats"
)

const qrImageName = "source-sha256"

// SaveSummaryPDF renders the per-flight channel statistics of a file.
func SaveSummaryPDF(sum FileSummary, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Flight Summary", false)
	pdf.SetAuthor("edmctl", false)
	pdf.SetCreator("edmctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Flight Summary")
	if err := addFileSection(pdf, sum); err != nil {
		return err
	}
	if len(sum.Flights) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No flights decoded.", "", "L", false)
	}
	for _, fl := range sum.Flights {
		addFlightSection(pdf, fl)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addFileSection(pdf *gofpdf.Fpdf, sum FileSummary) error {
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "File", value: emptyFallback(sum.Path, "-")},
		{label: "Aircraft", value: emptyFallback(sum.TailNumber, "-")},
		{label: "Instrument", value: fmt.Sprintf("EDM-%d V %d", sum.Model, sum.Firmware)},
		{label: "Flights", value: strconv.Itoa(len(sum.Flights))},
		{label: "SHA-256", value: emptyFallback(sum.SHA256, "-")},
	}
	for _, item := range items {
		pdf.CellFormat(30, 6, item.label, "", 0, "L", false, 0, "")
		pdf.MultiCell(110, 6, item.value, "", "L", false)
	}
	bottom := pdf.GetY()

	if sum.SHA256 != "" {
		png, err := HashToQR(sum.SHA256, 256)
		if err != nil {
			return err
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
		pdf.ImageOptions(qrImageName, 160, top, 30, 30, false, opts, 0, "")
		if top+32 > bottom {
			pdf.SetY(top + 32)
		}
	}
	pdf.Ln(4)
	return nil
}

func addFlightSection(pdf *gofpdf.Fpdf, fl FlightSummary) {
	pdf.SetFont("Helvetica", "B", 12)
	header := fmt.Sprintf("Flight #%d  %s", fl.Number, fl.Start.Format("2006-01-02 15:04:05"))
	pdf.Cell(0, 8, header)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	meta := fmt.Sprintf("Duration %s, interval %s, %d rows, %d marks",
		fl.Duration.Round(time.Second), fl.Interval, fl.Rows, fl.Marks)
	pdf.MultiCell(0, 5, meta, "", "L", false)
	pdf.Ln(2)

	headers := []string{"Channel", "Samples", "NA", "Min", "Max", "Mean", "Std Dev"}
	widths := []float64{30, 22, 18, 26, 26, 29, 29}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for n, ch := range fl.Channels {
		// Shade alternate rows; NA-only channels are greyed out.
		pdf.SetFillColor(248, 248, 248)
		if ch.Samples == 0 {
			pdf.SetTextColor(150, 150, 150)
		}
		cells := []string{
			ch.Name,
			strconv.Itoa(ch.Samples),
			strconv.Itoa(ch.NA),
			statValue(ch, ch.Min),
			statValue(ch, ch.Max),
			statValue(ch, ch.Mean),
			statValue(ch, ch.StdDev),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 5, c, "LR", 0, align, n%2 == 1, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.CellFormat(floats.Sum(widths), 0, "", "T", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func statValue(ch ChannelStats, v float64) string {
	if ch.Samples == 0 {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
