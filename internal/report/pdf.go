package report

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	margin        = 14.0
	rowHeight     = 8.0
	categoryWidth = 22.0
	sessionWidth  = 16.0
	absenceWidth  = 22.0
	minNameWidth  = 40.0
	// Past this many session columns the page turns landscape.
	portraitSessions = 5
)

type rgb struct{ r, g, b int }

var (
	brandBlue = rgb{66, 133, 244}
	green     = rgb{34, 197, 94}
	red       = rgb{239, 68, 68}
	stripe    = rgb{245, 245, 245}
	muted     = rgb{100, 100, 100}
	faint     = rgb{150, 150, 150}
	white     = rgb{255, 255, 255}
	black     = rgb{0, 0, 0}
)

// Options controls the PDF header block and footer timestamp.
type Options struct {
	Title    string
	LogoPath string
	Now      time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Attendance Report"
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

func orientation(sessions int) string {
	if sessions > portraitSessions {
		return "L"
	}
	return "P"
}

// RenderPDF writes m as an A4 table.
func RenderPDF(w io.Writer, m Matrix, opts Options) error {
	pdf := buildPDF(m, opts)
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func buildPDF(m Matrix, opts Options) *fpdf.Fpdf {
	opts = opts.withDefaults()
	pdf := fpdf.New(orientation(len(m.Sessions)), "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	generated := "Generated on " + opts.Now.Format("January 2, 2006 at 3:04 PM")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "", 8)
		setText(pdf, faint)
		pdf.CellFormat(0, 4, generated, "", 0, "L", false, 0, "")
		pdf.SetX(margin)
		pdf.CellFormat(0, 4, "Page "+strconv.Itoa(pdf.PageNo())+" of {nb}", "", 0, "R", false, 0, "")
	})

	widths := columnWidths(pageW-2*margin, len(m.Sessions))
	headers := m.Headers()
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		setFill(pdf, brandBlue)
		setText(pdf, white)
		for i, h := range headers {
			pdf.CellFormat(widths[i], rowHeight, tr(h), "", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.AddPage()
	drawTitle(pdf, opts, m.Audience.Subtitle(), pageW)
	pdf.SetY(margin + 22)
	drawHeader()

	bottom := pageH - margin - 6
	for i, row := range m.Rows {
		if pdf.GetY()+rowHeight > bottom {
			pdf.AddPage()
			drawHeader()
		}
		striped := i%2 == 1
		setFill(pdf, stripe)

		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, black)
		pdf.CellFormat(widths[0], rowHeight, tr(row.Attendee.FullName), "", 0, "C", striped, 0, "")
		pdf.CellFormat(widths[1], rowHeight, string(row.Attendee.Category), "", 0, "C", striped, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		for j := range m.Sessions {
			if row.Present[j] {
				setText(pdf, green)
			} else {
				setText(pdf, red)
			}
			pdf.CellFormat(widths[2+j], rowHeight, row.Cell(j), "", 0, "C", striped, 0, "")
		}

		if row.Absences > 0 {
			setText(pdf, red)
		} else {
			pdf.SetFont("Helvetica", "", 10)
			setText(pdf, black)
		}
		pdf.CellFormat(widths[len(widths)-1], rowHeight, strconv.Itoa(row.Absences), "", 1, "C", striped, 0, "")
	}
	return pdf
}

func drawTitle(pdf *fpdf.Fpdf, opts Options, subtitle string, pageW float64) {
	if opts.LogoPath != "" {
		if _, err := os.Stat(opts.LogoPath); err != nil {
			slog.Warn("report logo unavailable", "path", opts.LogoPath, "error", err)
		} else {
			pdf.ImageOptions(opts.LogoPath, margin, margin, 0, 12, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
			if err := pdf.Error(); err != nil {
				slog.Warn("report logo skipped", "path", opts.LogoPath, "error", err)
				pdf.ClearError()
			}
		}
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 20)
	setText(pdf, brandBlue)
	pdf.SetXY(margin, margin+3)
	pdf.CellFormat(pageW-2*margin, 8, tr(opts.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, muted)
	pdf.SetXY(margin, margin+11)
	pdf.CellFormat(pageW-2*margin, 5, subtitle, "", 1, "C", false, 0, "")
}

// columnWidths gives the name column whatever the fixed columns leave over.
func columnWidths(usable float64, sessions int) []float64 {
	fixed := categoryWidth + absenceWidth + float64(sessions)*sessionWidth
	name := usable - fixed
	session := sessionWidth
	if name < minNameWidth {
		name = minNameWidth
		if sessions > 0 {
			session = (usable - name - categoryWidth - absenceWidth) / float64(sessions)
		}
	}
	widths := make([]float64, 0, sessions+3)
	widths = append(widths, name, categoryWidth)
	for i := 0; i < sessions; i++ {
		widths = append(widths, session)
	}
	return append(widths, absenceWidth)
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
