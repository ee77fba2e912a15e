package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Renderer draws paginated blocks into a PDF. The creation timestamp is
// pinned so rendering the same blocks twice yields identical bytes.
type Renderer struct {
	layout Layout
	stamp  time.Time
}

func NewRenderer(layout Layout) *Renderer {
	return &Renderer{
		layout: layout,
		stamp:  time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Render paginates blocks and writes the PDF to w.
func (r *Renderer) Render(blocks []Block, w io.Writer) error {
	pages := Paginate(blocks, r.layout)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(r.stamp)
	pdf.SetModificationDate(r.stamp)
	pdf.SetMargins(r.layout.MarginLeft, r.layout.MarginTop, r.layout.MarginRight)
	pdf.SetAutoPageBreak(false, 0)

	imgSeq := 0
	for _, page := range pages {
		pdf.AddPage()
		for _, b := range page {
			r.renderBlock(pdf, b, &imgSeq)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (r *Renderer) renderBlock(pdf *fpdf.Fpdf, b Block, imgSeq *int) {
	width := r.layout.UsableWidth()

	switch v := b.(type) {
	case Heading:
		if v.Level <= 1 {
			pdf.SetFont("Helvetica", "B", 18)
			pdf.CellFormat(width, r.layout.HeadingHeight[0], v.Text, "", 1, "C", false, 0, "")
		} else {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetFillColor(235, 235, 235)
			pdf.CellFormat(width, r.layout.HeadingHeight[1], v.Text, "", 1, "L", true, 0, "")
		}

	case KeyValues:
		pdf.SetFont("Helvetica", "", 10)
		keyWidth := width * 0.3
		for _, p := range v.Pairs {
			if p.Key == "" {
				pdf.CellFormat(width, r.layout.PairHeight, p.Value, "", 1, "L", false, 0, "")
				continue
			}
			val := p.Value
			if val == "" {
				val = "-"
			}
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(keyWidth, r.layout.PairHeight, p.Key, "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(width-keyWidth, r.layout.PairHeight, val, "", 1, "L", false, 0, "")
		}

	case Table:
		widths := v.Widths
		if len(widths) != len(v.Headers) {
			widths = make([]float64, len(v.Headers))
			for i := range widths {
				widths[i] = 1 / float64(len(v.Headers))
			}
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(225, 225, 225)
		for i, h := range v.Headers {
			pdf.CellFormat(width*widths[i], r.layout.TableHeaderHeight, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, row := range v.Rows {
			for i := range v.Headers {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				pdf.CellFormat(width*widths[i], r.layout.TableRowHeight, cell, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}

	case Spacer:
		pdf.Ln(v.Height)

	case Image:
		if !r.renderImage(pdf, v, imgSeq) {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(width, r.layout.PairHeight, v.Caption+" (unavailable)", "", 1, "L", false, 0, "")
			pdf.Ln(v.Height)
			return
		}
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(width, r.layout.PairHeight, v.Caption, "", 1, "L", false, 0, "")
	}
}

// renderImage decodes the base64 payload and places it at the cursor.
// Returns false when the payload cannot be decoded, letting the caller fall
// back to text.
func (r *Renderer) renderImage(pdf *fpdf.Fpdf, img Image, imgSeq *int) bool {
	payload := img.B64
	imageType := "PNG"
	if i := strings.Index(payload, ";base64,"); i >= 0 {
		header := payload[:i]
		payload = payload[i+len(";base64,"):]
		if strings.Contains(header, "jpeg") || strings.Contains(header, "jpg") {
			imageType = "JPG"
		}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return false
	}

	*imgSeq++
	name := fmt.Sprintf("img-%d", *imgSeq)
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if pdf.Err() {
		// Undecodable image data. Clear the error so the rest of the
		// document still renders.
		pdf.ClearError()
		return false
	}

	x := pdf.GetX()
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, img.Width, img.Height, false, opts, 0, "")
	pdf.SetY(y + img.Height)
	return true
}
