package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/noah-isme/backend-tour/internal/invoice"
	"github.com/noah-isme/backend-tour/internal/itinerary"
	"github.com/noah-isme/backend-tour/internal/pricing"
)

const (
	pageMargin  = 10.0
	lineHeight  = 6.0
	colDesc     = 100.0
	colQty      = 16.0
	colUnit     = 37.0
	colTotal    = 37.0
	qrImageSize = 28.0
)

// Renderer produces invoice and quote documents from already computed values.
type Renderer struct {
	CompanyName    string
	CompanyAddress string
	// PaymentNote is printed under the totals, typically bank details.
	PaymentNote string
}

// NewRenderer returns a Renderer for the given company.
func NewRenderer(companyName, companyAddress, paymentNote string) *Renderer {
	return &Renderer{CompanyName: companyName, CompanyAddress: companyAddress, PaymentNote: paymentNote}
}

// InvoicePDF renders a single invoice. The QR code encodes the reference and
// the amount due.
func (r *Renderer) InvoicePDF(inv invoice.Invoice) ([]byte, error) {
	pdf := newDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.header(pdf, tr, "INVOICE")
	qr, err := qrcode.Encode(fmt.Sprintf("%s|%s", inv.Reference(), inv.Total.String()), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode invoice qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 210-pageMargin-qrImageSize, pageMargin, qrImageSize, qrImageSize, false, opts, 0, "")

	pdf.SetFont("Arial", "", 10)
	meta := [][2]string{
		{"Reference", inv.Reference()},
		{"Date", inv.Date},
		{"Due date", inv.DueDate},
		{"Status", strings.ToUpper(string(inv.Status))},
		{"Bill to", inv.CustomerName},
		{"Email", inv.CustomerEmail},
	}
	for _, row := range meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(30, lineHeight, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, lineHeight, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	itemsTable(pdf, tr, inv.Items)
	totalsBlock(pdf, tr, inv.Totals())
	r.footer(pdf, tr)
	return output(pdf)
}

// QuotePDF renders a priced quote for an itinerary: a day by day programme
// followed by the projected line items and totals.
func (r *Renderer) QuotePDF(it itinerary.TourItinerary, items []invoice.Item, totals invoice.Totals) ([]byte, error) {
	pdf := newDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.header(pdf, tr, "QUOTATION")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, lineHeight+1, tr(it.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Start date: %s   Travellers: %d   Days: %d", it.StartDate, it.NumberOfPeople, len(it.Days))), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, day := range it.Days {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Day %d", day.Day)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, line := range day.Lines() {
			pdf.CellFormat(6, lineHeight-1, "", "", 0, "L", false, 0, "")
			pdf.MultiCell(0, lineHeight-1, tr(line), "", "L", false)
		}
	}
	if len(it.TourGuides) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, lineHeight, "Tour guides", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, g := range it.TourGuides {
			pdf.CellFormat(6, lineHeight-1, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, lineHeight-1, tr(g.Name), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	itemsTable(pdf, tr, items)
	totalsBlock(pdf, tr, totals)
	r.footer(pdf, tr)
	return output(pdf)
}

func newDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf
}

func (r *Renderer) header(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	if r.CompanyName != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, lineHeight, tr(r.CompanyName), "", 1, "L", false, 0, "")
	}
	if r.CompanyAddress != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, lineHeight-1, tr(r.CompanyAddress), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) footer(pdf *gofpdf.Fpdf, tr func(string) string) {
	if r.PaymentNote == "" {
		return
	}
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, lineHeight-1, tr(r.PaymentNote), "", "L", false)
}

func itemsTable(pdf *gofpdf.Fpdf, tr func(string) string, items []invoice.Item) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(colDesc, lineHeight+1, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQty, lineHeight+1, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colUnit, lineHeight+1, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colTotal, lineHeight+1, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, item := range items {
		lines := pdf.SplitLines([]byte(tr(item.Description)), colDesc-2)
		if len(lines) == 0 {
			lines = [][]byte{nil}
		}
		height := float64(len(lines)) * (lineHeight - 1)
		x, y := pdf.GetXY()
		pdf.MultiCell(colDesc, lineHeight-1, tr(item.Description), "1", "L", false)
		pdf.SetXY(x+colDesc, y)
		pdf.CellFormat(colQty, height, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colUnit, height, pricing.FormatIDR(item.UnitPrice.Money()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, height, pricing.FormatIDR(item.Total.Money()), "1", 1, "R", false, 0, "")
	}
}

func totalsBlock(pdf *gofpdf.Fpdf, tr func(string) string, totals invoice.Totals) {
	labelWidth := colDesc + colQty + colUnit
	rows := []struct {
		label string
		value pricing.Amount
		bold  bool
	}{
		{"Subtotal", totals.Subtotal, false},
		{"Tax (5%)", totals.Tax, false},
		{"Total", totals.Total, true},
	}
	pdf.Ln(2)
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(row.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, lineHeight, pricing.FormatIDR(row.value.Money()), "", 1, "R", false, 0, "")
	}
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
