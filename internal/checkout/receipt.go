package checkout

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jcmexdev/classic-carry/internal/catalog"
)

const qrSize = 256

// Receipt renders an order as a one-page A4 PDF.
func Receipt(o *Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Classic Carry order "+o.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Classic Carry", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Order "+o.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, o.CreatedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range []struct {
		w     float64
		title string
		align string
	}{
		{95, "Item", "L"},
		{20, "Qty", "C"},
		{35, "Price", "R"},
		{40, "Total", "R"},
	} {
		pdf.CellFormat(col.w, 8, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range o.Items {
		pdf.CellFormat(95, 7, tr(lineLabel(l.Name, l.Color)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprint(l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, catalog.FormatPrice(l.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, catalog.FormatPrice(l.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	delivery := catalog.FormatPrice(o.Delivery)
	if o.Delivery == 0 {
		delivery = "FREE"
	}
	for _, row := range [][2]string{
		{"Subtotal", catalog.FormatPrice(o.Subtotal)},
		{"Delivery", delivery},
		{"Total", catalog.FormatPrice(o.GrandTotal)},
	} {
		if row[0] == "Total" {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(150, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, row[1], "", 1, "R", false, 0, "")
	}

	if c := o.Customer; c != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Delivery Information", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range []string{
			c.FullName(),
			c.Phone,
			c.Email,
			c.Address,
			c.City + ", " + c.Province + " " + c.PostalCode,
			c.DeliveryNotes,
		} {
			if line != "" {
				pdf.MultiCell(0, 6, tr(line), "", "L", false)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("checkout: render receipt %s: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

// QRCode encodes link as a PNG so the chat can be opened from a phone.
func QRCode(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("checkout: encode qr code: %w", err)
	}
	return png, nil
}
