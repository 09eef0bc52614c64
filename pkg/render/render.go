// Package render prints invoice drafts as PDF for review before a run is applied.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/yurifrl/courtbill/pkg/models"
)

const (
	pageWidth = 190.0
	titleCol  = 120.0
	qtyCol    = 20.0
	priceCol  = 50.0
)

// Invoice renders one invoice as an A4 PDF.
func Invoice(inv *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 covers umlauts and the euro sign
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pageWidth, 10, tr("Rechnung "+inv.Number), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if !inv.Date.IsZero() {
		pdf.CellFormat(pageWidth, 6, "Datum: "+inv.Date.Format(models.DateLayout), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	for _, line := range strings.Split(inv.Receiver, "\r\n") {
		pdf.CellFormat(pageWidth, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(titleCol, 7, "Posten", "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyCol, 7, "Menge", "1", 0, "C", true, 0, "")
	pdf.CellFormat(priceCol, 7, "Betrag", "1", 1, "R", true, 0, "")

	for _, item := range inv.Items {
		pdf.SetFont("Arial", "", 9)
		y := pdf.GetY()
		pdf.MultiCell(titleCol, 5, tr(item.Title), "LTR", "L", false)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(titleCol, 4, tr(item.Description), "LBR", "L", false)
		h := pdf.GetY() - y

		pdf.SetXY(10+titleCol, y)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(qtyCol, h, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(priceCol, h, tr(euro(item.Total().StringFixed(2))), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(titleCol+qtyCol, 8, "Summe", "1", 0, "L", true, 0, "")
	pdf.CellFormat(priceCol, 8, tr(euro(inv.TotalPrice.StringFixed(2))), "1", 1, "R", true, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(pageWidth, 5, "Zahlungsart: "+inv.PaymentInformation, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the invoice into dir and returns the file path.
func WriteFile(dir, name string, inv *models.Invoice) (string, error) {
	data, err := Invoice(inv)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create pdf dir: %w", err)
	}
	path := filepath.Join(dir, FileName(inv.Number, name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}
	return path, nil
}

// FileName builds a file-system safe name like "2024-632_Anna_Muster.pdf".
func FileName(number, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			return -1
		}
		return r
	}, name)
	return fmt.Sprintf("%s_%s.pdf", number, clean)
}

func euro(amount string) string {
	return strings.Replace(amount, ".", ",", 1) + " €"
}
