package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/lab-review/internal/model"
	"github.com/nurpe/lab-review/internal/review"
)

// Generator renders the review history of a contract: every round with the
// decisions attached to it.
type Generator struct {
	fontName string
	now      func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica", now: time.Now}
}

func (g *Generator) Generate(session review.Session) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Review history, contract #%d", session.ContractID)), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generated %s", formatDateTime(g.now()))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	summary := []string{
		fmt.Sprintf("Result status: %s", statusLabel(session.Status)),
		fmt.Sprintf("Result document: %s", documentLabel(session.FinalDocument, session.HasResult)),
		fmt.Sprintf("Review rounds: %d", len(session.Tasks)),
		fmt.Sprintf("Actionable task: %s", actionableLabel(session.ActionableTaskID)),
	}
	for _, line := range summary {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(3)

	if len(session.Tasks) == 0 {
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 6, tr("No review rounds yet."), "", "L", false)
	}

	headers := []string{"Date", "From", "To", "Status", "Comments"}
	colWidths := []float64{32, 30, 30, 25, 63}
	for i, task := range session.Tasks {
		pdf.SetFont(g.fontName, "B", 11)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("Round %d, task %d (%s)", i+1, task.ID, safeValue(task.Status))), "", 1, "L", false, 0, "")
		if strings.TrimSpace(task.Comments) != "" {
			pdf.SetFont(g.fontName, "", 10)
			pdf.MultiCell(0, 5, tr(task.Comments), "", "L", false)
		}
		if len(task.Items) == 0 {
			pdf.SetFont(g.fontName, "", 10)
			pdf.MultiCell(0, 5, tr("Waiting for a decision."), "", "L", false)
			pdf.Ln(2)
			continue
		}
		drawTableRow(pdf, g.fontName, tr, headers, colWidths, true)
		for _, item := range task.Items {
			row := []string{
				formatTime(item.CreatedAt),
				safeValue(item.FromUser),
				safeValue(item.ToUser),
				safeValue(item.Status),
				safePointer(item.Comments),
			}
			drawTableRow(pdf, g.fontName, tr, row, colWidths, false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName is the attachment name for a contract's review history.
func FileName(contractID model.ID) string {
	return fmt.Sprintf("review_%d.pdf", contractID)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		text := tr(col)
		if !header {
			text = truncate(pdf, text, widths[i]-2)
		}
		pdf.CellFormat(widths[i], 7, text, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func statusLabel(status model.ResultStatus) string {
	switch status {
	case model.ResultNone:
		return "no result"
	case model.ResultWaiting:
		return "waiting for review"
	case model.ResultRejected:
		return "rejected"
	default:
		return "-"
	}
}

func documentLabel(doc *model.FinalDocument, hasResult bool) string {
	switch {
	case doc != nil && doc.DocumentID.Valid():
		return fmt.Sprintf("document %d %s", doc.DocumentID, doc.FileName)
	case doc != nil || hasResult:
		return "submitted"
	default:
		return "not submitted"
	}
}

func actionableLabel(id *model.ID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func safePointer(value *string) string {
	if value == nil {
		return "-"
	}
	return safeValue(*value)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatDateTime(*t)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}
