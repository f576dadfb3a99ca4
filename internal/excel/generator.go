package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/lab-review/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes one page of contracts with their result badges.
func (g *Generator) Generate(page model.ContractPage) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := sheetName(page.Stage)
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Stage")
	set("B1", page.Stage.String())
	set("A2", "Page")
	set("B2", page.Page)
	set("A3", "Total contracts")
	set("B3", page.Total)

	tableRow := 5
	headers := []string{
		"ID",
		"Number",
		"Client",
		"Worker price",
		"Deadline",
		"Laboratory tests",
		"Result",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, contract := range page.Items {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), int64(contract.ID))
		set(fmt.Sprintf("B%d", row), contract.Number)
		set(fmt.Sprintf("C%d", row), contract.ClientName)
		set(fmt.Sprintf("D%d", row), fmt.Sprintf("%.2f", contract.WorkerPrice))
		set(fmt.Sprintf("E%d", row), formatDate(contract.Deadline))
		set(fmt.Sprintf("F%d", row), joinTests(contract.Laboratory))
		set(fmt.Sprintf("G%d", row), resultLabel(contract.ResultStatus))
	}

	_ = file.SetColWidth(sheet, "A", "A", 8)
	_ = file.SetColWidth(sheet, "B", "B", 16)
	_ = file.SetColWidth(sheet, "C", "C", 32)
	_ = file.SetColWidth(sheet, "D", "E", 14)
	_ = file.SetColWidth(sheet, "F", "F", 40)
	_ = file.SetColWidth(sheet, "G", "G", 18)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func FileName(stage model.Stage, page int, now time.Time) string {
	return fmt.Sprintf("contracts-%s-p%d-%s.xlsx", stage.String(), page, now.Format("20060102"))
}

func sheetName(stage model.Stage) string {
	switch stage {
	case model.StageNew:
		return "New"
	case model.StagePending:
		return "Pending"
	case model.StageCompleted:
		return "Completed"
	default:
		return "Contracts"
	}
}

func resultLabel(status model.ResultStatus) string {
	switch status {
	case model.ResultNone:
		return "No result"
	case model.ResultWaiting:
		return "Waiting"
	case model.ResultRejected:
		return "Rejected"
	default:
		return ""
	}
}

func joinTests(tests []model.LabTest) string {
	names := make([]string, 0, len(tests))
	for _, test := range tests {
		if name := strings.TrimSpace(test.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
