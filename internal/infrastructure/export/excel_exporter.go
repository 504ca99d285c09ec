// Package export renders board snapshots as spreadsheets.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
)

const (
	boardSheet   = "Board"
	detailsSheet = "Tasks"
)

var detailHeaders = []string{"Column", "Order", "Title", "Priority", "Assignee", "Due", "Module"}

// ExcelExporter writes a board as an xlsx workbook. The Board sheet lays the
// columns out left to right with task titles underneath in lane order; the
// Tasks sheet has one row per task.
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// ContentType returns the xlsx MIME type
func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension returns ".xlsx"
func (e *ExcelExporter) FileExtension() string {
	return ".xlsx"
}

// Export renders the snapshot
func (e *ExcelExporter) Export(snapshot *port.BoardSnapshot) ([]byte, error) {
	if snapshot == nil || snapshot.Board == nil {
		return nil, fmt.Errorf("empty board snapshot")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), boardSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := e.writeBoard(f, snapshot, headerStyle); err != nil {
		return nil, err
	}
	if err := e.writeDetails(f, snapshot, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Debug("Board workbook rendered",
		zap.String("board_id", snapshot.Board.ID),
		zap.Int("columns", len(snapshot.Columns)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeBoard(f *excelize.File, snapshot *port.BoardSnapshot, headerStyle int) error {
	for i, col := range snapshot.Columns {
		header, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(boardSheet, header, col.Name); err != nil {
			return fmt.Errorf("set column header: %w", err)
		}
		if err := f.SetCellStyle(boardSheet, header, header, headerStyle); err != nil {
			return fmt.Errorf("style column header: %w", err)
		}

		for row, task := range snapshot.Tasks[col.ID] {
			cell, err := excelize.CoordinatesToCellName(i+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(boardSheet, cell, task.Title); err != nil {
				return fmt.Errorf("set task cell: %w", err)
			}
		}

		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(boardSheet, name, name, 32); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}

func (e *ExcelExporter) writeDetails(f *excelize.File, snapshot *port.BoardSnapshot, headerStyle int) error {
	if err := f.SetSheetRow(detailsSheet, "A1", &detailHeaders); err != nil {
		return fmt.Errorf("set details header: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(detailHeaders))
	if err := f.SetCellStyle(detailsSheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style details header: %w", err)
	}

	row := 2
	for _, col := range snapshot.Columns {
		for _, task := range snapshot.Tasks[col.ID] {
			due := ""
			if task.DueDate != nil {
				due = task.DueDate.Format("2006-01-02")
			}
			values := []interface{}{
				col.Name,
				task.Order,
				task.Title,
				strings.ToUpper(string(task.Priority)),
				task.AssigneeID,
				due,
				string(task.ModuleTag),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(detailsSheet, cell, &values); err != nil {
				return fmt.Errorf("set details row: %w", err)
			}
			row++
		}
	}
	return nil
}

var _ port.BoardExporter = (*ExcelExporter)(nil)
