package leads

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{"Name", "Email", "Role", "Industry", "Score", "Percentage", "Tier", "Date"}

const exportSheet = "Assessments"

// ExportFilename is the download name for an export made at now, for example
// assessments_2026-03-01.csv.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("assessments_%s.%s", now.UTC().Format(time.DateOnly), ext)
}

type exportRow struct {
	name, email, role, industry string
	score, percentage           int
	tier                        string
	date                        string
}

func (s *Store) exportRows(records []Record) []exportRow {
	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		res := s.Result(r)
		date := r.InsertedAt
		if t := r.insertedAt(); !t.IsZero() {
			date = t.Format(time.DateOnly)
		}
		rows = append(rows, exportRow{
			name:       r.ContactName,
			email:      r.ContactEmail,
			role:       r.ContactRole,
			industry:   r.ContactIndustry,
			score:      r.ScoreTotal,
			percentage: res.Percentage,
			tier:       res.Tier.String(),
			date:       date,
		})
	}
	return rows
}

// WriteCSV writes records as CSV with a header row.
func (s *Store) WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, row := range s.exportRows(records) {
		err := cw.Write([]string{
			row.name,
			row.email,
			row.role,
			row.industry,
			strconv.Itoa(row.score),
			strconv.Itoa(row.percentage),
			row.tier,
			row.date,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX renders records as a single-sheet workbook.
func (s *Store) XLSX(records []Record, logger *slog.Logger) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("closing xlsx file", "error", err)
		}
	}()

	sheet := "Sheet1"
	row, err := writeHeader(f, sheet, 0, exportHeaders)
	if err != nil {
		return nil, fmt.Errorf("writing xlsx header: %w", err)
	}

	for _, r := range s.exportRows(records) {
		row++
		values := []any{r.name, r.email, r.role, r.industry, r.score, r.percentage, r.tier, r.date}
		for col, v := range values {
			if err := writeCell(f, sheet, col+1, row, v); err != nil {
				return nil, fmt.Errorf("writing xlsx row %d: %w", row, err)
			}
		}
	}

	if err := f.SetSheetName(sheet, exportSheet); err != nil {
		return nil, fmt.Errorf("naming xlsx sheet: %w", err)
	}
	return f.WriteToBuffer()
}

func writeCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return row, err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return row, err
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 24); err != nil {
		return row, err
	}
	for i, h := range headers {
		if err := writeCell(f, sheet, i+1, row, h); err != nil {
			return row, err
		}
	}
	return row, nil
}
