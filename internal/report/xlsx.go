package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rpsboard/internal/roster"
)

// SheetName is the worksheet the scoreboard is written to.
const SheetName = "Scoreboard"

// WriteXLSX writes the scoreboard as a workbook with one row per participant.
func WriteXLSX(w io.Writer, summary roster.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"Rank", "Player", "Score", "Winner"}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range summary.Rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := []any{row.Rank, row.Name, row.RankScore()}
		if row.Rank == 1 {
			cells = append(cells, "yes")
		}
		if err := f.SetSheetRow(SheetName, axis, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
