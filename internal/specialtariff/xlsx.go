package specialtariff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX CROSS-REFERENCE LAYOUT
// =============================================================================

// ColumnLayout says which worksheet columns hold which program attributes.
// Column indices are 0-based (A=0, B=1, ...), rows are 0-based.
type ColumnLayout struct {
	Sheet string

	CountryColumn       int
	HTSPrefixColumn     int
	SpecialNumberColumn int
	ProgramTypeColumn   int
	PriorityColumn      int
	AutoIncludeColumn   int
	EffectiveFromColumn int
	EffectiveToColumn   int

	DataStartRow int
}

// DefaultColumnLayout matches the cross-reference export used by operations:
//
//	| A       | B          | C              | D            | E        | F            | G              | H            |
//	| Country | HTS Prefix | Special Number | Program Type | Priority | Auto Include | Effective From | Effective To |
func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		CountryColumn:       0,
		HTSPrefixColumn:     1,
		SpecialNumberColumn: 2,
		ProgramTypeColumn:   3,
		PriorityColumn:      4,
		AutoIncludeColumn:   5,
		EffectiveFromColumn: 6,
		EffectiveToColumn:   7,
		DataStartRow:        1,
	}
}

// =============================================================================
// LOADER
// =============================================================================

// LoadXLSX reads programs from a workbook. The first sheet is used unless the
// layout names one.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//   - layout: The column layout of the sheet.
//
// RETURNS:
//   - The programs in sheet order.
//   - An error if the workbook cannot be opened or a row is malformed.
func LoadXLSX(path string, layout ColumnLayout) ([]Program, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cross-reference workbook: %w", err)
	}
	defer f.Close()

	sheet := layout.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("cross-reference workbook has no sheets")
	}

	// Raw values keep date cells as serial numbers instead of locale strings.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	var programs []Program
	for i := layout.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		program, err := parseRow(row, layout)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		programs = append(programs, program)
	}

	return programs, nil
}

// parseRow extracts a Program from a single worksheet row.
func parseRow(row []string, layout ColumnLayout) (Program, error) {
	getCell := func(index int) string {
		if index >= 0 && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	p := Program{
		Country:       getCell(layout.CountryColumn),
		HTSPrefix:     getCell(layout.HTSPrefixColumn),
		SpecialNumber: getCell(layout.SpecialNumberColumn),
		ProgramType:   getCell(layout.ProgramTypeColumn),
		AutoInclude:   normalizeFlag(getCell(layout.AutoIncludeColumn)),
	}

	if raw := getCell(layout.PriorityColumn); raw != "" {
		priority, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Program{}, fmt.Errorf("invalid priority %q", raw)
		}
		p.Priority = &priority
	}

	var err error
	if p.EffectiveFrom, err = parseCellDate(getCell(layout.EffectiveFromColumn)); err != nil {
		return Program{}, fmt.Errorf("invalid effective from: %w", err)
	}
	if p.EffectiveTo, err = parseCellDate(getCell(layout.EffectiveToColumn)); err != nil {
		return Program{}, fmt.Errorf("invalid effective to: %w", err)
	}

	if err := validateProgram(p); err != nil {
		return Program{}, err
	}
	return p, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeFlag reads the yes/no spellings found in operations workbooks.
func normalizeFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "true", "1", "x":
		return true
	default:
		return false
	}
}

var cellDateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "1/2/06", "20060102"}

// parseCellDate accepts Excel serial dates as well as the common text forms.
func parseCellDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if len(value) != 8 {
		if serial, err := strconv.ParseFloat(value, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return nil, err
			}
			day := dayOf(t)
			return &day, nil
		}
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}

func validateProgram(p Program) error {
	if normalizeNumber(p.SpecialNumber) == "" {
		return fmt.Errorf("special number is required")
	}
	if p.AutoInclude && normalizeNumber(p.HTSPrefix) == "" {
		return fmt.Errorf("auto-include program %s has no HTS prefix", p.SpecialNumber)
	}
	if p.EffectiveFrom != nil && p.EffectiveTo != nil && p.EffectiveTo.Before(*p.EffectiveFrom) {
		return fmt.Errorf("program %s ends before it starts", p.SpecialNumber)
	}
	return nil
}
