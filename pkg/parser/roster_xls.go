package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/yurifrl/courtbill/pkg/csv"
)

// maxRosterRows bounds how many rows are read from a workbook sheet.
const maxRosterRows = 5000

// ParseRosterXLS reads the first sheet of a legacy Excel membership list.
func (p *Parser) ParseRosterXLS(data []byte) (*csv.Table, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}

	return p.rosterTable(workbook.ReadAllCells(maxRosterRows))
}

// ParseRosterXLSX reads the first sheet of an Office Open XML membership list.
func (p *Parser) ParseRosterXLSX(data []byte) (*csv.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) > maxRosterRows {
		rows = rows[:maxRosterRows]
	}
	return p.rosterTable(rows)
}

// rosterTable takes the first row holding a Vorname cell as header.
func (p *Parser) rosterTable(rows [][]string) (*csv.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) == "Vorname" {
				p.logger.Debug("found roster header", "row", i, "columns", len(row))
				return csv.NewTable(row, rows[i+1:]), nil
			}
		}
	}
	return nil, fmt.Errorf("roster header not found")
}
