package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"

	"github.com/yurifrl/courtbill/pkg/csv"
)

type FileType string

const (
	CourtbookingCSV FileType = "courtbooking_csv"
	RosterXLS       FileType = "roster_xls"
	RosterXLSX      FileType = "roster_xlsx"
)

type Parser struct {
	logger   *log.Logger
	encoding encoding.Encoding
}

func New(logger *log.Logger, enc encoding.Encoding) *Parser {
	return &Parser{
		logger:   logger,
		encoding: enc,
	}
}

// ReadFile loads an export from disk into a raw table.
func (p *Parser) ReadFile(path string) (*csv.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ProcessBytes(data, filepath.Base(path))
}

func (p *Parser) ProcessBytes(data []byte, filename string) (*csv.Table, error) {
	fileType := detectType(filename)
	p.logger.Debug("detected file type", "type", fileType, "filename", filename)

	switch fileType {
	case CourtbookingCSV:
		return csv.Read(data, p.encoding)
	case RosterXLS:
		return p.ParseRosterXLS(data)
	case RosterXLSX:
		return p.ParseRosterXLSX(data)
	default:
		p.logger.Debug("unknown file type", "filename", filename)
		return nil, fmt.Errorf("unknown file type: %s", filename)
	}
}

func detectType(filename string) FileType {
	lowerFilename := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lowerFilename, ".csv"), strings.HasSuffix(lowerFilename, ".txt"):
		return CourtbookingCSV
	case strings.HasSuffix(lowerFilename, ".xls"):
		return RosterXLS
	case strings.HasSuffix(lowerFilename, ".xlsx"):
		return RosterXLSX
	}
	return ""
}
