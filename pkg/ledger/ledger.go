// Package ledger keeps the all-time list of booking rows that have been invoiced.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"github.com/yurifrl/courtbill/pkg/csv"
)

type Ledger struct {
	logger   *log.Logger
	path     string
	encoding encoding.Encoding
	table    *csv.Table
}

// Open reads the ledger at path. A missing file is an empty ledger with the given
// header, which is the header of the current export.
func Open(logger *log.Logger, path string, enc encoding.Encoding, header []string) (*Ledger, error) {
	l := &Ledger{logger: logger, path: path, encoding: enc}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("ledger not found, starting empty", "path", path)
		l.table = csv.NewTable(header, nil)
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	t, err := csv.Read(data, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	l.table = t
	logger.Debug("ledger loaded", "path", path, "rows", len(t.Rows))
	return l, nil
}

// Table is the ledger content as of the last successful Append.
func (l *Ledger) Table() *csv.Table {
	return l.table
}

// Append adds rows, laid out under header, and persists the ledger. The file is
// replaced atomically; on error neither the file nor the in-memory table change.
func (l *Ledger) Append(header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	next := &csv.Table{Header: l.table.Header, Rows: make([][]string, 0, len(l.table.Rows)+len(rows))}
	next.Rows = append(next.Rows, l.table.Rows...)
	for _, row := range rows {
		next.Rows = append(next.Rows, l.table.Rebase(header, row))
	}

	if err := l.write(next); err != nil {
		return err
	}
	l.table = next
	l.logger.Debug("ledger updated", "path", l.path, "appended", len(rows), "rows", len(next.Rows))
	return nil
}

func (l *Ledger) write(t *csv.Table) error {
	var buf bytes.Buffer
	if err := csv.Write(&buf, t, l.encoding); err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(l.path), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
