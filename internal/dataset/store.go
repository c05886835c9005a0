package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrNotFound means no dataset has been persisted yet
var ErrNotFound = errors.New("dataset not found")

// Store persists a league dataset
type Store interface {
	Load(ctx context.Context) (*Table, error)
	Save(ctx context.Context, t *Table) error
}

// Formats selects the files FileStore.Save writes
type Formats struct {
	CSV  bool
	XLSX bool
}

// FileStore keeps the dataset as CSV and/or XLSX files. The CSV copy is
// the one read back on Load; XLSX is only read when no CSV exists.
type FileStore struct {
	csvPath  string
	xlsxPath string
	formats  Formats
}

// NewFileStore creates a file dataset store. When formats selects nothing,
// both configured files are written.
func NewFileStore(csvPath, xlsxPath string, formats Formats) *FileStore {
	if !formats.CSV && !formats.XLSX {
		formats = Formats{CSV: true, XLSX: true}
	}
	return &FileStore{csvPath: csvPath, xlsxPath: xlsxPath, formats: formats}
}

// Load reads the persisted dataset
func (s *FileStore) Load(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.csvPath != "" {
		t, err := ReadCSV(s.csvPath)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return t, err
		}
	}
	if s.xlsxPath != "" {
		return ReadXLSX(s.xlsxPath)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, s.csvPath)
}

// Save writes the dataset in every selected format
func (s *FileStore) Save(ctx context.Context, t *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.formats.CSV && s.csvPath != "" {
		if err := WriteCSV(s.csvPath, t); err != nil {
			return err
		}
		log.Printf("[Dataset] Wrote %d rows to %s", t.Len(), s.csvPath)
	}
	if s.formats.XLSX && s.xlsxPath != "" {
		if err := WriteXLSX(s.xlsxPath, t); err != nil {
			return err
		}
		log.Printf("[Dataset] Wrote %d rows to %s", t.Len(), s.xlsxPath)
	}
	return nil
}
