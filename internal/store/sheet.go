package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cheapeats/internal/model"
)

// DefaultSheetName is the worksheet deals are kept in.
const DefaultSheetName = "Deals"

// SheetStore keeps deals in one worksheet of an .xlsx workbook: a header row
// followed by one row per deal.
type SheetStore struct {
	path  string
	sheet string
	mu    sync.RWMutex
}

// NewSheet returns a store over the workbook at path. The file need not exist
// yet. An empty sheet name selects DefaultSheetName, falling back to the
// first worksheet when reading.
func NewSheet(path, sheet string) *SheetStore {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &SheetStore{path: path, sheet: sheet}
}

// ActiveDeals reads every row after the header, skipping rows with no
// content at all. A missing workbook reads as empty.
func (s *SheetStore) ActiveDeals(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.Candidate{}, nil
	}

	header := rows[0]
	out := make([]model.Candidate, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		c := model.CandidateFromRow(header, row)
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// LastAdded returns the dateAdded of the first data row.
func (s *SheetStore) LastAdded(ctx context.Context) (string, error) {
	rows, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) < 2 {
		return "", nil
	}
	return model.CandidateFromRow(rows[0], rows[1]).String("dateAdded"), nil
}

// SaveDeals rewrites the workbook with a header and deals. The new file is
// written beside the old one and renamed over it.
func (s *SheetStore) SaveDeals(ctx context.Context, deals []model.StoredDeal) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "sheet: save deals")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(s.sheet)
	if err != nil {
		return eris.Wrap(err, "sheet: add sheet")
	}
	writeRow(sheet, model.StoredColumns)
	for _, d := range deals {
		writeRow(sheet, d.Row())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "sheet: create directory")
	}
	tmp, err := os.CreateTemp(dir, ".deals-*.xlsx")
	if err != nil {
		return eris.Wrap(err, "sheet: create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck

	if err := f.Save(tmpPath); err != nil {
		return eris.Wrap(err, "sheet: write workbook")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return eris.Wrap(err, "sheet: replace workbook")
	}
	return nil
}

// Close is a no-op.
func (s *SheetStore) Close() error { return nil }

func (s *SheetStore) read(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "sheet: read")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open workbook")
	}

	sheet, ok := f.Sheet[s.sheet]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, nil
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
