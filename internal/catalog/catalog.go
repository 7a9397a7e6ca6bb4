// Package catalog loads the control catalog spreadsheet and answers lookups
// against the in-memory copy.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/controlnotes/pkg/models"
)

// ErrUnsupportedFormat is returned for spreadsheet files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Source is the loaded control catalog. The table is replaced as a whole on
// reload, so readers never observe a partially loaded file.
type Source struct {
	path    string
	group   singleflight.Group
	mu      sync.RWMutex
	records []models.ControlRecord
	loaded  bool
}

// New creates an empty Source for the spreadsheet at path. Call Load before use.
func New(path string) *Source {
	return &Source{path: path}
}

// NewFromRecords creates a Source over an already materialized table.
func NewFromRecords(records []models.ControlRecord) *Source {
	return &Source{records: records, loaded: true}
}

// Path returns the spreadsheet path.
func (s *Source) Path() string {
	return s.path
}

// Load reads the spreadsheet fully into memory. On failure the error is logged,
// the table is emptied and false is returned.
func (s *Source) Load(ctx context.Context) bool {
	return s.Reload(ctx)
}

// Reload re-reads the spreadsheet. Concurrent calls share a single read,
// which is not tied to any one caller's cancellation: a caller that goes away
// never empties the table for the others.
func (s *Source) Reload(ctx context.Context) bool {
	readCtx := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do("load", func() (interface{}, error) {
		records, err := ReadFile(readCtx, s.path)
		if err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("Failed to load control catalog")
			s.swap(nil, false)
			return false, nil
		}
		s.swap(records, true)
		log.Info().Str("path", s.path).Int("rows", len(records)).Msg("Control catalog loaded")
		return true, nil
	})
	return v.(bool)
}

func (s *Source) swap(records []models.ControlRecord, loaded bool) {
	s.mu.Lock()
	s.records = records
	s.loaded = loaded
	s.mu.Unlock()
}

// Loaded reports whether the last load succeeded.
func (s *Source) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len returns the number of rows carrying a control identifier.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FindWeakness returns the weakness description of the first row whose
// identifier equals controlID exactly.
func (s *Source) FindWeakness(controlID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ControlID == controlID {
			return s.records[i].Weakness, true
		}
	}
	return "", false
}

// ListControlIDs returns the distinct identifiers in first-occurrence order.
func (s *Source) ListControlIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.records))
	ids := make([]string, 0, len(s.records))
	for i := range s.records {
		id := s.records[i].ControlID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ReadFile reads a catalog spreadsheet. The first row is treated as a header.
func ReadFile(ctx context.Context, path string) ([]models.ControlRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

// toRecords skips the header row and rows without an identifier cell.
// Row numbers are 1-based spreadsheet rows.
func toRecords(rows [][]string) []models.ControlRecord {
	if len(rows) <= 1 {
		return nil
	}
	records := make([]models.ControlRecord, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if rec, ok := models.NewControlRecord(i+2, cells); ok {
			records = append(records, rec)
		}
	}
	return records
}
