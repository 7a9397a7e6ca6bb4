package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	gormdb "github.com/thebtf/controlnotes/internal/db/gorm"
	"github.com/thebtf/controlnotes/pkg/models"
)

// seedDB writes entries through the GORM store so the reader is exercised
// against the schema the server creates.
func seedDB(t *testing.T, entries ...*models.HistoryEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_entries.db")

	store, err := gormdb.NewStore(gormdb.Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	history := gormdb.NewHistoryStore(store)
	for _, e := range entries {
		_, err := history.Append(context.Background(), e)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())
	return path
}

func entry(control, annotation string, weakness *string) *models.HistoryEntry {
	return models.NewHistoryEntry(uuid.NewString(), control, annotation, weakness)
}

// ReaderSuite is a test suite for Reader operations.
type ReaderSuite struct {
	suite.Suite
	reader *Reader
}

// SetupTest seeds a database and opens it read-only.
func (s *ReaderSuite) SetupTest() {
	weakness := "AC-2 weakness text"
	path := seedDB(s.T(),
		entry("AC-2", "first", &weakness),
		entry("AC-3", "second", nil),
		entry("AC-2", "third", nil),
	)
	reader, err := OpenReader(path)
	s.Require().NoError(err)
	s.reader = reader
}

// TearDownTest closes the reader.
func (s *ReaderSuite) TearDownTest() {
	if s.reader != nil {
		_ = s.reader.Close()
	}
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderSuite))
}

// TestAll tests that every row is returned in insertion order.
func (s *ReaderSuite) TestAll() {
	all, err := s.reader.All(context.Background())
	s.Require().NoError(err)
	s.Require().Len(all, 3)

	s.Equal("first", all[0].AIControlDescription)
	s.Equal("third", all[2].AIControlDescription)
	s.Less(all[0].ID, all[1].ID)

	w, ok := all[0].Weakness()
	s.True(ok)
	s.Equal("AC-2 weakness text", w)
	_, ok = all[1].Weakness()
	s.False(ok)
}

// TestByControl tests exact-match filtering.
func (s *ReaderSuite) TestByControl() {
	tests := []struct {
		control string
		want    []string
	}{
		{control: "AC-2", want: []string{"first", "third"}},
		{control: "AC-3", want: []string{"second"}},
		{control: "ac-2", want: []string{}},
		{control: "AC-2' OR '1'='1", want: []string{}},
	}
	for _, tt := range tests {
		s.Run(tt.control, func() {
			entries, err := s.reader.ByControl(context.Background(), tt.control)
			s.Require().NoError(err)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.AIControlDescription)
			}
			s.Equal(tt.want, got)
		})
	}
}

// TestRecent tests ordering and limits.
func (s *ReaderSuite) TestRecent() {
	recent, err := s.reader.Recent(context.Background(), 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("third", recent[0].AIControlDescription)
	s.Equal("second", recent[1].AIControlDescription)

	none, err := s.reader.Recent(context.Background(), 0)
	s.Require().NoError(err)
	s.Empty(none)
}

// TestGetStmt tests prepared statement caching.
func (s *ReaderSuite) TestGetStmt() {
	stmt, err := s.reader.GetStmt("SELECT 1")
	s.Require().NoError(err)
	again, err := s.reader.GetStmt("SELECT 1")
	s.Require().NoError(err)
	s.Same(stmt, again)

	_, err = s.reader.GetStmt("SELECT * FROM nonexistent_table WHERE")
	s.Error(err)
}

func TestOpenReader_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	reader, err := OpenReader(path)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.Nil(t, reader)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "reader must not create the file")
}

func TestReader_RejectsWrites(t *testing.T) {
	reader, err := OpenReader(seedDB(t))
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.db.Exec(`DELETE FROM requests`)
	assert.Error(t, err)
}
