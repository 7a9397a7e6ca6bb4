// Package models contains domain models for controlnotes.
package models

import (
	"database/sql"
	"time"

	json "github.com/goccy/go-json"
)

// HistoryEntry is a persisted control lookup.
type HistoryEntry struct {
	CreatedAt            string         `db:"created_at" json:"created_at"`
	RequestID            string         `db:"request_id" json:"request_id"`
	Control              string         `db:"control" json:"control"`
	AIControlDescription string         `db:"ai_control_description" json:"ai_control_description"`
	WeaknessDescription  sql.NullString `db:"project_team_weakness_description" json:"project_team_weakness_description,omitempty"`
	ID                   int64          `db:"id" json:"id"`
	CreatedAtEpoch       int64          `db:"created_at_epoch" json:"created_at_epoch"`
}

// NewHistoryEntry creates an entry stamped with the current time.
// A nil weakness is stored as NULL.
func NewHistoryEntry(requestID, control, annotation string, weakness *string) *HistoryEntry {
	now := time.Now()
	e := &HistoryEntry{
		RequestID:            requestID,
		Control:              control,
		AIControlDescription: annotation,
		CreatedAt:            now.Format(time.RFC3339),
		CreatedAtEpoch:       now.UnixMilli(),
	}
	if weakness != nil {
		e.WeaknessDescription = sql.NullString{String: *weakness, Valid: true}
	}
	return e
}

// Weakness returns the weakness description and whether one was stored.
func (e *HistoryEntry) Weakness() (string, bool) {
	return e.WeaknessDescription.String, e.WeaknessDescription.Valid
}

// HistoryEntryJSON is a JSON-friendly representation of HistoryEntry.
type HistoryEntryJSON struct {
	WeaknessDescription  *string `json:"project_team_weakness_description"`
	CreatedAt            string  `json:"created_at"`
	RequestID            string  `json:"request_id"`
	Control              string  `json:"control"`
	AIControlDescription string  `json:"ai_control_description"`
	ID                   int64   `json:"id"`
	CreatedAtEpoch       int64   `json:"created_at_epoch"`
}

// MarshalJSON implements json.Marshaler for HistoryEntry.
// A missing weakness description is encoded as null.
func (e *HistoryEntry) MarshalJSON() ([]byte, error) {
	j := HistoryEntryJSON{
		ID:                   e.ID,
		RequestID:            e.RequestID,
		Control:              e.Control,
		AIControlDescription: e.AIControlDescription,
		CreatedAt:            e.CreatedAt,
		CreatedAtEpoch:       e.CreatedAtEpoch,
	}
	if e.WeaknessDescription.Valid {
		w := e.WeaknessDescription.String
		j.WeaknessDescription = &w
	}
	return json.Marshal(j)
}
