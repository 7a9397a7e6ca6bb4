// Package gorm provides GORM-based persistence for the lookup history.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/controlnotes/pkg/models"
)

// Request is one stored control lookup.
type Request struct {
	ID                   int64          `gorm:"primaryKey;autoIncrement"`
	RequestID            string         `gorm:"type:text;uniqueIndex;not null"`
	Control              string         `gorm:"type:text;index;not null"`
	AIControlDescription string         `gorm:"column:ai_control_description;type:text;not null"`
	WeaknessDescription  sql.NullString `gorm:"column:project_team_weakness_description;type:text"`
	CreatedAt            string         `gorm:"not null"`
	CreatedAtEpoch       int64          `gorm:"index:idx_requests_created,sort:desc;not null"`
}

func (Request) TableName() string { return "requests" }

// BeforeCreate hook to ensure timestamps are set.
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.CreatedAtEpoch == 0 {
		r.CreatedAtEpoch = now.UnixMilli()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = now.Format(time.RFC3339)
	}
	return nil
}

func requestFromEntry(e *models.HistoryEntry) *Request {
	return &Request{
		RequestID:            e.RequestID,
		Control:              e.Control,
		AIControlDescription: e.AIControlDescription,
		WeaknessDescription:  e.WeaknessDescription,
		CreatedAt:            e.CreatedAt,
		CreatedAtEpoch:       e.CreatedAtEpoch,
	}
}

func (r *Request) toEntry() *models.HistoryEntry {
	return &models.HistoryEntry{
		ID:                   r.ID,
		RequestID:            r.RequestID,
		Control:              r.Control,
		AIControlDescription: r.AIControlDescription,
		WeaknessDescription:  r.WeaknessDescription,
		CreatedAt:            r.CreatedAt,
		CreatedAtEpoch:       r.CreatedAtEpoch,
	}
}

func toEntries(rows []Request) []*models.HistoryEntry {
	entries := make([]*models.HistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toEntry())
	}
	return entries
}
