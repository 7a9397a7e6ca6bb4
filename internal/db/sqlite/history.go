package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thebtf/controlnotes/pkg/models"
)

const selectColumns = `
	SELECT id, request_id, control, ai_control_description,
	       project_team_weakness_description, created_at, created_at_epoch
	FROM requests
`

// All returns every stored entry in insertion order.
func (r *Reader) All(ctx context.Context) ([]*models.HistoryEntry, error) {
	rows, err := r.QueryContext(ctx, selectColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return scanEntries(rows)
}

// ByControl returns the entries for one control in insertion order.
func (r *Reader) ByControl(ctx context.Context, control string) ([]*models.HistoryEntry, error) {
	rows, err := r.QueryContext(ctx, selectColumns+` WHERE control = ? ORDER BY id ASC`, control)
	if err != nil {
		return nil, fmt.Errorf("query history by control: %w", err)
	}
	return scanEntries(rows)
}

// Recent returns at most limit entries, most recent first.
func (r *Reader) Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		return []*models.HistoryEntry{}, nil
	}
	rows, err := r.QueryContext(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*models.HistoryEntry, error) {
	defer rows.Close()

	entries := make([]*models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.Control, &e.AIControlDescription,
			&e.WeaknessDescription, &e.CreatedAt, &e.CreatedAtEpoch,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
