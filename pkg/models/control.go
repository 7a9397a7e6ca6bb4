// Package models contains domain models for controlnotes.
package models

// Positional layout of a catalog row. The first spreadsheet row is a header.
const (
	ControlColumn  = 1
	WeaknessColumn = 3
)

// ControlRecord is one row of the control catalog spreadsheet.
type ControlRecord struct {
	Fields    []string `json:"fields"`
	ControlID string   `json:"control_id"`
	Weakness  string   `json:"weakness"`
	Row       int      `json:"row"`
}

// NewControlRecord builds a record from the raw cells of a spreadsheet row.
// Returns false when the row has no identifier or the identifier cell is empty.
func NewControlRecord(row int, cells []string) (ControlRecord, bool) {
	if len(cells) <= ControlColumn || cells[ControlColumn] == "" {
		return ControlRecord{}, false
	}
	rec := ControlRecord{
		Row:       row,
		Fields:    cells,
		ControlID: cells[ControlColumn],
	}
	if len(cells) > WeaknessColumn {
		rec.Weakness = cells[WeaknessColumn]
	}
	return rec, true
}

// AnnotationRequest parameterizes a single call to the annotation generator.
type AnnotationRequest struct {
	ControlID          string
	IncludeRemediation bool
}
