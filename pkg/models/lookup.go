package models

// LookupResult is what a completed lookup hands to the presentation layer.
type LookupResult struct {
	Weakness    *string  `json:"weakness"`
	RequestID   string   `json:"request_id"`
	Control     string   `json:"control"`
	Annotation  string   `json:"annotation"`
	Suggestions []string `json:"suggestions,omitempty"` // similar identifiers when not found
	Persisted   bool     `json:"persisted"`
}

// HasWeakness reports whether the catalog supplied a weakness description.
func (r *LookupResult) HasWeakness() bool {
	return r.Weakness != nil
}

// WeaknessText returns the weakness description or an empty string.
func (r *LookupResult) WeaknessText() string {
	if r.Weakness == nil {
		return ""
	}
	return *r.Weakness
}
