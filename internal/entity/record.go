package entity

import "time"

// Record is one row produced by the selector extractor: the configured field
// names mapped to their cleaned text, in field order.
type Record struct {
	URL       string    `json:"url"`
	Fields    []Field   `json:"fields"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Field is a single named value of a Record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Get returns the value of the named field, or "" if absent.
func (r Record) Get(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}
