package model

import "time"

// Document is a source document read through a resolver.
// It is never mutated: sanitize and redact stages produce copies.
type Document struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	PageCount  int       `json:"page_count,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// WithContent returns a copy of the document carrying new content.
func (d Document) WithContent(content string) Document {
	d.Content = content
	return d
}
