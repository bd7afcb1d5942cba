// Package document resolves validated relative paths to document content.
package document

import (
	"context"
	"errors"
	"unicode/utf8"

	"docgate/internal/model"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrOutsideRoots = errors.New("document resolves outside allowed roots")
)

// charsPerPage approximates a printed page for plain text.
const charsPerPage = 3000

// Resolution is the outcome of locating a document.
type Resolution struct {
	Exists bool
	// Name is the path as requested; Path is where it was found.
	Name string
	Path string
	Err  error
}

// Resolver locates and reads documents. Implementations confine reads to
// their configured locations.
type Resolver interface {
	Resolve(ctx context.Context, path string) Resolution
	Read(ctx context.Context, res Resolution) (model.Document, error)
}

func estimatePages(content string) int {
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return 0
	}
	return (n + charsPerPage - 1) / charsPerPage
}
