package validation

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"docgate/internal/model"
)

// BatchStrategy decides what happens when a batch exceeds its aggregate limits.
type BatchStrategy string

const (
	// StrategyReject fails the whole batch.
	StrategyReject BatchStrategy = "reject"
	// StrategyTruncateByRecency keeps the most recently modified documents
	// that fit within the limits and drops the rest.
	StrategyTruncateByRecency BatchStrategy = "truncate"
)

// ErrSizeLimit is wrapped by every size guard rejection.
var ErrSizeLimit = errors.New("size limit exceeded")

// SizeLimits are the per-document and per-batch ceilings.
type SizeLimits struct {
	MaxPages           int
	MaxCharacters      int
	MaxBytes           int64
	MaxDocuments       int
	MaxTotalCharacters int
	Strategy           BatchStrategy
}

// DefaultSizeLimits returns the built-in ceilings.
func DefaultSizeLimits() SizeLimits {
	return SizeLimits{
		MaxPages:           50,
		MaxCharacters:      100_000,
		MaxBytes:           10 << 20,
		MaxDocuments:       10,
		MaxTotalCharacters: 250_000,
		Strategy:           StrategyReject,
	}
}

// SizeViolation describes which ceiling a document or batch broke.
type SizeViolation struct {
	Document string
	Limit    string
	Actual   int64
	Max      int64
}

func (v *SizeViolation) Error() string {
	if v.Document == "" {
		return fmt.Sprintf("batch %s %d exceeds limit %d", v.Limit, v.Actual, v.Max)
	}
	return fmt.Sprintf("document %s: %s %d exceeds limit %d", v.Document, v.Limit, v.Actual, v.Max)
}

func (v *SizeViolation) Unwrap() error { return ErrSizeLimit }

// BatchOutcome is the result of a batch check.
type BatchOutcome struct {
	Documents []model.Document
	Dropped   []string
}

// SizeGuard enforces document and batch size ceilings.
type SizeGuard struct {
	limits SizeLimits
}

// NewSizeGuard returns a guard; zero limits fall back to defaults.
func NewSizeGuard(l SizeLimits) *SizeGuard {
	def := DefaultSizeLimits()
	if l.MaxPages <= 0 {
		l.MaxPages = def.MaxPages
	}
	if l.MaxCharacters <= 0 {
		l.MaxCharacters = def.MaxCharacters
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = def.MaxBytes
	}
	if l.MaxDocuments <= 0 {
		l.MaxDocuments = def.MaxDocuments
	}
	if l.MaxTotalCharacters <= 0 {
		l.MaxTotalCharacters = def.MaxTotalCharacters
	}
	if l.Strategy == "" {
		l.Strategy = def.Strategy
	}
	return &SizeGuard{limits: l}
}

// Limits returns the effective limits.
func (g *SizeGuard) Limits() SizeLimits { return g.limits }

// CheckDocument enforces the per-document ceilings.
func (g *SizeGuard) CheckDocument(doc model.Document) error {
	if doc.PageCount > g.limits.MaxPages {
		return &SizeViolation{Document: doc.Name, Limit: "pages", Actual: int64(doc.PageCount), Max: int64(g.limits.MaxPages)}
	}
	size := doc.SizeBytes
	if size == 0 {
		size = int64(len(doc.Content))
	}
	if size > g.limits.MaxBytes {
		return &SizeViolation{Document: doc.Name, Limit: "bytes", Actual: size, Max: g.limits.MaxBytes}
	}
	if n := utf8.RuneCountInString(doc.Content); n > g.limits.MaxCharacters {
		return &SizeViolation{Document: doc.Name, Limit: "characters", Actual: int64(n), Max: int64(g.limits.MaxCharacters)}
	}
	return nil
}

// CheckBatch enforces per-document and aggregate ceilings. Depending on the
// strategy an oversized batch is rejected or truncated to the most recent
// documents that fit.
func (g *SizeGuard) CheckBatch(docs []model.Document) (BatchOutcome, error) {
	for _, d := range docs {
		if err := g.CheckDocument(d); err != nil {
			return BatchOutcome{}, err
		}
	}

	total := 0
	for _, d := range docs {
		total += utf8.RuneCountInString(d.Content)
	}
	if len(docs) <= g.limits.MaxDocuments && total <= g.limits.MaxTotalCharacters {
		return BatchOutcome{Documents: docs}, nil
	}

	if g.limits.Strategy != StrategyTruncateByRecency {
		if len(docs) > g.limits.MaxDocuments {
			return BatchOutcome{}, &SizeViolation{Limit: "documents", Actual: int64(len(docs)), Max: int64(g.limits.MaxDocuments)}
		}
		return BatchOutcome{}, &SizeViolation{Limit: "characters", Actual: int64(total), Max: int64(g.limits.MaxTotalCharacters)}
	}

	ranked := make([]model.Document, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ModifiedAt.After(ranked[j].ModifiedAt)
	})

	var out BatchOutcome
	kept, full := 0, false
	for _, d := range ranked {
		n := utf8.RuneCountInString(d.Content)
		full = full || len(out.Documents) >= g.limits.MaxDocuments || kept+n > g.limits.MaxTotalCharacters
		if !full {
			out.Documents = append(out.Documents, d)
			kept += n
			continue
		}
		out.Dropped = append(out.Dropped, d.Name)
	}
	if len(out.Documents) == 0 {
		return BatchOutcome{}, &SizeViolation{Limit: "characters", Actual: int64(total), Max: int64(g.limits.MaxTotalCharacters)}
	}
	return out, nil
}
