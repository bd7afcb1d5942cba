package model

import "strings"

// Severity ranks a secret finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// ScanFinding is a single secret match. MatchedValue never leaves the
// process: it is excluded from JSON and must not be logged.
type ScanFinding struct {
	Type         string   `json:"type"`
	Severity     Severity `json:"severity"`
	Location     int      `json:"location"`
	MatchedValue string   `json:"-"`
	Context      string   `json:"context"`
}

// Masked returns a loggable form of the matched value.
func (f ScanFinding) Masked() string {
	v := f.MatchedValue
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", 8)
}

// ScanResult aggregates the findings of one scan.
// RedactedContent is the only form of scanned text that may cross a trust boundary.
type ScanResult struct {
	HasSecrets      bool          `json:"has_secrets"`
	TotalFound      int           `json:"total_found"`
	CriticalFound   int           `json:"critical_found"`
	Findings        []ScanFinding `json:"findings"`
	RedactedContent string        `json:"-"`
}

// Types returns the distinct finding types in detection order.
func (r ScanResult) Types() []string {
	seen := make(map[string]struct{}, len(r.Findings))
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if _, ok := seen[f.Type]; ok {
			continue
		}
		seen[f.Type] = struct{}{}
		out = append(out, f.Type)
	}
	return out
}
