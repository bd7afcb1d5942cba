package scanner

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"docgate/internal/model"
)

// DefaultContextChars is the number of characters kept on each side of a
// finding when building its context.
const DefaultContextChars = 20

// Options tune a single scan.
type Options struct {
	// SkipFalsePositives drops findings that look like documentation
	// samples, placeholders or commit hashes. Dropped matches are still
	// redacted; they are only excluded from the counts.
	SkipFalsePositives bool
	ContextChars       int
}

// Scanner detects and redacts secrets. It is safe for concurrent use.
type Scanner struct {
	patterns []Pattern
}

// New returns a scanner over the given patterns, or the default table when
// none are given.
func New(patterns ...Pattern) *Scanner {
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	return &Scanner{patterns: patterns}
}

type span struct {
	start, end int
	pattern    *Pattern
	suppressed bool
}

func (s span) contains(o span) bool {
	return s.start <= o.start && o.end <= s.end
}

// Scan finds every registered secret in content and returns the findings
// together with a fully redacted copy of the text.
func (s *Scanner) Scan(content string, opts Options) model.ScanResult {
	if opts.ContextChars <= 0 {
		opts.ContextChars = DefaultContextChars
	}

	var accepted []span
	for i := range s.patterns {
		p := &s.patterns[i]
		for _, loc := range p.Regexp.FindAllStringSubmatchIndex(content, -1) {
			start, end := loc[0], loc[1]
			if p.Group > 0 && len(loc) > 2*p.Group+1 && loc[2*p.Group] >= 0 {
				start, end = loc[2*p.Group], loc[2*p.Group+1]
			}
			if start == end {
				continue
			}
			sp := span{start: start, end: end, pattern: p}
			if covered(accepted, sp) {
				continue
			}
			if opts.SkipFalsePositives && isFalsePositive(p, content, start, end) {
				sp.suppressed = true
			}
			accepted = append(accepted, sp)
		}
	}

	redacted, offsets := redact(content, accepted)

	result := model.ScanResult{RedactedContent: redacted}
	for i, sp := range accepted {
		if sp.suppressed {
			continue
		}
		f := model.ScanFinding{
			Type:         placeholderType(sp.pattern),
			Severity:     sp.pattern.Severity,
			Location:     sp.start,
			MatchedValue: content[sp.start:sp.end],
			Context:      window(redacted, offsets[i][0], offsets[i][1], opts.ContextChars),
		}
		result.Findings = append(result.Findings, f)
		if f.Severity == model.SeverityCritical {
			result.CriticalFound++
		}
	}
	sort.SliceStable(result.Findings, func(i, j int) bool {
		return result.Findings[i].Location < result.Findings[j].Location
	})
	result.TotalFound = len(result.Findings)
	result.HasSecrets = result.TotalFound > 0
	return result
}

// Redact returns content with every registered secret replaced.
func (s *Scanner) Redact(content string) string {
	return s.Scan(content, Options{}).RedactedContent
}

// Patterns returns the names of the registered detectors.
func (s *Scanner) Patterns() []string {
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.Name
	}
	return out
}

func covered(accepted []span, sp span) bool {
	for _, a := range accepted {
		if a.contains(sp) {
			return true
		}
	}
	return false
}

func placeholderType(p *Pattern) string {
	return strings.ToUpper(p.Name)
}

func placeholder(p *Pattern) string {
	return "[REDACTED: " + placeholderType(p) + "]"
}

// redact replaces every span in one left-to-right pass. Overlapping spans are
// merged and named after the span that starts first. offsets[i] is the
// position of the placeholder covering accepted[i] in the output.
func redact(content string, accepted []span) (string, [][2]int) {
	offsets := make([][2]int, len(accepted))
	if len(accepted) == 0 {
		return content, offsets
	}

	order := make([]int, len(accepted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return accepted[order[a]].start < accepted[order[b]].start
	})

	var b strings.Builder
	b.Grow(len(content))
	cursor := 0
	for k := 0; k < len(order); {
		head := accepted[order[k]]
		end := head.end
		group := []int{order[k]}
		k++
		for k < len(order) && accepted[order[k]].start < end {
			if accepted[order[k]].end > end {
				end = accepted[order[k]].end
			}
			group = append(group, order[k])
			k++
		}

		b.WriteString(content[cursor:head.start])
		outStart := b.Len()
		b.WriteString(placeholder(head.pattern))
		outEnd := b.Len()
		for _, idx := range group {
			offsets[idx] = [2]int{outStart, outEnd}
		}
		cursor = end
	}
	b.WriteString(content[cursor:])
	return b.String(), offsets
}

// window returns text around [start,end) widened by n bytes on each side,
// snapped to rune boundaries.
func window(text string, start, end, n int) string {
	from := start - n
	if from < 0 {
		from = 0
	}
	to := end + n
	if to > len(text) {
		to = len(text)
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}

var (
	sampleMarkers      = []string{"example", "sample", "dummy", "placeholder", "fake"}
	placeholderMarkers = []string{"xxxx", "your_", "your-", "changeme", "<", "...", "redacted"}
	commitHash         = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
)

const adjacency = 30

func isFalsePositive(p *Pattern, content string, start, end int) bool {
	value := strings.ToLower(content[start:end])
	for _, m := range placeholderMarkers {
		if strings.Contains(value, m) {
			return true
		}
	}
	near := strings.ToLower(window(content, start, end, adjacency))
	for _, m := range sampleMarkers {
		if strings.Contains(near, m) {
			return true
		}
	}
	if p.Generic && commitHash.MatchString(value) {
		return true
	}
	return false
}
