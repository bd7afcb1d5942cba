package sanitizer

import (
	"regexp"
	"strings"
)

// Replacement is written in place of every removed injection payload.
const Replacement = "[REMOVED: PROMPT_INJECTION]"

// Rule is a named prompt-injection detector.
type Rule struct {
	Name   string
	Regexp *regexp.Regexp
}

var defaultRules = []Rule{
	{Name: "instruction_override", Regexp: regexp.MustCompile(
		`(?i)\b(?:ignore|disregard|forget|override|bypass)\s+(?:all\s+|any\s+|the\s+|your\s+)*(?:previous|prior|above|earlier|preceding|system|safety)?\s*(?:instructions?|prompts?|rules|directives|guidelines|context)\b`)},
	{Name: "role_reassignment", Regexp: regexp.MustCompile(
		`(?i)\b(?:you\s+are\s+now|from\s+now\s+on\s+you\s+are|pretend\s+(?:to\s+be|you\s+are)|act\s+as\s+(?:an?\s+)?(?:unrestricted|jailbroken|system|admin|developer\s+mode))\b[^\n.]*`)},
	{Name: "system_prompt_impersonation", Regexp: regexp.MustCompile(
		`(?im)^\s*(?:#{1,6}\s*)?(?:system|assistant|operator|developer)\s*(?:prompt|message|instructions?)?\s*:`)},
	{Name: "chat_template_token", Regexp: regexp.MustCompile(
		`(?i)<\|(?:im_start|im_end|system|endoftext|assistant|user)\|>|\[/?INST\]|<</?SYS>>|</?system>`)},
	{Name: "new_instructions_header", Regexp: regexp.MustCompile(
		`(?i)\b(?:new|updated|real|actual)\s+instructions?\s*:`)},
	{Name: "prompt_exfiltration", Regexp: regexp.MustCompile(
		`(?i)\b(?:reveal|print|repeat|output|show)\s+(?:me\s+)?(?:your|the)\s+(?:system\s+prompt|hidden\s+instructions|initial\s+prompt|api\s+keys?|secrets?)\b`)},
}

// zeroWidth characters are stripped unconditionally; they are used to hide
// payloads from human reviewers.
var zeroWidth = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

// Result is the outcome of sanitizing one text.
type Result struct {
	Sanitized       string   `json:"-"`
	Flagged         bool     `json:"flagged"`
	RemovedPatterns []string `json:"removed_patterns"`
}

// Sanitizer neutralizes prompt-injection payloads in document text.
type Sanitizer struct {
	rules []Rule
}

// New returns a sanitizer over rules, or the default rules when none are given.
func New(rules ...Rule) *Sanitizer {
	if len(rules) == 0 {
		rules = defaultRules
	}
	return &Sanitizer{rules: rules}
}

// Sanitize replaces every injection payload in text.
func (s *Sanitizer) Sanitize(text string) Result {
	res := Result{RemovedPatterns: []string{}}

	out := zeroWidth.Replace(text)
	if out != text {
		res.RemovedPatterns = append(res.RemovedPatterns, "zero_width_characters")
	}
	for _, r := range s.rules {
		if !r.Regexp.MatchString(out) {
			continue
		}
		out = r.Regexp.ReplaceAllLiteralString(out, Replacement)
		res.RemovedPatterns = append(res.RemovedPatterns, r.Name)
	}

	res.Sanitized = out
	res.Flagged = len(res.RemovedPatterns) > 0
	return res
}

// Detect reports the rule names matching text without modifying it.
func (s *Sanitizer) Detect(text string) []string {
	var hits []string
	for _, r := range s.rules {
		if r.Regexp.MatchString(text) {
			hits = append(hits, r.Name)
		}
	}
	return hits
}
