package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Error codes reported by the validator.
const (
	CodePathEmpty         = "PATH_EMPTY"
	CodePathTooLong       = "PATH_TOO_LONG"
	CodePathAbsolute      = "PATH_ABSOLUTE"
	CodePathTraversal     = "PATH_TRAVERSAL"
	CodePathNullByte      = "PATH_NULL_BYTE"
	CodePathShellMetachar = "PATH_SHELL_METACHAR"
	CodePathSystemDir     = "PATH_SYSTEM_DIR"
	CodePathExtension     = "PATH_EXTENSION"
	CodeTooManyDocuments  = "TOO_MANY_DOCUMENTS"
	CodeAudienceEmpty     = "AUDIENCE_EMPTY"
	CodeAudienceTooLong   = "AUDIENCE_TOO_LONG"
	CodeAudienceChars     = "AUDIENCE_INVALID_CHARS"
	CodeFormatInvalid     = "FORMAT_INVALID"
	CodeTooManyArgs       = "TOO_MANY_ARGS"
	CodeArgTooLong        = "ARG_TOO_LONG"
	CodeArgInjection      = "ARG_INJECTION"
)

// Issue is a single validation error.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) Error() string { return i.Code + ": " + i.Message }

// Result is the outcome of validating one value.
type Result struct {
	Valid     bool     `json:"valid"`
	Sanitized string   `json:"sanitized,omitempty"`
	Errors    []Issue  `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// BatchResult is the outcome of validating a list of paths.
type BatchResult struct {
	Valid     bool     `json:"valid"`
	Sanitized []string `json:"sanitized,omitempty"`
	Errors    []Issue  `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Formats is the closed set of summary formats.
var Formats = []string{"executive", "marketing", "product", "engineering", "unified"}

// Config holds validator limits.
type Config struct {
	MaxPathLength     int
	MaxDocuments      int
	MaxAudienceLength int
	MaxArgs           int
	MaxArgLength      int
	AllowedExtensions []string
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxPathLength:     512,
		MaxDocuments:      10,
		MaxAudienceLength: 200,
		MaxArgs:           20,
		MaxArgLength:      256,
		AllowedExtensions: []string{".md", ".markdown", ".txt", ".rst", ".adoc"},
	}
}

// Validator rejects malformed or dangerous user input. All methods are pure.
type Validator struct {
	cfg Config
}

// New returns a validator; zero fields in cfg fall back to defaults.
func New(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.MaxPathLength <= 0 {
		cfg.MaxPathLength = def.MaxPathLength
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = def.MaxDocuments
	}
	if cfg.MaxAudienceLength <= 0 {
		cfg.MaxAudienceLength = def.MaxAudienceLength
	}
	if cfg.MaxArgs <= 0 {
		cfg.MaxArgs = def.MaxArgs
	}
	if cfg.MaxArgLength <= 0 {
		cfg.MaxArgLength = def.MaxArgLength
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = def.AllowedExtensions
	}
	return &Validator{cfg: cfg}
}

var (
	windowsAbsolute = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
	// Single and double URL-encoded dots and separators.
	encodedTraversal = regexp.MustCompile(`(?i)%2e|%252e|%2f|%252f|%5c|%255c|%c0%ae|%c0%af`)
	encodedNull      = regexp.MustCompile(`(?i)%00|%2500`)
	shellMetachars   = ";&|`$(){}[]<>\\\n\r"
	systemDirs       = regexp.MustCompile(`(?i)(?:^|/)(?:etc|proc|sys|dev|root|boot|var|windows|system32|winnt)(?:/|$)`)
	audienceChars    = regexp.MustCompile(`^[A-Za-z0-9 ,.'&()/\-]+$`)
)

func invalid(code, format string, args ...any) Result {
	return Result{Errors: []Issue{{Code: code, Message: fmt.Sprintf(format, args...)}}}
}

// ValidatePath checks a document path. The first failing rule wins.
func (v *Validator) ValidatePath(p string) Result {
	trimmed := strings.TrimSpace(p)
	switch {
	case trimmed == "":
		return invalid(CodePathEmpty, "path is required")
	case len(trimmed) > v.cfg.MaxPathLength:
		return invalid(CodePathTooLong, "path exceeds %d characters", v.cfg.MaxPathLength)
	case strings.HasPrefix(trimmed, "/"), strings.HasPrefix(trimmed, `\\`), windowsAbsolute.MatchString(trimmed):
		return invalid(CodePathAbsolute, "absolute paths are not allowed")
	case strings.Contains(trimmed, "\x00"), encodedNull.MatchString(trimmed):
		return invalid(CodePathNullByte, "null bytes are not allowed")
	case hasTraversal(trimmed):
		return invalid(CodePathTraversal, "path traversal is not allowed")
	case strings.ContainsAny(trimmed, shellMetachars):
		return invalid(CodePathShellMetachar, "path contains shell metacharacters")
	case systemDirs.MatchString(trimmed):
		return invalid(CodePathSystemDir, "system directories are not allowed")
	}

	ext := strings.ToLower(path.Ext(trimmed))
	if !v.allowedExtension(ext) {
		return invalid(CodePathExtension, "extension %q is not allowed", ext)
	}

	res := Result{Valid: true, Sanitized: trimmed}
	if strings.HasPrefix(path.Base(trimmed), ".") {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s is a hidden file", trimmed))
	}
	return res
}

func hasTraversal(p string) bool {
	if strings.Contains(p, "..") || strings.HasPrefix(p, "~") || strings.Contains(p, "~/") || strings.Contains(p, "/~") {
		return true
	}
	return encodedTraversal.MatchString(p)
}

func (v *Validator) allowedExtension(ext string) bool {
	for _, e := range v.cfg.AllowedExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ValidatePaths validates a batch of paths. Duplicates are dropped with a
// warning rather than an error.
func (v *Validator) ValidatePaths(paths []string) BatchResult {
	if len(paths) == 0 {
		return BatchResult{Errors: []Issue{{Code: CodePathEmpty, Message: "at least one document is required"}}}
	}
	if len(paths) > v.cfg.MaxDocuments {
		return BatchResult{Errors: []Issue{{
			Code:    CodeTooManyDocuments,
			Message: fmt.Sprintf("at most %d documents are allowed, got %d", v.cfg.MaxDocuments, len(paths)),
		}}}
	}

	var out BatchResult
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		r := v.ValidatePath(p)
		if !r.Valid {
			for _, e := range r.Errors {
				e.Message = fmt.Sprintf("%s (%q)", e.Message, strings.TrimSpace(p))
				out.Errors = append(out.Errors, e)
			}
			continue
		}
		out.Warnings = append(out.Warnings, r.Warnings...)
		if _, dup := seen[r.Sanitized]; dup {
			out.Warnings = append(out.Warnings, fmt.Sprintf("duplicate document %s ignored", r.Sanitized))
			continue
		}
		seen[r.Sanitized] = struct{}{}
		out.Sanitized = append(out.Sanitized, r.Sanitized)
	}
	out.Valid = len(out.Errors) == 0
	if !out.Valid {
		out.Sanitized = nil
	}
	return out
}

// ValidateAudience checks free-form audience text against a character whitelist.
func (v *Validator) ValidateAudience(audience string) Result {
	trimmed := strings.TrimSpace(audience)
	switch {
	case trimmed == "":
		return invalid(CodeAudienceEmpty, "audience is required")
	case len(trimmed) > v.cfg.MaxAudienceLength:
		return invalid(CodeAudienceTooLong, "audience exceeds %d characters", v.cfg.MaxAudienceLength)
	case !audienceChars.MatchString(trimmed):
		return invalid(CodeAudienceChars, "audience contains disallowed characters")
	}
	return Result{Valid: true, Sanitized: trimmed}
}

// ValidateFormat checks the format against the closed enum.
func (v *Validator) ValidateFormat(format string) Result {
	f := strings.ToLower(strings.TrimSpace(format))
	for _, known := range Formats {
		if f == known {
			return Result{Valid: true, Sanitized: f}
		}
	}
	return invalid(CodeFormatInvalid, "format must be one of %s", strings.Join(Formats, ", "))
}

// ValidateCommandArgs rejects arguments carrying injection characters.
func (v *Validator) ValidateCommandArgs(args []string) BatchResult {
	if len(args) > v.cfg.MaxArgs {
		return BatchResult{Errors: []Issue{{
			Code:    CodeTooManyArgs,
			Message: fmt.Sprintf("at most %d arguments are allowed", v.cfg.MaxArgs),
		}}}
	}
	var out BatchResult
	for i, a := range args {
		switch {
		case len(a) > v.cfg.MaxArgLength:
			out.Errors = append(out.Errors, Issue{Code: CodeArgTooLong, Message: fmt.Sprintf("argument %d exceeds %d characters", i, v.cfg.MaxArgLength)})
		case strings.Contains(a, "\x00"), strings.ContainsAny(a, shellMetachars):
			out.Errors = append(out.Errors, Issue{Code: CodeArgInjection, Message: fmt.Sprintf("argument %d contains disallowed characters", i)})
		default:
			out.Sanitized = append(out.Sanitized, strings.TrimSpace(a))
		}
	}
	out.Valid = len(out.Errors) == 0
	if !out.Valid {
		out.Sanitized = nil
	}
	return out
}
