package scanner

import (
	"regexp"

	"docgate/internal/model"
)

// Pattern is one data-driven secret detector.
// Group selects the capture group to redact; zero redacts the whole match.
// Generic patterns match key=value assignments and are subject to the
// commit-hash false positive filter.
type Pattern struct {
	Name     string
	Regexp   *regexp.Regexp
	Severity model.Severity
	Group    int
	Generic  bool
}

const privateKeyKinds = `(?:(?:RSA|EC|DSA|OPENSSH|ENCRYPTED|PGP) )?PRIVATE KEY(?: BLOCK)?`

// Order matters: when two detectors match overlapping text the earlier one
// names the finding.
var defaultPatterns = []Pattern{
	{Name: "private_key_block", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`-----BEGIN ` + privateKeyKinds + `-----[\s\S]*?-----END ` + privateKeyKinds + `-----`)},
	{Name: "private_key_header", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`-----BEGIN ` + privateKeyKinds + `-----`)},

	{Name: "stripe_live_secret_key", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bsk_live_[0-9a-zA-Z]{24,}`)},
	{Name: "stripe_restricted_key", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\brk_live_[0-9a-zA-Z]{24,}`)},
	{Name: "stripe_test_secret_key", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\bsk_test_[0-9a-zA-Z]{24,}`)},
	{Name: "stripe_publishable_key", Severity: model.SeverityMedium,
		Regexp: regexp.MustCompile(`\bpk_(?:live|test)_[0-9a-zA-Z]{24,}`)},

	{Name: "github_fine_grained_token", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bgithub_pat_[0-9A-Za-z_]{50,}`)},
	{Name: "github_personal_token", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bghp_[0-9A-Za-z]{36}\b`)},
	{Name: "github_oauth_token", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bgho_[0-9A-Za-z]{36}\b`)},
	{Name: "github_app_token", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\b(?:ghu|ghs|ghr)_[0-9A-Za-z]{36}\b`)},

	// Key IDs are often glued to identifiers, so any character outside the
	// key alphabet counts as a boundary. The lead-in stays out of group 1.
	{Name: "aws_access_key_id", Severity: model.SeverityCritical, Group: 1,
		Regexp: regexp.MustCompile(`(?:^|[^0-9A-Z])((?:AKIA|ASIA|AGPA|AIDA|AROA)[0-9A-Z]{16})`)},
	// The whole run is taken so an over-long value leaks nothing.
	{Name: "aws_secret_access_key", Severity: model.SeverityCritical, Group: 1,
		Regexp: regexp.MustCompile(`(?i)aws[_\-\s]*secret[_\-\s]*(?:access[_\-\s]*)?key["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40,})`)},

	{Name: "google_api_key", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}`)},
	{Name: "google_oauth_token", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\bya29\.[0-9A-Za-z\-_]{20,}`)},

	{Name: "anthropic_api_key", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bsk-ant-[A-Za-z0-9\-_]{20,}`)},
	{Name: "openai_api_key", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\bsk-(?:proj-|svcacct-)?[A-Za-z0-9_\-]{20,}`)},

	{Name: "slack_token", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z\-]{10,}`)},
	{Name: "slack_webhook", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_\-]+`)},
	{Name: "discord_bot_token", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\b[MNO][A-Za-z0-9_\-]{23,25}\.[A-Za-z0-9_\-]{6}\.[A-Za-z0-9_\-]{27,38}\b`)},
	{Name: "telegram_bot_token", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\b[0-9]{8,10}:[A-Za-z0-9_\-]{35}\b`)},

	{Name: "database_connection_string", Severity: model.SeverityCritical,
		Regexp: regexp.MustCompile(`\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?)://[^\s:/@]+:[^\s@/]+@[^\s/"']+`)},

	{Name: "jwt", Severity: model.SeverityHigh,
		Regexp: regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{8,}\.eyJ[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}`)},
	{Name: "bearer_token", Severity: model.SeverityHigh, Group: 1,
		Regexp: regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9\-._~+/]{20,}=*)`)},

	// Values may not start with '[' so that redaction placeholders never rematch.
	{Name: "generic_password", Severity: model.SeverityHigh, Group: 1, Generic: true,
		Regexp: regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)["']?\s*[:=]\s*["']?([^\s"'\[][^\s"']{5,})`)},
	{Name: "generic_api_key", Severity: model.SeverityHigh, Group: 1, Generic: true,
		Regexp: regexp.MustCompile(`(?i)\bapi[_\-]?key["']?\s*[:=]\s*["']?([^\s"'\[][^\s"']{7,})`)},
	{Name: "generic_secret", Severity: model.SeverityHigh, Group: 1, Generic: true,
		Regexp: regexp.MustCompile(`(?i)\b(?:client[_\-]?)?secret["']?\s*[:=]\s*["']?([^\s"'\[][^\s"']{7,})`)},
	{Name: "generic_token", Severity: model.SeverityMedium, Group: 1, Generic: true,
		Regexp: regexp.MustCompile(`(?i)\b(?:access[_\-]?|auth[_\-]?|refresh[_\-]?)?token["']?\s*[:=]\s*["']?([^\s"'\[][^\s"']{7,})`)},
}

// DefaultPatterns returns a copy of the built-in detector table.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}
