package masking

// builtinPattern is a static regex-masking rule shipped with the
// service, independent of any per-case configuration.
type builtinPattern struct {
	Pattern     string
	Replacement string
	Description string
}

// builtinPatterns are the PII pattern classes applied to evidence and
// report text before it is surfaced to an analyst, adapted from the
// reference backend's built-in masking-pattern registry but retargeted
// from "MCP tool result" shapes (API keys, K8s tokens) to the PII
// classes spec.md §4.15 names: email addresses, phone numbers, and
// government identifiers appearing in scraped OSINT text.
var builtinPatterns = map[string]builtinPattern{
	"email": {
		Pattern:     `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
		Replacement: "[MASKED_EMAIL]",
		Description: "email addresses",
	},
	"phone": {
		Pattern:     `\+?\d{1,3}[-.\s]?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`,
		Replacement: "[MASKED_PHONE]",
		Description: "phone numbers",
	},
	"ssn": {
		Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
		Replacement: "[MASKED_SSN]",
		Description: "US social security numbers",
	},
	"credit_card": {
		Pattern:     `\b(?:\d[ -]?){13,16}\b`,
		Replacement: "[MASKED_CARD]",
		Description: "payment card numbers",
	},
	"ipv4": {
		Pattern:     `\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`,
		Replacement: "[MASKED_IP]",
		Description: "IPv4 addresses",
	},
}

// builtinPatternGroups name reusable subsets of builtinPatterns, mirroring
// the reference backend's alert-masking pattern groups: "pii" for
// evidence/report surfacing, "network" for infrastructure indicators
// that should stay in claims but not leak into analyst-facing prose
// verbatim alongside raw PII.
var builtinPatternGroups = map[string][]string{
	"pii":     {"email", "phone", "ssn", "credit_card"},
	"network": {"ipv4"},
}

// builtinCodeMaskers are the code-masker names resolvable via
// patternGroups/pattern lists in addition to regex patterns.
var builtinCodeMaskers = []string{"structured_credential"}
