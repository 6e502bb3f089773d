// Package masking redacts PII and credential-shaped fields from
// evidence and report text before it reaches an analyst, adapted from
// the reference backend's MCP-tool-result masking registry and
// generalized per SPEC_FULL.md §D to "evidence/report text" masking.
package masking

import "log/slog"

// Config tunes the masking service. PatternGroup names one of
// builtinPatternGroups ("pii" by default).
type Config struct {
	Enabled      bool
	PatternGroup string
}

func (c Config) resolved() Config {
	if c.PatternGroup == "" {
		c.PatternGroup = "pii"
	}
	return c
}

// Service applies compiled regex patterns and structural code maskers
// to text before it is persisted as report/chat-facing content.
// Created once at startup; thread-safe and stateless aside from the
// compiled patterns built at construction.
type Service struct {
	cfg           Config
	patterns      map[string]*CompiledPattern
	patternGroups map[string][]string
	codeMaskers   map[string]Masker
}

// NewService creates a masking service with all built-in patterns
// compiled eagerly. Invalid patterns are logged and skipped.
func NewService(cfg Config) *Service {
	s := &Service{
		cfg:           cfg.resolved(),
		patterns:      make(map[string]*CompiledPattern),
		patternGroups: builtinPatternGroups,
		codeMaskers:   make(map[string]Masker),
	}

	s.compileBuiltinPatterns()
	s.registerMasker(&CredentialMasker{})

	slog.Info("masking service initialized",
		"builtin_patterns", len(builtinPatterns),
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers),
		"enabled", s.cfg.Enabled,
		"pattern_group", s.cfg.PatternGroup)

	return s
}

// MaskText applies the configured pattern group to content. On masking
// failure it fails open (returns the original content unmasked) since
// an analyst seeing unmasked-but-present evidence is preferable to
// losing the evidence entirely.
func (s *Service) MaskText(content string) string {
	if !s.cfg.Enabled || content == "" {
		return content
	}

	resolved := s.resolveGroup(s.cfg.PatternGroup)
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return content
	}

	return s.applyMasking(content, resolved)
}

func (s *Service) applyMasking(content string, resolved *resolvedPatterns) string {
	masked := content

	for _, maskerName := range resolved.codeMaskerNames {
		masker, ok := s.codeMaskers[maskerName]
		if !ok {
			continue
		}
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}

	for _, pattern := range resolved.regexPatterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}

	return masked
}

func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}
