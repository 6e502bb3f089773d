package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileBuiltinPatterns(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	assert.Equal(t, len(builtinPatterns), len(svc.patterns),
		"all built-in patterns should compile")

	for name, cp := range svc.patterns {
		assert.NotNil(t, cp.Regex, "pattern %s should have compiled regex", name)
		assert.NotEmpty(t, cp.Replacement, "pattern %s should have replacement", name)
	}
}

func TestResolveGroup(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	tests := []struct {
		name           string
		group          string
		minRegex       int
		hasCodeMaskers bool
	}{
		{name: "pii group", group: "pii", minRegex: 4},
		{name: "network group", group: "network", minRegex: 1},
		{name: "unknown group", group: "nonexistent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := svc.resolveGroup(tt.group)
			assert.GreaterOrEqual(t, len(resolved.regexPatterns), tt.minRegex)
			if tt.hasCodeMaskers {
				assert.NotEmpty(t, resolved.codeMaskerNames)
			}
		})
	}
}

func TestResolveGroup_Deduplication(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	resolved := svc.resolveGroup("pii")
	seen := map[string]int{}
	for _, p := range resolved.regexPatterns {
		seen[p.Name]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "pattern %s should appear only once", name)
	}
}
