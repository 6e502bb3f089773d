package masking

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaskedCredentialValue is the replacement string for masked credential fields.
const MaskedCredentialValue = "[MASKED_CREDENTIAL]"

// credentialFieldNames are the structured-field keys treated as holding
// secret material wherever they appear in a parsed JSON/YAML document,
// regardless of the enclosing object's "kind". Generalized from the
// reference backend's Kubernetes-Secret-only data/stringData check to
// any credential-shaped field an ingested evidence blob might carry
// (API dumps, scraped config files, leaked credential pastes).
var credentialFieldNames = map[string]bool{
	"password": true, "passwd": true, "secret": true, "api_key": true,
	"apikey": true, "token": true, "access_token": true, "private_key": true,
	"client_secret": true, "data": true, "stringdata": true,
}

// CredentialMasker redacts credential-shaped fields from structured
// (JSON or YAML) evidence text while leaving the surrounding structure
// intact, so analysts can see shape without seeing the secret.
type CredentialMasker struct{}

// Name returns the unique identifier for this masker.
func (m *CredentialMasker) Name() string { return "structured_credential" }

// AppliesTo performs a lightweight check on whether this masker should
// process the data: at least one credential-field name must appear.
func (m *CredentialMasker) AppliesTo(data string) bool {
	lower := strings.ToLower(data)
	for name := range credentialFieldNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// Mask detects JSON vs YAML and applies the matching structural masker.
// Returns the original data on parse/processing errors (defensive).
func (m *CredentialMasker) Mask(data string) string {
	trimmed := strings.TrimSpace(data)

	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if masked := m.maskJSON(data); masked != data {
			return masked
		}
	}

	if masked := m.maskYAML(data); masked != data {
		return masked
	}

	return data
}

func (m *CredentialMasker) maskYAML(data string) string {
	decoder := yaml.NewDecoder(strings.NewReader(data))
	var documents []map[string]any
	anyMasked := false

	for {
		var doc map[string]any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return data
		}
		if doc == nil {
			continue
		}
		if maskCredentialFields(doc) {
			anyMasked = true
		}
		documents = append(documents, doc)
	}

	if !anyMasked || len(documents) == 0 {
		return data
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, doc := range documents {
		if err := encoder.Encode(doc); err != nil {
			return data
		}
	}
	if err := encoder.Close(); err != nil {
		return data
	}

	result := strings.TrimRight(buf.String(), "\n")
	if strings.HasSuffix(data, "\n") {
		result += "\n"
	}
	return result
}

func (m *CredentialMasker) maskJSON(data string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return data
	}

	if !maskCredentialFields(obj) {
		return data
	}

	result, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return data
	}

	output := string(result)
	if strings.HasSuffix(data, "\n") {
		output += "\n"
	}
	return output
}

// maskCredentialFields walks a parsed document (recursing into nested
// maps and list items) and redacts any field whose key matches
// credentialFieldNames. Returns true if anything was masked.
func maskCredentialFields(doc map[string]any) bool {
	anyMasked := false
	for key, val := range doc {
		if credentialFieldNames[strings.ToLower(key)] {
			switch v := val.(type) {
			case map[string]any:
				for inner := range v {
					v[inner] = MaskedCredentialValue
				}
			default:
				doc[key] = MaskedCredentialValue
			}
			anyMasked = true
			continue
		}
		switch v := val.(type) {
		case map[string]any:
			if maskCredentialFields(v) {
				anyMasked = true
			}
		case []any:
			for _, item := range v {
				if itemMap, ok := item.(map[string]any); ok {
					if maskCredentialFields(itemMap) {
						anyMasked = true
					}
				}
			}
		}
	}
	return anyMasked
}
