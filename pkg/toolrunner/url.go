package toolrunner

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// githubBlobPattern matches GitHub blob URLs.
// Format: https://github.com/{owner}/{repo}/blob/{ref}/{path...}
var githubBlobPattern = regexp.MustCompile(`^/([^/]+)/([^/]+)/blob/([^/]+)(?:/(.*))?$`)

// hostNormalizers maps a source host to a function that rewrites a URL
// on that host into its canonical fetchable form (e.g. a GitHub blob
// view into its raw.githubusercontent.com equivalent). New hosts the
// investigation agent or GDELT monitor need to fetch from plug in here
// without touching Fetch itself.
var hostNormalizers = map[string]func(*url.URL) string{
	"github.com":     normalizeGitHubBlob,
	"www.github.com": normalizeGitHubBlob,
}

// ConvertToRawURL rewrites a URL through the per-host normalizer table,
// returning it unchanged if no normalizer applies.
func ConvertToRawURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	normalize, ok := hostNormalizers[parsed.Host]
	if !ok {
		return rawURL
	}
	if normalized := normalize(parsed); normalized != "" {
		return normalized
	}
	return rawURL
}

func normalizeGitHubBlob(parsed *url.URL) string {
	matches := githubBlobPattern.FindStringSubmatch(parsed.Path)
	if matches == nil {
		return ""
	}
	owner, repo, ref, path := matches[1], matches[2], matches[3], matches[4]
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/refs/heads/%s/%s", owner, repo, ref, path)
}

// ValidateFetchURL checks that the URL uses an allowed scheme and,
// when a non-empty allowlist is configured, an allowed domain.
func ValidateFetchURL(rawURL string, allowedDomains []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid scheme %q: only http and https allowed", parsed.Scheme)
	}

	if len(allowedDomains) > 0 {
		host := strings.ToLower(parsed.Hostname())
		allowed := false
		for _, domain := range allowedDomains {
			if host == domain || host == "www."+domain {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("domain %q not in allowed list", host)
		}
	}

	return nil
}
