package toolrunner

import (
	"context"
	"net/http"
	"time"
)

// Config tunes the tool runner's fetch behavior.
type Config struct {
	CacheTTL       time.Duration
	AllowedDomains []string
}

// Service is the AEGI external-fetch capability: a generic cached HTTP
// GET used by the GDELT monitor (article/event detail lookups) and the
// investigation agent's external-fetch round. Adapted from the
// reference backend's runbook resolver, generalized from "runbook URL"
// to "any fetched URL".
type Service struct {
	http  *HTTPClient
	cache *Cache
	cfg   Config
}

// NewService constructs a Service. githubToken is the resolved bearer
// token value (empty string = unauthenticated, public resources only).
func NewService(cfg Config, githubToken string) *Service {
	cacheTTL := 1 * time.Minute
	if cfg.CacheTTL > 0 {
		cacheTTL = cfg.CacheTTL
	}
	return &Service{
		http:  NewHTTPClient(githubToken),
		cache: NewCache(cacheTTL),
		cfg:   cfg,
	}
}

// Fetch retrieves the content at rawURL, validating its scheme/domain,
// normalizing known blob-view hosts to their raw form, and serving
// from cache when available.
func (s *Service) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateFetchURL(rawURL, s.cfg.AllowedDomains); err != nil {
		return "", err
	}

	normalized := ConvertToRawURL(rawURL)
	if content, ok := s.cache.Get(normalized); ok {
		return content, nil
	}

	content, err := s.http.DownloadContent(ctx, rawURL)
	if err != nil {
		return "", err
	}

	s.cache.Set(normalized, content)
	return content, nil
}

// OverrideHTTPClientForTest replaces the internal HTTP client. Test-only.
func (s *Service) OverrideHTTPClientForTest(httpClient *http.Client) {
	s.http.httpClient = httpClient
}
