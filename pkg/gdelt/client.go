package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/toolrunner"
)

// Fetcher is the narrow toolrunner slice HTTPClient needs.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

var _ Fetcher = (*toolrunner.Service)(nil)

// HTTPClient implements Client against GDELT's DOC 2.0 API, reusing
// the shared toolrunner.Service for the actual HTTP GET (domain
// allow-listing, response caching) rather than rolling its own.
type HTTPClient struct {
	Fetch Fetcher
	Query string
}

// NewHTTPClient constructs an HTTPClient. query is the GDELT DOC API
// search term (e.g. a country or topic name); an empty query defaults
// to a broad recency sweep.
func NewHTTPClient(fetch Fetcher, query string) *HTTPClient {
	if query == "" {
		query = "conflict"
	}
	return &HTTPClient{Fetch: fetch, Query: query}
}

type docAPIResponse struct {
	Articles []docAPIArticle `json:"articles"`
}

type docAPIArticle struct {
	URL          string  `json:"url"`
	SeenDate     string  `json:"seendate"`
	SourceCountry string `json:"sourcecountry"`
	Tone         string  `json:"tone"`
}

// FetchRecent queries the DOC 2.0 API for the last 15 minutes of
// coverage and maps each article into a best-effort GDELTEvent. The
// DOC API does not expose CAMEO codes or the Goldstein scale directly
// (those live only in the Events 2.0 CSV export); AvgTone is read
// verbatim and GoldsteinScale is left at zero, which the monitor's
// isSurging/extreme-Goldstein detectors tolerate as "no signal".
func (h *HTTPClient) FetchRecent(ctx context.Context) ([]contracts.GDELTEvent, error) {
	url := fmt.Sprintf(
		"https://api.gdeltproject.org/api/v2/doc/doc?query=%s&mode=artlist&maxrecords=75&timespan=15min&format=json",
		strings.ReplaceAll(h.Query, " ", "%20"),
	)
	body, err := h.Fetch.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp docAPIResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("gdelt doc api: decode response: %w", err)
	}

	events := make([]contracts.GDELTEvent, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		seen, _ := time.Parse("20060102T150405Z", a.SeenDate)
		if seen.IsZero() {
			seen = time.Now().UTC()
		}
		tone, _ := strconv.ParseFloat(a.Tone, 64)
		events = append(events, contracts.GDELTEvent{
			UID:          contracts.MintUID("gdelt"),
			GlobalEventID: a.URL,
			ActorCountry: a.SourceCountry,
			AvgTone:      tone,
			EventDate:    seen,
			Status:       "normal",
			SourceURL:    a.URL,
			CreatedAt:    time.Now().UTC(),
		})
	}
	return events, nil
}
