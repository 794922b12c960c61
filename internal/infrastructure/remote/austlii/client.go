package austlii

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// AustLII is a free public legal database run by the UNSW and UTS law
// faculties. It serves as the remote fallback when local retrieval confidence
// is insufficient and as the only source for uncovered jurisdictions.
const (
	defaultBaseURL   = "https://www.austlii.edu.au"
	searchPath       = "/cgi-bin/sinosrch.cgi"
	userAgent        = "AusLawAI/1.0 (legal research tool)"
	referer          = "https://www.austlii.edu.au/forms/search1.html"
	requestDelay     = 300 * time.Millisecond
	contentMaxChars  = 2000
	truncationNotice = "\n\n[Truncated - view full text at source URL]"
)

// allowedHosts bounds every fetched URL to AustLII itself.
var allowedHosts = map[string]bool{
	"www.austlii.edu.au": true,
	"austlii.edu.au":     true,
}

// Consolidated legislation (current versions) per state.
var legislationPaths = map[string]string{
	"NSW":     "au/legis/nsw/consol_act",
	"VIC":     "au/legis/vic/consol_act",
	"QLD":     "au/legis/qld/consol_act",
	"SA":      "au/legis/sa/consol_act",
	"WA":      "au/legis/wa/consol_act",
	"TAS":     "au/legis/tas/consol_act",
	"NT":      "au/legis/nt/consol_act",
	"ACT":     "au/legis/act/consol_act",
	"FEDERAL": "au/legis/cth/consol_act",
}

// Case law (all courts) per state.
var caseLawPaths = map[string]string{
	"NSW":     "au/cases/nsw",
	"VIC":     "au/cases/vic",
	"QLD":     "au/cases/qld",
	"SA":      "au/cases/sa",
	"WA":      "au/cases/wa",
	"TAS":     "au/cases/tas",
	"NT":      "au/cases/nt",
	"ACT":     "au/cases/act",
	"FEDERAL": "au/cases/cth",
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	fetchContent bool
}

type Option func(*Client)

// WithBaseURL points the client at a different host. The allow-list check is
// relaxed accordingly, which only test servers need.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithContentFetching controls whether legislation hits get their section
// text fetched. Off saves one request per hit and leaves titles as text.
func WithContentFetching(enabled bool) Option {
	return func(c *Client) { c.fetchContent = enabled }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(requestDelay), 1),
		fetchContent: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Every redirect hop is checked against the allow-list before the
	// request for it is sent.
	c.httpClient.CheckRedirect = func(req *http.Request, _ []*http.Request) error {
		return c.validateURL(req.URL.String())
	}
	return c
}

// SearchRemote searches consolidated legislation first, then case law until
// the limit is filled. Hits carry no relevance score; the caller assigns the
// fallback confidence.
func (c *Client) SearchRemote(ctx context.Context, query, state string, limit int) ([]domain.ScoredHit, error) {
	if limit <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "austlii search", fmt.Errorf("limit %d", limit))
	}
	// Fallback-only searches arrive without a usable state code.
	if state == "" || state == domain.JurisdictionUnsupported {
		state = "FEDERAL"
	}
	legislationPath, ok := legislationPaths[state]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "austlii search", fmt.Errorf("unknown state %q", state))
	}

	results, err := c.search(ctx, query, legislationPath, limit)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].kind = "legislation"
	}

	if len(results) < limit {
		cases, err := c.search(ctx, query, caseLawPaths[state], limit-len(results))
		if err != nil {
			slog.Warn("austlii_case_search_failed", "state", state, "error", err)
		} else {
			for i := range cases {
				cases[i].kind = "case"
			}
			results = append(results, cases...)
		}
	}

	hits := make([]domain.ScoredHit, 0, len(results))
	for _, result := range results {
		text := result.title
		if result.court != "" {
			text += "\n" + result.court
		}
		if result.date != "" {
			text += ", " + result.date
		}
		if c.fetchContent && result.kind == "legislation" {
			if content, err := c.FetchContent(ctx, result.url); err != nil {
				slog.Warn("austlii_content_fetch_failed", "url", result.url, "error", err)
			} else {
				text = content
			}
		}
		citation := result.citation
		if citation == "" {
			citation = result.title
		}
		hits = append(hits, domain.ScoredHit{
			Chunk: domain.Chunk{
				ID:           "austlii:" + result.url,
				Jurisdiction: state,
				Citation:     citation,
				SourceURL:    result.url,
				Text:         text,
				Kind:         domain.ChunkKindParent,
			},
			Source: domain.HitSourceRemote,
			Rank:   len(hits) + 1,
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// FetchContent loads an AustLII page and extracts its legislative text,
// truncated for prompt use. The URL must resolve to an allowed host both
// before the request and after any redirect.
func (c *Client) FetchContent(ctx context.Context, pageURL string) (string, error) {
	if err := c.validateURL(pageURL); err != nil {
		return "", err
	}

	resp, err := c.get(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.validateURL(resp.Request.URL.String()); err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", domain.WrapError(domain.ErrAdapterUnavailable, "austlii fetch", fmt.Errorf("status %s", resp.Status))
	}

	text, err := extractPageText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse austlii page: %w", err)
	}
	if text == "" {
		return "", errors.New("no extractable text")
	}
	if len(text) > contentMaxChars {
		text = text[:contentMaxChars] + truncationNotice
	}
	return text, nil
}

func (c *Client) search(ctx context.Context, query, maskPath string, maxResults int) ([]searchResult, error) {
	params := url.Values{
		"method":    {"auto"},
		"query":     {query},
		"meta":      {"/au"},
		"mask_path": {maskPath},
		"results":   {fmt.Sprint(maxResults)},
	}

	resp, err := c.get(ctx, c.baseURL+searchPath, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "austlii search", fmt.Errorf("status %s", resp.Status))
	}
	results, err := parseSearchResults(resp.Body, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse austlii results: %w", err)
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params != nil {
		rawURL = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create austlii request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, domain.ErrFallbackBlocked) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "austlii request", err)
	}
	return resp, nil
}

func (c *Client) validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return domain.WrapError(domain.ErrFallbackBlocked, "validate austlii url", err)
	}
	if strings.HasPrefix(rawURL, c.baseURL+"/") {
		return nil
	}
	if !allowedHosts[parsed.Hostname()] {
		return domain.WrapError(domain.ErrFallbackBlocked, "validate austlii url", fmt.Errorf("host %q not allowed", parsed.Hostname()))
	}
	return nil
}
