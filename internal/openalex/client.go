// Package openalex is a read-only client for the OpenAlex scholarly catalog.
//
// Every operation is best effort: transport and decode failures are logged
// and reported as an absent or empty result, never as an error. Callers that
// care about the difference between "nothing matched" and "lookup failed"
// check the ok return.
package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/telemetry"
)

// retryBaseDelay seeds the exponential backoff between retry attempts.
var retryBaseDelay = 500 * time.Millisecond

var errNotFound = errors.New("openalex: not found")

// Config controls the client. Zero values fall back to the documented
// defaults, so Config{} is a working production configuration.
type Config struct {
	BaseURL string
	// Mailto joins the polite pool when set. OpenAlex serves polite-pool
	// traffic from faster infrastructure.
	Mailto         string
	ConceptTimeout time.Duration
	WorksTimeout   time.Duration
	ConceptDelay   time.Duration
	AuthorDelay    time.Duration
	RetryAttempts  int
}

// Client talks to one OpenAlex deployment. Politeness delays live here as
// policy fields rather than as sleeps scattered through callers; tests zero
// them through the Config.
type Client struct {
	baseURL     string
	mailto      string
	conceptHTTP *http.Client
	worksHTTP   *http.Client
	attempts    int

	conceptDelay time.Duration
	authorDelay  time.Duration

	cache  ConceptCache
	logger *log.Logger
}

// New builds a Client. cache may be nil to disable concept caching.
func New(cfg Config, cache ConceptCache, logger *log.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openalex.org"
	}
	if cfg.ConceptTimeout == 0 {
		cfg.ConceptTimeout = 10 * time.Second
	}
	if cfg.WorksTimeout == 0 {
		cfg.WorksTimeout = 30 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CATALOG] ", log.LstdFlags)
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		mailto:       cfg.Mailto,
		conceptHTTP:  &http.Client{Timeout: cfg.ConceptTimeout},
		worksHTTP:    &http.Client{Timeout: cfg.WorksTimeout},
		attempts:     cfg.RetryAttempts,
		conceptDelay: cfg.ConceptDelay,
		authorDelay:  cfg.AuthorDelay,
		cache:        cache,
		logger:       logger,
	}
}

// AuthorDelay is the pause callers should leave between author fetches.
func (c *Client) AuthorDelay() time.Duration { return c.authorDelay }

// AuthorIDFromURL normalizes an OpenAlex author id. Full id URLs reduce to
// their last path segment; bare ids pass through unchanged.
func AuthorIDFromURL(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// SearchConcept resolves a topic name to the id of the best-matching
// concept. ok is false when nothing matched or the lookup failed.
func (c *Client) SearchConcept(ctx context.Context, topic string) (string, bool) {
	if c.cache != nil {
		if id, ok := c.cache.GetConcept(ctx, topic); ok {
			telemetry.ConceptCache.WithLabelValues("hit").Inc()
			return id, true
		}
		telemetry.ConceptCache.WithLabelValues("miss").Inc()
	}

	params := url.Values{}
	params.Set("search", topic)

	var out conceptList
	if err := c.getJSON(ctx, c.conceptHTTP, "/concepts", "concepts", params, &out); err != nil {
		c.logger.Printf("concept search %q: %v", topic, err)
		return "", false
	}
	if len(out.Results) == 0 {
		return "", false
	}
	id := out.Results[0].ID
	if c.cache != nil {
		c.cache.PutConcept(ctx, topic, id)
	}
	return id, true
}

// ResolveTopics maps topic names to concept ids, preserving order and
// skipping topics that resolve to nothing. A politeness pause follows every
// lookup.
func (c *Client) ResolveTopics(ctx context.Context, topics []string) []string {
	ids := make([]string, 0, len(topics))
	for _, topic := range topics {
		if id, ok := c.SearchConcept(ctx, topic); ok {
			ids = append(ids, id)
		}
		c.pause(ctx, c.conceptDelay)
	}
	return ids
}

// SearchWorks fetches one page of works tagged with any of the given
// concepts. Failures come back as an empty page.
func (c *Client) SearchWorks(ctx context.Context, conceptIDs []string, perPage int) WorksPage {
	if len(conceptIDs) == 0 {
		return WorksPage{Works: []Work{}}
	}

	filters := make([]string, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		filters = append(filters, "concepts.id:"+id)
	}
	params := url.Values{}
	params.Set("filter", strings.Join(filters, ","))
	params.Set("per-page", strconv.Itoa(perPage))
	params.Set("page", "1")

	var out WorksPage
	if err := c.getJSON(ctx, c.worksHTTP, "/works", "works", params, &out); err != nil {
		c.logger.Printf("works search: %v", err)
		return WorksPage{Works: []Work{}}
	}
	return out
}

// GetAuthor fetches a full author profile. ok is false when the author does
// not exist or the fetch failed.
func (c *Client) GetAuthor(ctx context.Context, id string) (Author, bool) {
	id = AuthorIDFromURL(id)

	var out Author
	err := c.getJSON(ctx, c.conceptHTTP, "/authors/"+url.PathEscape(id), "authors", url.Values{}, &out)
	if err != nil {
		if !errors.Is(err, errNotFound) {
			c.logger.Printf("author %s: %v", id, err)
		}
		return Author{}, false
	}
	return out, true
}

// GetAuthorWorks fetches the most recent works of an author. Failures come
// back as an empty page.
func (c *Client) GetAuthorWorks(ctx context.Context, id string, perPage int) WorksPage {
	id = AuthorIDFromURL(id)

	params := url.Values{}
	params.Set("filter", "author.id:"+id)
	params.Set("per-page", strconv.Itoa(perPage))
	params.Set("page", "1")

	var out WorksPage
	if err := c.getJSON(ctx, c.worksHTTP, "/works", "author_works", params, &out); err != nil {
		c.logger.Printf("author works %s: %v", id, err)
		return WorksPage{Works: []Work{}}
	}
	return out
}

func (c *Client) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// getJSON performs one logical GET with retries on 429 and 5xx responses.
// endpoint is the metrics label, not the request path.
func (c *Client) getJSON(ctx context.Context, hc *http.Client, path, endpoint string, params url.Values, out interface{}) error {
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	u := c.baseURL + path
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
				return ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := hc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := decodeJSON(resp.Body, out)
			resp.Body.Close()
			if err != nil {
				telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
				return fmt.Errorf("failed to parse response: %w", err)
			}
			telemetry.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
			return nil
		case resp.StatusCode == http.StatusNotFound:
			drain(resp.Body)
			telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
			return errNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			drain(resp.Body)
			lastErr = fmt.Errorf("API returned status: %d", resp.StatusCode)
		default:
			drain(resp.Body)
			telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
			return fmt.Errorf("API returned status: %d", resp.StatusCode)
		}
	}
	telemetry.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
	return lastErr
}

func decodeJSON(r io.Reader, out interface{}) error {
	return json.NewDecoder(r).Decode(out)
}

func drain(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 4096))
	r.Close()
}
