package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"critterdex/internal/common"
	"critterdex/internal/logging"
)

// searchScanLimit is how many names the search endpoint scans; substring
// search runs locally over one large listing page.
const searchScanLimit = 1000

const defaultHTTPTimeout = 10 * time.Second

// Options tunes a Client. The zero value is usable.
type Options struct {
	Timeout time.Duration // per-request timeout, defaults to 10s
	Cache   *Cache        // optional local record cache
	Logger  logging.Logger
}

// Client talks to the creature catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
	log        logging.Logger
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      opts.Cache,
		log:        logging.OrNop(opts.Logger).With("component", "catalog"),
	}
}

// doRequest performs a GET against path and unmarshals the response into
// result. Server-side failures (5xx) and transport errors are retried with
// fibonacci backoff; 404 maps to common.ErrorNotFound.
func (c *Client) doRequest(ctx context.Context, path string, result any) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", path, common.ErrorNotFound)
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)))
		case resp.StatusCode >= 400:
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
}

// GetByID fetches a single creature by id.
func (c *Client) GetByID(ctx context.Context, id int) (*Creature, error) {
	if id <= 0 {
		return nil, errors.New("invalid creature id: must be a positive integer")
	}
	if c.cache != nil {
		if creature, ok, err := c.cache.GetByID(ctx, id); err != nil {
			c.log.Warn(ctx, "cache lookup failed", "id", id, "error", err)
		} else if ok {
			return creature, nil
		}
	}

	var creature Creature
	if err := c.doRequest(ctx, fmt.Sprintf("/creatures/%d", id), &creature); err != nil {
		return nil, fmt.Errorf("failed to fetch creature %d: %w", id, err)
	}
	c.cachePut(ctx, &creature)
	return &creature, nil
}

// GetByName fetches a single creature by name. Names are normalized to
// lowercase and surrounding whitespace is dropped.
func (c *Client) GetByName(ctx context.Context, name string) (*Creature, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("invalid creature name: must be a non-empty string")
	}
	if c.cache != nil {
		if creature, ok, err := c.cache.GetByName(ctx, name); err != nil {
			c.log.Warn(ctx, "cache lookup failed", "name", name, "error", err)
		} else if ok {
			return creature, nil
		}
	}

	var creature Creature
	if err := c.doRequest(ctx, "/creatures/"+url.PathEscape(name), &creature); err != nil {
		return nil, fmt.Errorf("failed to fetch creature %q: %w", name, err)
	}
	c.cachePut(ctx, &creature)
	return &creature, nil
}

// List fetches one page of the catalog with every record fully resolved.
func (c *Client) List(ctx context.Context, offset, limit int) (*Page, error) {
	if limit <= 0 || offset < 0 {
		return nil, errors.New("invalid pagination parameters: limit must be > 0 and offset must be >= 0")
	}

	var list listResponse
	path := fmt.Sprintf("/creatures?offset=%d&limit=%d", offset, limit)
	if err := c.doRequest(ctx, path, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch creature list: %w", err)
	}

	results, err := c.resolveAll(ctx, list.Results)
	if err != nil {
		return nil, err
	}
	return &Page{
		Count:    list.Count,
		Next:     list.Next,
		Previous: list.Previous,
		Results:  results,
	}, nil
}

// Search matches creatures whose name contains query, resolving at most
// limit records. Matching is local over the first searchScanLimit names.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Creature, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.New("invalid search query: must be a non-empty string")
	}
	if limit <= 0 {
		return nil, errors.New("invalid limit: must be greater than 0")
	}

	var list listResponse
	path := fmt.Sprintf("/creatures?offset=0&limit=%d", searchScanLimit)
	if err := c.doRequest(ctx, path, &list); err != nil {
		return nil, fmt.Errorf("failed to search creatures: %w", err)
	}

	var matched []NamedRef
	for _, ref := range list.Results {
		if strings.Contains(strings.ToLower(ref.Name), query) {
			matched = append(matched, ref)
			if len(matched) == limit {
				break
			}
		}
	}
	return c.resolveAll(ctx, matched)
}

// ListByCategory fetches all creature names of a category and paginates
// locally, resolving only the requested window.
func (c *Client) ListByCategory(ctx context.Context, category string, offset, limit int) (*CategoryPage, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil, errors.New("invalid category: must be a non-empty string")
	}
	if limit <= 0 || offset < 0 {
		return nil, errors.New("invalid pagination parameters: limit must be > 0 and offset must be >= 0")
	}

	var cat categoryResponse
	if err := c.doRequest(ctx, "/categories/"+url.PathEscape(category), &cat); err != nil {
		return nil, fmt.Errorf("failed to fetch category %q: %w", category, err)
	}

	total := len(cat.Creatures)
	if offset >= total {
		return &CategoryPage{Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	results, err := c.resolveAll(ctx, cat.Creatures[offset:end])
	if err != nil {
		return nil, err
	}
	return &CategoryPage{
		Results: results,
		HasMore: end < total,
		Total:   total,
	}, nil
}

// resolveAll turns name references into full records, one request per
// reference (cache hits skip the network).
func (c *Client) resolveAll(ctx context.Context, refs []NamedRef) ([]Creature, error) {
	results := make([]Creature, 0, len(refs))
	for _, ref := range refs {
		creature, err := c.GetByName(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		results = append(results, *creature)
	}
	return results, nil
}

func (c *Client) cachePut(ctx context.Context, creature *Creature) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, creature); err != nil {
		c.log.Warn(ctx, "cache store failed", "name", creature.Name, "error", err)
	}
}
