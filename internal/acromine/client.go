// Package acromine is a client for the NaCTeM Acromine acronym dictionary.
package acromine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bool64/ctxd"
	cache "github.com/vearutop/fetchcache"
)

// DefaultBaseURL is the public dictionary endpoint.
const DefaultBaseURL = "http://www.nactem.ac.uk/software/acromine/dictionary.py"

func init() {
	cache.GobRegister(Result{})
}

// Meaning is a long form of an acronym.
type Meaning struct {
	LongForm  string `json:"lf"`
	Frequency int    `json:"freq"`
	Since     int    `json:"since"`
}

// Result lists meanings of an acronym.
type Result struct {
	Acronym  string    `json:"sf"`
	Meanings []Meaning `json:"lfs"`
}

// LongForms returns expansions in dictionary order.
func (r Result) LongForms() []string {
	res := make([]string, 0, len(r.Meanings))
	for _, m := range r.Meanings {
		res = append(res, m.LongForm)
	}

	return res
}

// Size implements cache.Sizer.
func (r Result) Size() int {
	n := len(r.Acronym) + 24*len(r.Meanings)
	for _, m := range r.Meanings {
		n += len(m.LongForm)
	}

	return n
}

// NormalizeKey trims and upper-cases acronym.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Client queries dictionary over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        ctxd.Logger
}

// NewClient creates a client, empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, logger ctxd.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if logger == nil {
		logger = ctxd.NoOpLogger{}
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        logger,
	}
}

// Lookup finds meanings of an acronym, cache.ErrNotFound is returned for unknown acronym.
func (c *Client) Lookup(ctx context.Context, acronym string) (Result, error) {
	acronym = strings.TrimSpace(acronym)
	if acronym == "" {
		return Result{}, cache.ErrEmptyKey
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("sf", acronym)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("acromine request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn(ctx, "failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read acromine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("acromine API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []Result
	if err := json.Unmarshal(body, &results); err != nil {
		return Result{}, fmt.Errorf("decode acromine response: %w", err)
	}

	c.log.Debug(ctx, "acromine response", "acronym", acronym, "results", len(results))

	for _, r := range results {
		if len(r.Meanings) > 0 {
			return r, nil
		}
	}

	return Result{}, cache.ErrNotFound
}

// Fetch implements cache.FetchFunc.
func (c *Client) Fetch(ctx context.Context, key string) (interface{}, error) {
	r, err := c.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	return r, nil
}
