// Package registry fetches study records from the ClinicalTrials.gov v2 API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the public registry.
const (
	DefaultURL       = "https://clinicaltrials.gov/api/v2/studies"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2.0
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// MaxIDsPageSize is the largest page the registry serves, which bounds a
// single identifier lookup.
const MaxIDsPageSize = 1000

// Fields is the projection requested for every study.
const Fields = "NCTId,BriefTitle,OverallStatus,DesignModule,ConditionsModule,DescriptionModule,EligibilityModule"

// ErrUnexpectedStatus indicates the registry answered with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected registry status")

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// PageRequest selects one page of a keyword search.
type PageRequest struct {
	Query    string
	PageSize int
	Token    string
}

// Page is one decoded registry response.
type Page struct {
	Records   []json.RawMessage
	NextToken string
}

// HasNext reports whether the registry offered a continuation token.
func (p Page) HasNext() bool { return p.NextToken != "" }

type pageBody struct {
	Studies       []json.RawMessage `json:"studies"`
	NextPageToken string            `json:"nextPageToken"`
}

// Client issues registry requests one at a time through a token bucket.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTransport sets the round tripper used by the default HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(cl *Client) {
		if rt != nil {
			cl.httpClient.Transport = rt
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the sustained request rate. Zero or less disables
// client-side limiting.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a Client for the studies endpoint at baseURL. An empty
// baseURL uses DefaultURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage returns one page of studies matching the query.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	params := url.Values{}
	params.Set("query.term", req.Query)
	params.Set("pageSize", strconv.Itoa(req.PageSize))
	params.Set("fields", Fields)
	if req.Token != "" {
		params.Set("pageToken", req.Token)
	}
	return c.get(ctx, params)
}

// FetchByIDs returns the studies with the given identifiers in one request.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) (Page, error) {
	if len(ids) == 0 {
		return Page{}, nil
	}
	params := url.Values{}
	params.Set("filter.ids", strings.Join(ids, ","))
	params.Set("pageSize", strconv.Itoa(min(len(ids), MaxIDsPageSize)))
	params.Set("fields", Fields)
	return c.get(ctx, params)
}

func (c *Client) get(ctx context.Context, params url.Values) (Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	endpoint := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch studies: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("registry request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(body))),
		)
		return Page{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body pageBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Page{}, fmt.Errorf("decode studies: %w", err)
	}

	c.logger.Debug("registry page fetched",
		slog.Int("records", len(body.Studies)),
		slog.Bool("has_next", body.NextPageToken != ""),
		slog.Duration("duration", time.Since(start)),
	)

	return Page{Records: body.Studies, NextToken: body.NextPageToken}, nil
}
