// Package prismic is a small client for Prismic-compatible headless CMS
// repositories: predicate search, single-document lookup, pagination and
// preview resolution.
package prismic

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
)

// DefaultTimeout bounds a single HTTP exchange with the repository.
const DefaultTimeout = 10 * time.Second

// MaxPageSize is the largest page the search endpoint accepts.
const MaxPageSize = 100

// QueryOptions are the search parameters shared by every lookup.
type QueryOptions struct {
	Fetch     []string // restrict returned fields, e.g. "posts.title"
	PageSize  int
	Page      int
	Ref       string // empty means the master ref
	Orderings []string
	Lang      string
}

// Client talks to one repository endpoint, e.g. https://repo.cdn.prismic.io/api/v2.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the repository access token.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the repository at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("prismic: endpoint %q must be http or https", endpoint)
	}
	c := &Client{
		endpoint: u,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the repository endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// API fetches the API root document.
func (c *Client) API(ctx context.Context) (API, error) {
	var api API
	if err := c.get(ctx, c.withToken(*c.endpoint), &api); err != nil {
		return API{}, err
	}
	return api, nil
}

// MasterRef returns the current master ref.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	api, err := c.API(ctx)
	if err != nil {
		return "", err
	}
	ref, ok := api.Master()
	if !ok {
		return "", ErrNoMasterRef
	}
	return ref, nil
}

// Query runs a predicate search and returns one page of results.
func (c *Client) Query(ctx context.Context, preds []Predicate, opts QueryOptions) (*Response, error) {
	if opts.Ref == "" {
		ref, err := c.MasterRef(ctx)
		if err != nil {
			return nil, err
		}
		opts.Ref = ref
	}
	var resp Response
	if err := c.get(ctx, c.searchURL(preds, opts), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryAll runs a predicate search and follows next_page until the last page.
// It stops after total_pages pages when the repository reports it, and fails
// with ErrPageLoop when a next_page URL repeats.
func (c *Client) QueryAll(ctx context.Context, preds []Predicate, opts QueryOptions) ([]Document, error) {
	if opts.PageSize == 0 {
		opts.PageSize = MaxPageSize
	}
	resp, err := c.Query(ctx, preds, opts)
	if err != nil {
		return nil, err
	}
	total := resp.TotalPages
	docs := append([]Document(nil), resp.Results...)
	seen := make(map[string]bool)
	for pages := 1; ; pages++ {
		next := resp.Next()
		if next == "" || (total > 0 && pages >= total) {
			break
		}
		if seen[next] {
			return nil, fmt.Errorf("%w: page %d", ErrPageLoop, pages+1)
		}
		seen[next] = true
		resp, err = c.FetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		docs = append(docs, resp.Results...)
	}
	return docs, nil
}

// GetByUID returns the document of docType with the given uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error) {
	return c.single(ctx, []Predicate{At("my."+docType+".uid", uid)}, opts)
}

// GetByID returns the document with the given id.
func (c *Client) GetByID(ctx context.Context, id string, opts QueryOptions) (*Document, error) {
	return c.single(ctx, []Predicate{At("document.id", id)}, opts)
}

func (c *Client) single(ctx context.Context, preds []Predicate, opts QueryOptions) (*Document, error) {
	opts.PageSize = 1
	opts.Page = 1
	resp, err := c.Query(ctx, preds, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// FetchPage GETs a next_page URL previously returned by the repository.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Response, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("prismic: parse page url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, c.endpoint.Scheme) || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, fmt.Errorf("%w: %s", ErrForeignURL, pageURL)
	}
	var resp Response
	if err := c.get(ctx, c.withToken(*u), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResolvePreviewURL returns the URL of the document being previewed under
// token, or fallback when the document cannot be identified.
func (c *Client) ResolvePreviewURL(ctx context.Context, token, documentID string, resolve LinkResolver, fallback string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("prismic: empty preview token")
	}
	if documentID == "" || resolve == nil {
		return fallback, nil
	}
	doc, err := c.GetByID(ctx, documentID, QueryOptions{Ref: token})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}
		return "", err
	}
	if u := resolve(*doc); u != "" {
		return u, nil
	}
	return fallback, nil
}

func (c *Client) searchURL(preds []Predicate, opts QueryOptions) url.URL {
	u := *c.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + "/documents/search"
	q := url.Values{}
	q.Set("ref", opts.Ref)
	if len(preds) > 0 {
		q.Set("q", Query(preds...))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if len(opts.Orderings) > 0 {
		q.Set("orderings", "["+strings.Join(opts.Orderings, ",")+"]")
	}
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	u.RawQuery = q.Encode()
	return c.withToken(u)
}

func (c *Client) withToken(u url.URL) url.URL {
	if c.accessToken == "" {
		return u
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, u url.URL, v any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prismic: get %s: %w", redact(u), err)
	}
	defer res.Body.Close()
	c.logger.Debug("prismic request", "url", redact(u), "status", res.StatusCode, "latency", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(body), URL: redact(u)}
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("prismic: decode %s: %w", redact(u), err)
	}
	return nil
}

// redact hides the access token when a URL ends up in logs or errors.
func redact(u url.URL) string {
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
