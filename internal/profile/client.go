// Package profile fetches optional address bindings and text records for a
// domain from a naming service's profile API.
package profile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"xns-resolver/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 256 << 10
)

// TextRecordKeys are the profile_info fields copied into text records.
var TextRecordKeys = []string{"email", "twitter", "github", "website"}

// Profile is the enrichment data for one domain.
type Profile struct {
	Addresses   map[string]string // chain symbol (lowercase) -> address
	TextRecords map[string]string
}

// Client queries a profile API.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithRateLimit caps requests per second to the profile API. Zero disables the cap.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a profile client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch loads the profile of name from endpoint (GET endpoint?domain=name).
// Missing fields are not an error; a non-2xx status or a body without a data
// object is.
func (c *Client) Fetch(ctx context.Context, endpoint, name string) (*Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: profile endpoint %q: %w", domain.ErrNetwork, endpoint, err)
	}
	q := u.Query()
	q.Set("domain", name)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrNetwork, u.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d from profile API", domain.ErrNetwork, resp.StatusCode)
	}

	return Parse(body)
}

// Parse extracts addresses and text records from a profile API body.
func Parse(body []byte) (*Profile, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: profile body is not valid JSON", domain.ErrParse)
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: profile body has no data object", domain.ErrParse)
	}

	p := &Profile{
		Addresses:   make(map[string]string),
		TextRecords: make(map[string]string),
	}

	data.Get("addresses").ForEach(func(_, entry gjson.Result) bool {
		symbol := entry.Get("symbol")
		address := entry.Get("address")
		if symbol.Type == gjson.String && address.Type == gjson.String && symbol.Str != "" {
			p.Addresses[strings.ToLower(symbol.Str)] = address.Str
		}
		return true
	})

	info := data.Get("profile_info")
	for _, key := range TextRecordKeys {
		if v := info.Get(key); v.Type == gjson.String && v.Str != "" {
			p.TextRecords[key] = v.Str
		}
	}

	return p, nil
}
