// Package metadata turns the hex-encoded URI stored on an NFT into the JSON
// document it points to.
package metadata

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20
)

// DefaultGateways are the public IPFS gateways tried in order.
var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
}

// Scheme classifies a decoded token URI.
type Scheme string

const (
	SchemeIPFS        Scheme = "ipfs"
	SchemeHTTP        Scheme = "http"
	SchemeEmbedded    Scheme = "embedded"
	SchemeUnsupported Scheme = "unsupported"
)

const ipfsPrefix = "ipfs://"

// Classify reports how a decoded URI must be fetched.
func Classify(uri string) Scheme {
	switch {
	case strings.HasPrefix(uri, ipfsPrefix):
		return SchemeIPFS
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return SchemeHTTP
	case strings.HasPrefix(uri, "{"), strings.HasPrefix(uri, "["):
		return SchemeEmbedded
	default:
		return SchemeUnsupported
	}
}

// DecodeURI hex-decodes a token URI and checks that it is valid UTF-8.
func DecodeURI(hexURI string) (string, error) {
	raw, err := hex.DecodeString(hexURI)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex in URI: %w", domain.ErrParse, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8 in URI", domain.ErrParse)
	}
	return string(raw), nil
}

// ParseDocument decodes a metadata document. A top-level array is accepted
// when its first element is an object; that element is the document.
func ParseDocument(data []byte) (*domain.MetadataDocument, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: metadata JSON: %w", domain.ErrParse, err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: metadata JSON array is empty", domain.ErrParse)
		}
		data = bytes.TrimSpace(items[0])
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: metadata JSON is not an object", domain.ErrParse)
	}

	var doc domain.MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: metadata JSON: %w", domain.ErrParse, err)
	}
	return &doc, nil
}

// Fetcher resolves token URIs to metadata documents.
// Safe for concurrent use.
type Fetcher struct {
	client       *http.Client
	gateways     []string
	maxBodyBytes int64
	logger       zerolog.Logger
}

// Option configures Fetcher.
type Option func(*Fetcher)

// WithGateways replaces the IPFS gateway list. Each entry is a base URL the CID is appended to.
func WithGateways(gateways []string) Option {
	return func(f *Fetcher) {
		f.gateways = append([]string(nil), gateways...)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithMaxBodyBytes caps the size of a downloaded document.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{Timeout: DefaultTimeout},
		gateways:     append([]string(nil), DefaultGateways...),
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Gateways returns the configured gateway base URLs.
func (f *Fetcher) Gateways() []string {
	return append([]string(nil), f.gateways...)
}

// ResolveURI decodes hexURI and loads the document it refers to.
func (f *Fetcher) ResolveURI(ctx context.Context, hexURI string) (*domain.MetadataDocument, error) {
	uri, err := DecodeURI(hexURI)
	if err != nil {
		observability.RecordMetadataFetch("invalid", err)
		return nil, err
	}

	scheme := Classify(uri)
	var doc *domain.MetadataDocument
	switch scheme {
	case SchemeIPFS:
		doc, err = f.fetchIPFS(ctx, strings.TrimPrefix(uri, ipfsPrefix))
	case SchemeHTTP:
		doc, err = f.fetchHTTP(ctx, uri)
	case SchemeEmbedded:
		doc, err = ParseDocument([]byte(uri))
	default:
		err = fmt.Errorf("%w: unsupported URI format: %s", domain.ErrMetadata, truncate(uri, 64))
	}

	observability.RecordMetadataFetch(string(scheme), err)
	return doc, err
}

// fetchIPFS tries each gateway in order; the first parsed document wins.
func (f *Fetcher) fetchIPFS(ctx context.Context, cid string) (*domain.MetadataDocument, error) {
	if cid == "" {
		return nil, fmt.Errorf("%w: empty IPFS path", domain.ErrMetadata)
	}

	var lastErr error
	for _, gateway := range f.gateways {
		doc, err := f.fetchHTTP(ctx, gateway+cid)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn().Err(err).Str("gateway", gateway).Str("cid", cid).Msg("ipfs gateway failed")
		observability.RecordGatewayFailure(gateway)
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: no IPFS gateways configured", domain.ErrMetadata)
	}
	return nil, fmt.Errorf("%w: all gateways failed: %w", domain.ErrMetadata, lastErr)
}

// fetchHTTP performs a single GET and parses the body as a metadata document.
func (f *Fetcher) fetchHTTP(ctx context.Context, url string) (*domain.MetadataDocument, error) {
	f.logger.Debug().Str("url", url).Msg("fetching metadata")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d: failed to fetch metadata from %s", domain.ErrNetwork, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrNetwork, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: metadata body exceeds %d bytes", domain.ErrMetadata, f.maxBodyBytes)
	}

	return ParseDocument(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
