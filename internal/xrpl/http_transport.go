package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPTransport implements Transport using the JSON-RPC envelope of rippled and Clio.
type HTTPTransport struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	logger      zerolog.Logger
}

// TransportOption configures HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport failures and 429s.
func WithMaxRetries(n int) TransportOption {
	return func(t *HTTPTransport) {
		t.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates a JSON-RPC transport for the given endpoint.
func NewHTTPTransport(endpoint string, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Endpoint returns the URL requests are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// rpcRequest is the rippled JSON-RPC request envelope.
type rpcRequest struct {
	Method string           `json:"method"`
	Params []map[string]any `json:"params"`
}

// rpcResponse is the rippled JSON-RPC response envelope.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

// Call performs a JSON-RPC call. Transport failures and 429 responses are retried
// with exponential backoff; any other non-2xx status fails immediately.
func (t *HTTPTransport) Call(ctx context.Context, method string, params map[string]any, result any) error {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: []map[string]any{params}})
	if err != nil {
		return fmt.Errorf("%w: marshal %s request: %v", domain.ErrInternal, method, err)
	}

	start := time.Now()
	err = t.do(ctx, method, body, result)
	observability.RecordRPCCall(method, time.Since(start).Seconds(), err)
	return err
}

func (t *HTTPTransport) do(ctx context.Context, method string, body []byte, result any) error {
	delay := t.retryDelay
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * t.backoffMult)
			if delay > t.maxDelay {
				delay = t.maxDelay
			}
		}

		t.logger.Debug().Str("method", method).Str("endpoint", t.endpoint).Int("attempt", attempt).Msg("xrpl request")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%w: create request: %v", domain.ErrInternal, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %s: %w", domain.ErrNetwork, method, err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read %s response: %w", domain.ErrNetwork, method, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: HTTP %d: %s", domain.ErrRPC, resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%w: HTTP %d: %s", domain.ErrRPC, resp.StatusCode, string(respBody))
		}

		return decodeResult(method, respBody, result)
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// decodeResult unwraps the result object, surfacing ledger-reported failures.
func decodeResult(method string, body []byte, result any) error {
	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: unmarshal %s response: %w", domain.ErrParse, method, err)
	}
	if !present(rpcResp.Result) {
		return fmt.Errorf("%w: %s: response has no result", domain.ErrParse, method)
	}

	var status ledgerStatus
	if err := json.Unmarshal(rpcResp.Result, &status); err == nil && status.Status == "error" {
		return fmt.Errorf("%w: %s: %s %s", domain.ErrRPC, method, status.Error, status.ErrorMessage)
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal %s result: %w", domain.ErrParse, method, err)
		}
	}
	return nil
}

var _ Transport = (*HTTPTransport)(nil)
