package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/observability"
)

// WSConfig configures WebSocket transport behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds the wait for a response when ctx has no deadline.
	RequestTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestTimeout:    30 * time.Second,
	}
}

// WSTransport implements Transport over the rippled WebSocket API.
// Requests are correlated with responses by id, so concurrent calls share one connection.
type WSTransport struct {
	endpoint string
	config   WSConfig
	logger   zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// pending maps request id to the channel waiting for its response
	pending   map[string]chan wsResponse
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// DialWS connects to endpoint and starts the read and ping loops.
func DialWS(ctx context.Context, endpoint string, config *WSConfig, logger zerolog.Logger) (*WSTransport, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	t := &WSTransport{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		pending:  make(map[string]chan wsResponse),
		done:     make(chan struct{}),
	}

	if err := t.connect(ctx); err != nil {
		return nil, err
	}

	t.wg.Add(1)
	go t.readLoop()

	t.wg.Add(1)
	go t.pingLoop()

	return t, nil
}

// connect establishes WebSocket connection.
func (t *WSTransport) connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, t.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket dial: %w", domain.ErrNetwork, err)
	}
	if t.closed.Load() {
		conn.Close()
		return fmt.Errorf("%w: websocket transport closed", domain.ErrNetwork)
	}

	t.conn = conn
	return nil
}

// Call sends a command and waits for the response carrying the same id.
func (t *WSTransport) Call(ctx context.Context, method string, params map[string]any, result any) error {
	start := time.Now()
	err := t.call(ctx, method, params, result)
	observability.RecordRPCCall(method, time.Since(start).Seconds(), err)
	return err
}

func (t *WSTransport) call(ctx context.Context, method string, params map[string]any, result any) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: websocket transport closed", domain.ErrNetwork)
	}

	reqID := uuid.NewString()
	req := make(map[string]any, len(params)+2)
	for k, v := range params {
		req[k] = v
	}
	req["id"] = reqID
	req["command"] = method

	respCh := make(chan wsResponse, 1)
	t.pendingMu.Lock()
	t.pending[reqID] = respCh
	t.pendingMu.Unlock()
	defer t.forget(reqID)

	t.connMu.Lock()
	if t.conn == nil {
		t.connMu.Unlock()
		return fmt.Errorf("%w: websocket not connected", domain.ErrNetwork)
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	err := t.conn.WriteJSON(req)
	t.connMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrNetwork, method, err)
	}

	t.logger.Debug().Str("method", method).Str("id", reqID).Msg("xrpl ws request")

	var timeout <-chan time.Time
	if _, ok := ctx.Deadline(); !ok && t.config.RequestTimeout > 0 {
		timer := time.NewTimer(t.config.RequestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("%w: connection lost waiting for %s", domain.ErrNetwork, method)
		}
		return resp.decode(method, result)
	case <-timeout:
		return fmt.Errorf("%w: %s timed out after %s", domain.ErrNetwork, method, t.config.RequestTimeout)
	case <-t.done:
		return fmt.Errorf("%w: websocket transport closed", domain.ErrNetwork)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *WSTransport) forget(reqID string) {
	t.pendingMu.Lock()
	delete(t.pending, reqID)
	t.pendingMu.Unlock()
}

// Close closes the WebSocket connection and fails outstanding calls.
func (t *WSTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	close(t.done)

	t.connMu.Lock()
	if t.conn != nil {
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.conn.Close()
	}
	t.connMu.Unlock()

	t.failPending()
	t.wg.Wait()
	return nil
}

// failPending closes every waiting channel; callers see a lost connection.
func (t *WSTransport) failPending() {
	t.pendingMu.Lock()
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
	t.pendingMu.Unlock()
}

// readLoop reads responses and hands them to the waiting callers.
func (t *WSTransport) readLoop() {
	defer t.wg.Done()

	for !t.closed.Load() {
		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()

		if conn == nil {
			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}

			t.logger.Warn().Err(err).Str("endpoint", t.endpoint).Msg("websocket read failed, reconnecting")
			t.failPending()

			if !t.reconnecting.Swap(true) {
				t.dropConn(conn)
				t.wg.Add(1)
				go t.reconnect()
			}

			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		t.handleMessage(message)
	}
}

// dropConn closes conn and clears it if it is still the current connection.
func (t *WSTransport) dropConn(conn *websocket.Conn) {
	t.connMu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.connMu.Unlock()
	conn.Close()
}

// reconnect dials until a connection is established or the transport closes.
// The delay between attempts doubles up to MaxReconnectDelay.
func (t *WSTransport) reconnect() {
	defer t.wg.Done()
	defer t.reconnecting.Store(false)

	delay := t.config.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-t.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := t.connect(ctx)
		cancel()
		if err == nil {
			t.logger.Info().Str("endpoint", t.endpoint).Int("attempt", attempt).Msg("websocket reconnected")
			return
		}
		if t.closed.Load() {
			return
		}
		t.logger.Warn().Err(err).Str("endpoint", t.endpoint).Int("attempt", attempt).Msg("websocket reconnect failed")

		delay *= 2
		if t.config.MaxReconnectDelay > 0 && delay > t.config.MaxReconnectDelay {
			delay = t.config.MaxReconnectDelay
		}
	}
}

// handleMessage routes a response to its caller. Unsolicited messages are dropped.
func (t *WSTransport) handleMessage(message []byte) {
	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		t.logger.Warn().Err(err).Msg("undecodable websocket message")
		return
	}

	var id string
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		return
	}

	t.pendingMu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (t *WSTransport) pingLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.connMu.Lock()
			if t.conn != nil {
				t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
				if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					t.logger.Debug().Err(err).Msg("websocket ping failed")
				}
			}
			t.connMu.Unlock()
		}
	}
}

// wsResponse is the rippled WebSocket response envelope.
type wsResponse struct {
	ID           json.RawMessage `json:"id"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

func (r wsResponse) decode(method string, result any) error {
	if r.Status == "error" {
		return fmt.Errorf("%w: %s: %s %s", domain.ErrRPC, method, r.Error, r.ErrorMessage)
	}
	if !present(r.Result) {
		return fmt.Errorf("%w: %s: response has no result", domain.ErrParse, method)
	}
	if result != nil {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal %s result: %w", domain.ErrParse, method, err)
		}
	}
	return nil
}

var _ Transport = (*WSTransport)(nil)
