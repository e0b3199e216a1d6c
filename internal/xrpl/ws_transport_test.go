package xrpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xns-resolver/internal/domain"
)

// newWSServer starts a WebSocket server that answers each command with respond.
func newWSServer(t *testing.T, respond func(req map[string]any) map[string]any) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := respond(req)
			if resp == nil {
				continue
			}
			resp["id"] = req["id"]
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testWSConfig() *WSConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	return &cfg
}

func TestWSTransport_Call(t *testing.T) {
	url := newWSServer(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "account_nfts", req["command"])
		assert.Equal(t, "rHolder", req["account"])
		return map[string]any{
			"status": "success",
			"type":   "response",
			"result": map[string]any{
				"account":      "rHolder",
				"account_nfts": []map[string]any{{"NFTokenID": "T1", "URI": "AA"}},
			},
		}
	})

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer transport.Close()

	client := NewClient(transport, transport, zerolog.Nop())
	tokens, err := client.ListTokens(context.Background(), "rHolder")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "T1", tokens[0].ID)
}

func TestWSTransport_ErrorStatus(t *testing.T) {
	url := newWSServer(t, func(req map[string]any) map[string]any {
		return map[string]any{
			"status":        "error",
			"type":          "response",
			"error":         "actNotFound",
			"error_message": "Account not found.",
		}
	})

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer transport.Close()

	err = transport.Call(context.Background(), "account_info", map[string]any{"account": "rMissing"}, nil)
	require.ErrorIs(t, err, domain.ErrRPC)
	assert.Contains(t, err.Error(), "actNotFound")
}

func TestWSTransport_ContextCancel(t *testing.T) {
	url := newWSServer(t, func(req map[string]any) map[string]any {
		return nil // never answer
	})

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = transport.Call(ctx, "account_info", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWSTransport_ClosedTransport(t *testing.T) {
	url := newWSServer(t, func(req map[string]any) map[string]any {
		return map[string]any{"status": "success", "result": map[string]any{}}
	})

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close(), "close is idempotent")

	err = transport.Call(context.Background(), "account_info", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestDialWS_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	_, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

// newFlakyWSServer drops the first connection and rejects upgrades while
// reject returns true for the attempt number. Accepted connections answer
// every command with an empty success result.
func newFlakyWSServer(t *testing.T, reject func(attempt int32) bool) (string, *atomic.Int32) {
	t.Helper()
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n > 1 && reject(n) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if n == 1 {
			return
		}

		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := map[string]any{"id": req["id"], "status": "success", "result": map[string]any{}}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), &attempts
}

func TestWSTransport_ReconnectsAfterFailedDial(t *testing.T) {
	url, attempts := newFlakyWSServer(t, func(n int32) bool { return n == 2 })

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer transport.Close()

	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		return transport.Call(ctx, "server_info", nil, nil) == nil
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestWSTransport_CloseStopsReconnecting(t *testing.T) {
	url, attempts := newFlakyWSServer(t, func(int32) bool { return true })

	transport, err := DialWS(context.Background(), url, testWSConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return attempts.Load() >= 3 }, 3*time.Second, 10*time.Millisecond,
		"keeps dialing while the node rejects upgrades")

	require.NoError(t, transport.Close())
	seen := attempts.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, seen, attempts.Load())
}
