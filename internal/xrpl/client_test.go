package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xns-resolver/internal/domain"
)

type rpcCall struct {
	Method string
	Params map[string]any
}

// newRPCServer starts a JSON-RPC server answering every call with handle's result.
func newRPCServer(t *testing.T, handle func(call rpcCall) (int, any)) (*httptest.Server, func() []rpcCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []rpcCall

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !assert.Len(t, req.Params, 1) {
			return
		}

		call := rpcCall{Method: req.Method, Params: req.Params[0]}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		status, result := handle(call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := result.(string); ok {
			w.Write([]byte(s))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": result})
	}))
	t.Cleanup(server.Close)

	return server, func() []rpcCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]rpcCall(nil), calls...)
	}
}

func newTestClient(node, indexer string) *Client {
	opts := []TransportOption{WithRetryDelay(time.Millisecond), WithMaxRetries(1)}
	return NewClient(NewHTTPTransport(node, opts...), NewHTTPTransport(indexer, opts...), zerolog.Nop())
}

func TestClient_ListTokens_FollowsMarkers(t *testing.T) {
	pages := map[string]map[string]any{
		"": {
			"account":      "rHolder",
			"account_nfts": []map[string]any{{"NFTokenID": "T1", "URI": "AA"}, {"NFTokenID": "T2"}},
			"marker":       "m1",
		},
		"m1": {
			"account":      "rHolder",
			"account_nfts": []map[string]any{{"NFTokenID": "T3", "Issuer": "rIssuer"}},
			"marker":       "m2",
		},
		"m2": {
			"account":      "rHolder",
			"account_nfts": []map[string]any{{"NFTokenID": "T4", "NFTokenTaxon": 7, "nft_serial": 9}},
		},
	}

	server, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		marker, _ := call.Params["marker"].(string)
		return http.StatusOK, pages[marker]
	})

	client := newTestClient(server.URL, server.URL)
	tokens, err := client.ListTokens(context.Background(), "rHolder")
	require.NoError(t, err)

	require.Len(t, tokens, 4)
	assert.Equal(t, []string{"T1", "T2", "T3", "T4"}, []string{tokens[0].ID, tokens[1].ID, tokens[2].ID, tokens[3].ID})
	assert.Equal(t, "AA", tokens[0].URI)
	assert.False(t, tokens[1].HasURI())
	assert.Equal(t, "rIssuer", tokens[2].Issuer)
	assert.Equal(t, uint32(7), tokens[3].Taxon)
	assert.Equal(t, uint32(9), tokens[3].Serial)
	assert.Equal(t, "rHolder", tokens[0].Owner)

	require.Len(t, calls(), 3, "stops when a page omits the marker")
	for i, call := range calls() {
		assert.Equal(t, "account_nfts", call.Method)
		assert.Equal(t, float64(AccountNFTsPageLimit), call.Params["limit"])
		assert.Equal(t, "validated", call.Params["ledger_index"])
		assert.Equal(t, "rHolder", call.Params["account"])
		if i == 0 {
			assert.NotContains(t, call.Params, "marker")
		}
	}
	assert.Equal(t, "m1", calls()[1].Params["marker"])
	assert.Equal(t, "m2", calls()[2].Params["marker"])
}

func TestClient_ListTokens_StuckMarker(t *testing.T) {
	server, _ := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, map[string]any{"account_nfts": []any{}, "marker": "same"}
	})

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListTokens(context.Background(), "rHolder")
	assert.ErrorIs(t, err, domain.ErrRPC)
}

func TestClient_ListTokens_HTTPError(t *testing.T) {
	server, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusInternalServerError, "node overloaded"
	})

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListTokens(context.Background(), "rHolder")
	require.ErrorIs(t, err, domain.ErrRPC)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "node overloaded")
	assert.Len(t, calls(), 1, "non-2xx statuses other than 429 are not retried")
}

func TestClient_ListTokens_LedgerErrorStatus(t *testing.T) {
	server, _ := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, map[string]any{"status": "error", "error": "actNotFound", "error_message": "Account not found."}
	})

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListTokens(context.Background(), "rMissing")
	require.ErrorIs(t, err, domain.ErrRPC)
	assert.Contains(t, err.Error(), "actNotFound")
}

func TestClient_ListTokens_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, url)
	_, err := client.ListTokens(context.Background(), "rHolder")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClient_ListTokens_MalformedBody(t *testing.T) {
	server, _ := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, "{not json"
	})

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListTokens(context.Background(), "rHolder")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestHTTPTransport_RetriesRateLimit(t *testing.T) {
	var attempts atomic.Int32
	server, _ := newRPCServer(t, func(call rpcCall) (int, any) {
		if attempts.Add(1) == 1 {
			return http.StatusTooManyRequests, "slow down"
		}
		return http.StatusOK, map[string]any{"account_nfts": []any{}}
	})

	client := newTestClient(server.URL, server.URL)
	tokens, err := client.ListTokens(context.Background(), "rHolder")
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_ListTokensByIssuer(t *testing.T) {
	indexer, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		assert.Equal(t, "nfts_by_issuer", call.Method)
		if call.Params["marker"] == nil {
			return http.StatusOK, map[string]any{
				"issuer": "rIssuer",
				"nfts": []map[string]any{
					{"nft_id": "T1", "owner": "rA", "uri": "AB", "issuer": "rIssuer"},
				},
				"marker": "next",
			}
		}
		return http.StatusOK, map[string]any{
			"issuer": "rIssuer",
			"nfts":   []map[string]any{{"nft_id": "T2", "owner": "rB"}},
		}
	})
	node, nodeCalls := newRPCServer(t, func(call rpcCall) (int, any) {
		t.Errorf("node must not be queried, got %s", call.Method)
		return http.StatusOK, map[string]any{}
	})

	client := newTestClient(node.URL, indexer.URL)
	tokens, err := client.ListTokensByIssuer(context.Background(), "rIssuer", 0)
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.Equal(t, domain.TokenRecord{ID: "T1", Owner: "rA", URI: "AB", Issuer: "rIssuer"}, tokens[0])
	assert.Equal(t, "rB", tokens[1].Owner)
	assert.Len(t, calls(), 2)
	assert.Equal(t, "validated", calls()[0].Params["ledger_index"])
	assert.NotContains(t, calls()[0].Params, "limit")
	assert.Empty(t, nodeCalls())
}

func TestClient_ListTokensByIssuer_SkipsBurned(t *testing.T) {
	indexer, _ := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, map[string]any{
			"nfts": []map[string]any{
				{"nft_id": "T1", "uri": "AA"},
				{"nft_id": "GONE", "uri": "BB", "is_burned": true},
				{"nft_id": "T3", "uri": "CC"},
			},
		}
	})

	client := newTestClient(indexer.URL, indexer.URL)
	tokens, err := client.ListTokensByIssuer(context.Background(), "rIssuer", 0)
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.Equal(t, "T1", tokens[0].ID)
	assert.Equal(t, "T3", tokens[1].ID)
}

func TestClient_ListTokensByIssuer_Limit(t *testing.T) {
	indexer, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, map[string]any{
			"nfts":   []map[string]any{{"nft_id": "T1"}, {"nft_id": "T2"}, {"nft_id": "T3"}},
			"marker": "more",
		}
	})

	client := newTestClient(indexer.URL, indexer.URL)
	tokens, err := client.ListTokensByIssuer(context.Background(), "rIssuer", 2)
	require.NoError(t, err)

	assert.Len(t, tokens, 2)
	require.Len(t, calls(), 1)
	assert.Equal(t, float64(2), calls()[0].Params["limit"])
}

func TestClient_GetTokenOwnership(t *testing.T) {
	indexer, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		switch call.Params["nft_id"] {
		case "LIVE":
			return http.StatusOK, map[string]any{"nft_id": "LIVE", "owner": "rOwner1", "is_burned": false}
		default:
			return http.StatusOK, map[string]any{"nft_id": "DEAD", "owner": "rOwner2", "is_burned": true}
		}
	})

	client := newTestClient(indexer.URL, indexer.URL)

	own, err := client.GetTokenOwnership(context.Background(), "LIVE")
	require.NoError(t, err)
	assert.Equal(t, "rOwner1", own.Owner)
	assert.False(t, own.IsBurned)
	assert.Equal(t, "nft_info", calls()[0].Method)

	_, err = client.GetTokenOwnership(context.Background(), "DEAD")
	assert.ErrorIs(t, err, domain.ErrDomainNotFound)
}

func TestClient_GetAccountSummary(t *testing.T) {
	node, calls := newRPCServer(t, func(call rpcCall) (int, any) {
		return http.StatusOK, map[string]any{"account_data": map[string]any{"Account": "rHolder", "Balance": "1000"}}
	})

	client := newTestClient(node.URL, node.URL)
	raw, err := client.GetAccountSummary(context.Background(), "rHolder")
	require.NoError(t, err)

	assert.JSONEq(t, `{"account_data":{"Account":"rHolder","Balance":"1000"}}`, string(raw))
	assert.Equal(t, "account_info", calls()[0].Method)
	assert.Equal(t, "validated", calls()[0].Params["ledger_index"])
}
