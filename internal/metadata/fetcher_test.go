package metadata

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xns-resolver/internal/domain"
)

func hexOf(s string) string {
	return hex.EncodeToString([]byte(s))
}

func TestClassify(t *testing.T) {
	tests := map[string]Scheme{
		"ipfs://bafy/1.json":    SchemeIPFS,
		"https://example.com/m": SchemeHTTP,
		"http://example.com/m":  SchemeHTTP,
		`{"name":"a.xrp"}`:      SchemeEmbedded,
		`[{"name":"a.xrp"}]`:    SchemeEmbedded,
		"ftp://example.com/m":   SchemeUnsupported,
		"HTTPS://example.com/m": SchemeUnsupported,
		"":                      SchemeUnsupported,
	}
	for uri, want := range tests {
		assert.Equal(t, want, Classify(uri), uri)
	}
}

func TestResolveURI_Embedded(t *testing.T) {
	f := NewFetcher()
	doc, err := f.ResolveURI(context.Background(), hexOf(`{"name":"ckelley.xrp","attributes":[{"trait_type":"tier","value":3}]}`))
	require.NoError(t, err)
	assert.Equal(t, "ckelley.xrp", doc.Name)
	require.Len(t, doc.Attributes, 1)
	assert.Equal(t, float64(3), doc.Attributes[0].Value)
}

func TestResolveURI_EmbeddedArrayTakesFirstObject(t *testing.T) {
	f := NewFetcher()
	doc, err := f.ResolveURI(context.Background(), hexOf(`[{"name":"first.xrp"},{"name":"second.xrp"}]`))
	require.NoError(t, err)
	assert.Equal(t, "first.xrp", doc.Name)

	_, err = f.ResolveURI(context.Background(), hexOf(`[]`))
	assert.ErrorIs(t, err, domain.ErrParse)

	_, err = f.ResolveURI(context.Background(), hexOf(`["a.xrp"]`))
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestResolveURI_DecodeErrors(t *testing.T) {
	f := NewFetcher()

	_, err := f.ResolveURI(context.Background(), "zz")
	assert.ErrorIs(t, err, domain.ErrParse, "invalid hex")

	_, err = f.ResolveURI(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrParse, "odd length")

	_, err = f.ResolveURI(context.Background(), "fffe")
	assert.ErrorIs(t, err, domain.ErrParse, "invalid UTF-8")

	_, err = f.ResolveURI(context.Background(), hexOf(`{"name":`))
	assert.ErrorIs(t, err, domain.ErrParse, "truncated JSON")
}

func TestResolveURI_Unsupported(t *testing.T) {
	f := NewFetcher()
	_, err := f.ResolveURI(context.Background(), hexOf("ftp://example.com/meta.json"))
	require.ErrorIs(t, err, domain.ErrMetadata)
	assert.Contains(t, err.Error(), "unsupported URI format")
}

func TestResolveURI_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			w.Write([]byte(`{"name":"web.xrp","domain":"web.xrp","website":"https://web.example"}`))
		case "/bad.json":
			w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := NewFetcher()

	doc, err := f.ResolveURI(context.Background(), hexOf(server.URL+"/ok.json"))
	require.NoError(t, err)
	assert.Equal(t, "web.xrp", doc.Name)
	assert.Equal(t, "https://web.example", doc.Extra["website"])

	_, err = f.ResolveURI(context.Background(), hexOf(server.URL+"/missing.json"))
	assert.ErrorIs(t, err, domain.ErrNetwork)

	_, err = f.ResolveURI(context.Background(), hexOf(server.URL+"/bad.json"))
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestResolveURI_HTTPBodyCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"big.xrp","description":"` + strings.Repeat("x", 2048) + `"}`))
	}))
	defer server.Close()

	f := NewFetcher(WithMaxBodyBytes(1024))
	_, err := f.ResolveURI(context.Background(), hexOf(server.URL+"/big.json"))
	assert.ErrorIs(t, err, domain.ErrMetadata)
}

func TestResolveURI_IPFSGatewayFallback(t *testing.T) {
	var failing atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failing.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	var mu sync.Mutex
	var paths []string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`{"name":"ipfs.xrp"}`))
	}))
	defer up.Close()

	f := NewFetcher(WithGateways([]string{
		down.URL + "/ipfs/",
		down.URL + "/other/",
		up.URL + "/ipfs/",
	}))

	doc, err := f.ResolveURI(context.Background(), hexOf("ipfs://bafyCID/meta.json"))
	require.NoError(t, err)
	assert.Equal(t, "ipfs.xrp", doc.Name)
	assert.Equal(t, int32(2), failing.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/ipfs/bafyCID/meta.json"}, paths)
}

func TestResolveURI_IPFSAllGatewaysFail(t *testing.T) {
	var hits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	f := NewFetcher(WithGateways([]string{down.URL + "/a/", down.URL + "/b/", down.URL + "/c/"}))

	_, err := f.ResolveURI(context.Background(), hexOf("ipfs://bafyCID"))
	require.ErrorIs(t, err, domain.ErrMetadata)
	assert.ErrorIs(t, err, domain.ErrNetwork, "wraps the last gateway error")
	assert.Contains(t, err.Error(), "all gateways failed")
	assert.Equal(t, int32(3), hits.Load())
}

func TestResolveURI_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(WithGateways([]string{server.URL + "/"}))
	_, err := f.ResolveURI(ctx, hexOf("ipfs://cid"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFetcher_DefaultGateways(t *testing.T) {
	f := NewFetcher()
	assert.Equal(t, DefaultGateways, f.Gateways())
}
