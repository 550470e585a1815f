package strategy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/credentials"
	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReleaseServer serves one release with a single asset
func newReleaseServer(t *testing.T, token string, payload []byte, releaseHits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/acme/tool/releases/tags/v1.2.0", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(releaseHits, 1)
		if r.Header.Get("Authorization") != "token "+token {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": "v1.2.0",
			"assets": []map[string]any{
				{"name": "tool-v1.2.0.tar.gz", "id": 999, "size": len(payload)},
			},
		})
	})

	mux.HandleFunc("/repos/acme/tool/releases/assets/999", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != AcceptOctetStream {
			_, _ = w.Write([]byte(`{"id":999}`))
			return
		}
		if r.Header.Get("Authorization") != "token "+token {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// the API redirects to object storage
		http.Redirect(w, r, "/storage/999", http.StatusFound)
	})

	mux.HandleFunc("/storage/999", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	})

	return httptest.NewServer(mux)
}

func TestDependencies_EndToEnd(t *testing.T) {
	payload := []byte("binary-contents")
	var hits int32
	server := newReleaseServer(t, "abc123", payload, &hits)
	defer server.Close()

	deps, err := NewDependencies(context.Background(), DependencyOptions{
		APIURL:      server.URL,
		Timeout:     5 * time.Second,
		MaxRetries:  -1,
		Credentials: credentials.StaticProvider{Source: "test", Value: "abc123"},
	})
	require.NoError(t, err)
	defer deps.Close()

	assert.Equal(t, "test", deps.TokenSource)
	assert.Equal(t, server.URL, deps.API.BaseURL())

	s, err := deps.NewPrivateRelease(context.Background(), testURL)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out", "tool.tar.gz")
	require.NoError(t, s.Fetch(context.Background(), dest, 5*time.Second))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDependencies_Unauthenticated(t *testing.T) {
	var hits int32
	server := newReleaseServer(t, "secret", []byte("x"), &hits)
	defer server.Close()

	deps, err := NewDependencies(context.Background(), DependencyOptions{
		APIURL:      server.URL,
		MaxRetries:  -1,
		Credentials: credentials.StaticProvider{},
	})
	require.NoError(t, err)
	defer deps.Close()

	assert.Empty(t, deps.TokenSource)

	s, err := deps.NewPrivateRelease(context.Background(), testURL)
	require.NoError(t, err)

	err = s.Fetch(context.Background(), filepath.Join(t.TempDir(), "x"), time.Second)
	require.Error(t, err)
	assert.Equal(t, domain.StageAPI, domain.Stage(err))
}

func TestDependencies_CachesReleaseMetadata(t *testing.T) {
	var hits int32
	server := newReleaseServer(t, "abc123", []byte("x"), &hits)
	defer server.Close()

	deps, err := NewDependencies(context.Background(), DependencyOptions{
		APIURL:      server.URL,
		MaxRetries:  -1,
		EnableCache: true,
		CacheTTL:    time.Minute,
		CacheDir:    t.TempDir(),
		Credentials: credentials.StaticProvider{Value: "abc123"},
	})
	require.NoError(t, err)
	defer deps.Close()
	require.NotNil(t, deps.Cache)

	for i := 0; i < 2; i++ {
		s, err := deps.NewPrivateRelease(context.Background(), testURL)
		require.NoError(t, err)
		id, err := s.AssetID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.AssetID(999), id)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDependencies_CacheScopedToReleaseLookups(t *testing.T) {
	var hits, limitHits int32
	server := newReleaseServer(t, "abc123", []byte("x"), &hits)
	defer server.Close()

	limits := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&limitHits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"remaining": 100 - n})
	}))
	defer limits.Close()

	deps, err := NewDependencies(context.Background(), DependencyOptions{
		APIURL:      server.URL,
		MaxRetries:  -1,
		EnableCache: true,
		CacheTTL:    time.Minute,
		CacheDir:    t.TempDir(),
		Credentials: credentials.StaticProvider{Value: "abc123"},
	})
	require.NoError(t, err)
	defer deps.Close()

	// plain API calls bypass the cache
	var rl struct {
		Remaining int `json:"remaining"`
	}
	require.NoError(t, deps.API.OpenREST(context.Background(), limits.URL+"/rate_limit", &rl))
	assert.Equal(t, 99, rl.Remaining)
	require.NoError(t, deps.API.OpenREST(context.Background(), limits.URL+"/rate_limit", &rl))
	assert.Equal(t, 98, rl.Remaining)

	// a refresh bypasses the cached release and stores the new one
	resolve := func(ctx context.Context) {
		s, err := deps.NewPrivateRelease(context.Background(), testURL)
		require.NoError(t, err)
		_, err = s.AssetID(ctx)
		require.NoError(t, err)
	}
	resolve(context.Background())
	resolve(fetcher.WithCacheRefresh(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	resolve(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDependencies_WebURL(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DependencyOptions{
		WebURL:      "https://ghe.example.com",
		Credentials: credentials.StaticProvider{},
	})
	require.NoError(t, err)
	defer deps.Close()

	_, err = deps.NewPrivateRelease(context.Background(), testURL)
	assert.ErrorIs(t, err, domain.ErrInvalidURLPattern)

	s, err := deps.NewPrivateRelease(context.Background(), "https://ghe.example.com/a/b/releases/download/v1/c")
	require.NoError(t, err)
	assert.Equal(t, "c", s.Locator().Filename)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "github.com", hostOf(""))
	assert.Equal(t, "ghe.example.com", hostOf("https://ghe.example.com/"))
	assert.Equal(t, "github.com", hostOf("::bad"))
}

func TestURLHelpers(t *testing.T) {
	loc := domain.AssetLocator{Owner: "acme", Repo: "tool", Tag: "v1.2.0", Filename: "f"}

	assert.Equal(t, "https://api.github.com/repos/acme/tool/releases/tags/v1.2.0", releaseByTagURL("https://api.github.com/", loc))
	assert.Equal(t, "https://api.github.com/repos/acme/tool/releases/assets/999", assetURL("https://api.github.com", loc, 999))
}
