package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestAssetFileName(t *testing.T) {
	tests := []struct {
		asset Asset
		want  string
	}{
		{Asset{Name: "basemap", URL: "https://example.com/data/countries.geojson"}, "basemap.geojson"},
		{Asset{Name: "basemap", URL: "https://example.com/countries.geojson?rev=2"}, "basemap.geojson"},
		{Asset{Name: "world map", URL: "https://example.com/x.json"}, "world_map.json"},
		{Asset{URL: "https://example.com/a/b.json"}, "b.json"},
		{Asset{Name: "basemap", URL: "https://example.com/countries"}, "basemap"},
	}
	for _, tt := range tests {
		if got := tt.asset.FileName(); got != tt.want {
			t.Errorf("%+v.FileName() = %q, want %q", tt.asset, got, tt.want)
		}
	}
}

func TestAssetLocal(t *testing.T) {
	if !(Asset{URL: "/tmp/map.geojson"}).Local() {
		t.Error("absolute path should be local")
	}
	if (Asset{URL: "https://example.com/map.geojson"}).Local() {
		t.Error("https URL should be remote")
	}
}

func newAssetServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		*hits++
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestCacheOpen(t *testing.T) {
	hits := 0
	srv := newAssetServer(t, &hits)
	c := NewCache(t.TempDir(), nil)
	a := Asset{Name: "test", URL: srv.URL + "/map.json"}

	for i := 0; i < 2; i++ {
		r, err := c.Open(context.Background(), a)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got := readAll(t, r); got != `{"ok":true}` {
			t.Errorf("unexpected body %q", got)
		}
	}
	if hits != 1 {
		t.Errorf("expected one download with the cache enabled, got %d", hits)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "test.json")); err != nil {
		t.Errorf("expected the cache file under its asset name: %v", err)
	}

	missing := Asset{Name: "missing", URL: srv.URL + "/missing.json"}
	if _, err := c.Open(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(c.Path(missing)); !os.IsNotExist(err) {
		t.Error("a failed download should leave no cache entry")
	}
}

func TestCacheStreamsWithoutDir(t *testing.T) {
	hits := 0
	srv := newAssetServer(t, &hits)
	c := NewCache("", nil)
	a := Asset{Name: "test", URL: srv.URL + "/map.json"}

	if c.Path(a) != "" {
		t.Errorf("Path = %q, want empty without a cache dir", c.Path(a))
	}
	for i := 0; i < 2; i++ {
		r, err := c.Open(context.Background(), a)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		readAll(t, r)
	}
	if hits != 2 {
		t.Errorf("expected every open to hit the server, got %d", hits)
	}
}

func TestCacheOpenCancelled(t *testing.T) {
	hits := 0
	srv := newAssetServer(t, &hits)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCache("", nil).Open(ctx, Asset{URL: srv.URL + "/map.json"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCacheOpenLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(p, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewCache(t.TempDir(), nil).Open(context.Background(), Asset{Name: "local", URL: p})
	if err != nil {
		t.Fatalf("Open(local): %v", err)
	}
	if got := readAll(t, r); got != "local" {
		t.Errorf("got %q, want local", got)
	}
}
