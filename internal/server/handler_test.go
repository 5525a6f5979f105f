package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/pressroom/internal/publish"
)

func writeArtifactFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	target := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestHandler(t *testing.T, dir string) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerConfig{ArtifactDir: dir})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func TestHandlerEntryDocumentCachePolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifactFile(t, dir, "index.html", []byte("<!doctype html><html></html>"))

	handler := newTestHandler(t, dir)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := "max-age=30, stale-while-revalidate=3600, stale-if-error=10800"
	if got := rec.Header().Get("Cache-Control"); got != want {
		t.Fatalf("Cache-Control = %q, want %q", got, want)
	}
}

func TestHandlerAddressedAssetCachePolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := []byte("boot()")
	addressed, ok := publish.FingerprintedName("app.js", content)
	if !ok {
		t.Fatal("FingerprintedName() ok = false")
	}
	writeArtifactFile(t, dir, addressed, content)

	handler := newTestHandler(t, dir)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+addressed, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "max-age=31536000, immutable" {
		t.Fatalf("Cache-Control = %q, want immutable policy", got)
	}
	if got := rec.Body.String(); got != "boot()" {
		t.Fatalf("body = %q, want asset bytes", got)
	}
}

func TestHandlerPageDocumentsAreNotImmutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifactFile(t, dir, "article/night-harbors/index.html", []byte("<html></html>"))

	handler := newTestHandler(t, dir)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/article/night-harbors/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); strings.Contains(got, "immutable") {
		t.Fatalf("Cache-Control = %q, page documents must revalidate", got)
	}
}

func TestHandlerMissingFileIs404(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, t.TempDir())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "" {
		t.Fatalf("Cache-Control = %q, error responses must carry no cache policy", got)
	}
}

func TestNewHandlerRequiresArtifactDir(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(HandlerConfig{}); err == nil {
		t.Fatal("expected error for empty artifact directory")
	}
}
