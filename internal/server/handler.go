// Package server serves published build artifacts over HTTP with the cache
// policy the build pipeline relies on: entry documents revalidate quickly
// while content-addressed assets are cached forever.
package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/louisbranch/pressroom/internal/publish"
)

// entryCacheControl keeps entry documents fresh without blocking on the
// origin: clients revalidate after 30s, serve stale for an hour while
// revalidating, and for three hours when the origin errors.
const entryCacheControl = "max-age=30, stale-while-revalidate=3600, stale-if-error=10800"

// assetCacheControl pins content-addressed assets for a year. Their bytes
// can never change under the same path, so immutable is safe.
const assetCacheControl = "max-age=31536000, immutable"

// HandlerConfig defines the inputs for the artifact handler.
type HandlerConfig struct {
	// ArtifactDir is the published build output directory.
	ArtifactDir string
}

// Handler serves one artifact directory.
type Handler struct {
	fileServer http.Handler
}

// NewHandler creates the artifact handler.
func NewHandler(config HandlerConfig) (*Handler, error) {
	artifactDir := strings.TrimSpace(config.ArtifactDir)
	if artifactDir == "" {
		return nil, errors.New("artifact directory is required")
	}
	return &Handler{
		fileServer: http.FileServer(http.Dir(filepath.Clean(artifactDir))),
	}, nil
}

// ServeHTTP serves one artifact with the cache policy for its path class.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, "artifact server is not configured", http.StatusInternalServerError)
		return
	}

	h.fileServer.ServeHTTP(&cachePolicyWriter{
		ResponseWriter: w,
		policy:         cacheControlFor(r.URL.Path),
	}, r)
}

// cachePolicyWriter applies the cache policy only when the artifact is
// actually served; error responses must stay uncacheable.
type cachePolicyWriter struct {
	http.ResponseWriter
	policy    string
	committed bool
}

func (w *cachePolicyWriter) WriteHeader(status int) {
	if !w.committed {
		w.committed = true
		if status < http.StatusBadRequest {
			w.Header().Set("Cache-Control", w.policy)
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *cachePolicyWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// cacheControlFor picks the cache policy by path class. Only paths carrying
// a content hash are immutable; everything else, entry documents included,
// must revalidate.
func cacheControlFor(path string) string {
	if publish.IsFingerprintedPath(path) {
		return assetCacheControl
	}
	return entryCacheControl
}
