// Package devserver reconciles live development requests against the most
// recent build artifacts. It reconstructs responses that behave like the
// production documents before a full rebuild has run, and must never serve
// production traffic; production serves the build artifacts directly.
package devserver

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/louisbranch/pressroom/internal/publish"
)

// routePattern parses logical content routes into (category, slug).
var routePattern = regexp.MustCompile(`^/(article|context)/([a-z0-9][a-z0-9-]*)/?$`)

// dataScriptPattern locates the embedded data script inside a materialized
// document. The document is self-produced, so a narrow marker match is
// enough; no HTML parse needed.
var dataScriptPattern = regexp.MustCompile(`(?s)<script id="(?:article|context)-data" type="application/json">.*?</script>`)

// reloadScriptPath serves the live-reload wiring injected into every
// development response.
const reloadScriptPath = "/dev-reload.js"

// reloadScript polls the server so edits show up without a manual refresh.
const reloadScript = `(function () {
  var interval = 2000;
  function ping() {
    fetch("/", { method: "HEAD" }).catch(function () {}).finally(function () {
      setTimeout(ping, interval);
    });
  }
  setTimeout(ping, interval);
})();
`

// HandlerConfig defines the inputs for the development handler.
type HandlerConfig struct {
	// ArtifactDir is the most recent build artifact directory.
	ArtifactDir string
	// Shell overrides the development shell document; a default shell is
	// rendered when empty.
	Shell string
	// Inject is the live asset-injection step applied to every response so
	// hot-reload wiring is preserved; a default reload injector is used
	// when nil.
	Inject func(document string) string
}

// Handler serves reconciled development responses.
type Handler struct {
	artifactDir string
	shell       string
	inject      func(document string) string
}

// NewHandler creates the development handler.
func NewHandler(config HandlerConfig) (*Handler, error) {
	artifactDir := strings.TrimSpace(config.ArtifactDir)
	if artifactDir == "" {
		return nil, errors.New("artifact directory is required")
	}

	shell := config.Shell
	if strings.TrimSpace(shell) == "" {
		rendered, err := publish.EntryDocument("pressroom dev")
		if err != nil {
			return nil, fmt.Errorf("render dev shell: %w", err)
		}
		shell = rendered
	}

	inject := config.Inject
	if inject == nil {
		inject = injectReloadScript
	}

	return &Handler{artifactDir: filepath.Clean(artifactDir), shell: shell, inject: inject}, nil
}

// ServeHTTP reconciles one development request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, "dev server is not configured", http.StatusInternalServerError)
		return
	}

	switch {
	case r.URL.Path == reloadScriptPath:
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		_, _ = w.Write([]byte(reloadScript))
		return
	case r.URL.Path == "/":
		h.writeDocument(w, h.inject(h.shell))
		return
	}

	match := routePattern.FindStringSubmatch(r.URL.Path)
	if match == nil {
		http.NotFound(w, r)
		return
	}
	h.reconcile(w, match[1], match[2])
}

// reconcile splices the embedded data script of the materialized document
// for (category, slug) into the development shell.
func (h *Handler) reconcile(w http.ResponseWriter, category, slug string) {
	artifact := filepath.Join(h.artifactDir, category, slug, "index.html")
	document, err := os.ReadFile(artifact)
	if err != nil {
		log.Printf("dev: no artifact for /%s/%s: %v", category, slug, err)
		h.writePlaceholder(w, category, slug)
		return
	}

	script := dataScriptPattern.FindString(string(document))
	if script == "" {
		log.Printf("dev: artifact for /%s/%s has no data script", category, slug)
		h.writePlaceholder(w, category, slug)
		return
	}

	spliced := strings.Replace(h.shell, "</body>", script+"\n</body>", 1)
	h.writeDocument(w, h.inject(spliced))
}

// writePlaceholder answers a route with no materialized document. A rebuild
// may simply be in flight, so this is a 200 with guidance, never an error.
func (h *Handler) writePlaceholder(w http.ResponseWriter, category, slug string) {
	body := fmt.Sprintf(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>rebuilding</title></head>
<body>
<h1>Not built yet</h1>
<p>No pre-built document exists for <code>/%s/%s</code>.</p>
<p>Run the site build and reload this page. A rebuild may already be in flight.</p>
</body>
</html>
`, category, slug)
	h.writeDocument(w, h.inject(body))
}

// writeDocument writes a complete HTML response.
func (h *Handler) writeDocument(w http.ResponseWriter, document string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(document))
}

// injectReloadScript is the default asset-injection step: it wires the
// live-reload script into the document head.
func injectReloadScript(document string) string {
	tag := fmt.Sprintf("<script src=%q></script>", reloadScriptPath)
	if strings.Contains(document, "</head>") {
		return strings.Replace(document, "</head>", tag+"</head>", 1)
	}
	return document + tag
}
