// Package assets serves the MediaBus single-page app out of an
// embedded filesystem, the same way cmd/mash-web embeds and serves its
// own static directory — generalized with a cache-control split so the
// SPA's own update checks (polling index.html/sw.js/manifest) are never
// served stale.
package assets

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

// entrypoints never get a cache header that would let a client (or an
// intermediary proxy) serve a stale copy across an app update.
var entrypoints = map[string]bool{
	"index.html":          true,
	"sw.js":               true,
	"manifest.webmanifest": true,
}

// Handler serves the embedded SPA: entrypoint documents are always
// revalidated, everything else (content-addressed JS/CSS bundles) is
// left to the browser's default cache behavior. Any path that does not
// resolve to a real file falls back to index.html so client-side
// routing works on a hard reload.
type Handler struct {
	fs fs.FS
}

// New builds a Handler over the embedded static directory.
func New() (*Handler, error) {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	return &Handler{fs: sub}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	if f, err := h.fs.Open(path); err != nil {
		path = "index.html"
	} else {
		f.Close()
	}

	if entrypoints[path] {
		w.Header().Set("Cache-Control", "no-store")
	}

	switch {
	case strings.HasSuffix(path, ".html"):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case strings.HasSuffix(path, ".webmanifest"):
		w.Header().Set("Content-Type", "application/manifest+json")
	}

	http.ServeFileFS(w, r, h.fs, path)
}
