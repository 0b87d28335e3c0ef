// Package web embeds the built frontend (dist/) and serves it as a
// single-page application.
//
// The committed dist/ holds a placeholder index.html; frontend builds
// overwrite it.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// apiPrefixes are never rewritten to index.html.
var apiPrefixes = []string{"api/", "ws/"}

// SPAHandler serves files from dist/ and falls back to index.html for
// client-side routes. Unknown API paths get a JSON 404.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return spaHandler(subFS)
}

func spaHandler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		for _, p := range apiPrefixes {
			if strings.HasPrefix(path, p) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
				return
			}
		}
		if path == "" {
			path = "index.html"
		}

		if f, err := fsys.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
			}
			if strings.HasPrefix(path, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
