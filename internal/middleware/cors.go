// Package middleware provides HTTP middleware for the dealflow API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS returns middleware that handles CORS headers. Credentials are only
// allowed when every origin is explicit; a wildcard origin never receives
// cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Dealflow-Session-ID"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
	})
	return c.Handler
}
