package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// local storefront (3000) and admin (5173) dev servers
var devCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS applies the configured origin allow list, or the dev servers when the
// list is empty. No credentials are allowed; admin auth is a bearer header.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, requestIDHeader, "X-Requested-With",
		},
		ExposedHeaders: []string{requestIDHeader, replayedHeader},
		MaxAge:         300,
	})
}
