// Package shield provides the HTTP middleware stack of the pdfstruct API:
// request ids and logging, security headers, body limits and Basic auth.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(logger, 50<<20) {
//	    r.Use(mw)
//	}
//	r.Use(shield.BasicAuth("admin", hash, "/health"))
package shield

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// APIStack returns the standard middleware for the JSON API, outermost
// first: RequestID, RealIP, RequestLogger, Recoverer, SecurityHeaders,
// MaxBody.
func APIStack(logger *slog.Logger, maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(maxBody),
	}
}
