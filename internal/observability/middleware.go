package observability

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request and records the request metrics.
// The path label is the matched route template so board ids do not explode
// label cardinality.
func RequestLogger(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			path := routePath(r)
			RecordHTTPRequest(r.Method, path, m.Code, m.Duration)

			event := logger.Info()
			if m.Code >= 500 {
				event = logger.Error()
			} else if m.Code >= 400 {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", path).
				Int("status", m.Code).
				Dur("duration", m.Duration).
				Str("client_ip", r.RemoteAddr).
				Int64("bytes", m.Written).
				Msg("http_request")
		})
	}
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
