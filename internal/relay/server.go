package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"huddle/internal/assist"
	"huddle/internal/observability"
)

// BoardPattern bounds the board ids accepted on the websocket route.
const BoardPattern = "[A-Za-z0-9_-]{1,64}"

// NewRouter mounts the relay's HTTP surface. A nil provider leaves the assist
// endpoint answering 501.
func NewRouter(h *Hub, provider assist.Provider, log zerolog.Logger) *mux.Router {
	observability.RegisterMetrics()
	r := mux.NewRouter()
	r.Use(observability.RequestLogger(log.With().Str("component", "http").Logger()))

	r.Methods(http.MethodGet).Path("/ws/{boardId:" + BoardPattern + "}").HandlerFunc(h.serveWs)
	r.Methods(http.MethodPost).Path("/api/assist").Handler(assist.Handler(provider, log))
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(h.healthz)
	return r
}

func (h *Hub) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	select {
	case <-h.stopped:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
