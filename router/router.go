package router

import (
	"net/http"

	"teamvault/internal/static"
	vaultHandler "teamvault/internal/vault"
	"teamvault/internal/vault/service"
	"teamvault/middleware"
	"teamvault/pkg/metrics"
	"teamvault/socket"
)

const (
	DBRoute      = "/api/db"
	FeedRoute    = "/api/db/ws"
	MetricsRoute = "/metrics"
	staticRoute  = "static"
)

type Options struct {
	StaticDir    string
	MaxBodyBytes int64
}

func Setup(svc *service.VaultService, hub *socket.Hub, m *metrics.Metrics, opts Options) http.Handler {
	mux := http.NewServeMux()

	// REST API
	docHandler := vaultHandler.NewVaultHandler(svc, m, opts.MaxBodyBytes)
	mux.HandleFunc(DBRoute, docHandler.ServeDB)

	// Change feed
	mux.HandleFunc(FeedRoute, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		socket.ServeWs(hub, w, r)
	})

	mux.Handle(MetricsRoute, onlyGet(m.Handler()))

	// Everything else is a static file.
	mux.Handle("/", static.NewHandler(opts.StaticDir))

	// CORS is outermost so preflights are answered with its headers alone.
	return middleware.Chain(mux,
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(m, routeLabel),
		middleware.RecoverMiddleware,
	)
}

func onlyGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeLabel keeps metrics cardinality bounded.
func routeLabel(r *http.Request) string {
	switch r.URL.Path {
	case DBRoute, FeedRoute, MetricsRoute:
		return r.URL.Path
	default:
		return staticRoute
	}
}
