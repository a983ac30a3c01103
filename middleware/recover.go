package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"teamvault/pkg/logger"
)

// RecoverMiddleware turns a panicking handler into a JSON 500 so one bad
// request cannot take the listener down.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// Let net/http handle its own abort sentinel.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Sugar.Errorw("Recovered from panic",
				"request_id", RequestID(r.Context()),
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}
