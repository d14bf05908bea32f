package middleware

import (
	"net/http"
	"runtime/debug"

	"docsearch/pkg/logger"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 response. It must wrap the
// session middleware so the session is rolled back before the panic lands here.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			logger.Log.Error("panic serving request",
				zap.Any("panic", p),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.ByteString("stack", debug.Stack()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"Internal server error"}` + "\n"))
		}()
		next.ServeHTTP(w, r)
	})
}
