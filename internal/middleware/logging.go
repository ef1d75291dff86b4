package middleware

import (
	"net/http"
	"runtime/debug"

	"absapay-be/internal/logger"
	"absapay-be/internal/utils"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a logged 500 so one bad callback cannot
// take the server down.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				p, _ := utils.PrincipalFrom(r.Context())
				logger.FromCtx(r.Context()).Error("panic serving request",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Uint("user_id", p.UserID),
					zap.ByteString("stack", debug.Stack()),
				)
				utils.WriteJSONError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
