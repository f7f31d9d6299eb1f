package middleware

import (
	"net/http"
	"runtime/debug"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recover turns a handler panic into a 500 JSON response and logs the stack.
func Recover(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := RequestIDFrom(r.Context())
				log.Error().
					Interface("panic", rec).
					Str("request_id", requestID).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("HTTP handler panicked")

				var body panicBody
				body.Error.Code = "internal"
				body.Error.Message = http.StatusText(http.StatusInternalServerError)
				body.Error.RequestID = requestID

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
