package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pbinitiative/zenbpm-history/internal/appcontext"
)

const CorrelationHeader = "X-Correlation-Id"

// Correlation makes sure every request carries a correlation id. An id sent by
// the caller is kept, otherwise a new one is generated. The id is echoed in the
// response and forwarded to the engine.
func Correlation() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(CorrelationHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(CorrelationHeader, id)
			next.ServeHTTP(w, r.WithContext(appcontext.WithCorrelationId(r.Context(), id)))
		})
	}
}
