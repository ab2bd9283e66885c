package middleware

import (
	"net/http"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorType = "X-Actor-Type"
)

// Actor records who is calling so audit entries can name them. There is
// no authentication: the headers are trusted as sent. Requests without an
// actor run as the system actor.
func Actor(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderActorID))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(id) > 64 {
				logger.Warn("Actor id too long", zap.Int("length", len(id)))
				utils.ResponseBadRequest(w, HeaderActorID+" must be at most 64 characters", nil)
				return
			}

			actor := entity.Actor{ID: id, Type: utils.ParseActorType(r.Header.Get(HeaderActorType))}
			next.ServeHTTP(w, r.WithContext(utils.SetActorContext(r.Context(), actor)))
		})
	}
}
