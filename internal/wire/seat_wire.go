package wire

import (
	"transit-booking/internal/adaptor"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func wireSeat(
	r chi.Router,
	seatHandler *adaptor.SeatHandler,
	rdb *redis.Client,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== HOLDS (rate limited) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(config.RateLimit, rdb, log))

		// POST /api/trips/{id}/holds - Hold seats for a user
		r.Post("/api/trips/{id}/holds", seatHandler.HoldSeats)
	})

	// ==================== HOLD LOOKUP ====================
	// GET /api/holds/{lockID} - Hold details and countdown
	r.Get("/api/holds/{lockID}", seatHandler.GetHold)

	// POST /api/holds/{lockID}/extend - Push the hold expiry out
	r.Post("/api/holds/{lockID}/extend", seatHandler.ExtendHold)

	// ==================== USER HOLD ====================
	r.Route("/api/users/{userID}/hold", func(r chi.Router) {
		// GET /api/users/{userID}/hold - The user's active hold
		r.Get("/", seatHandler.GetUserHold)

		// DELETE /api/users/{userID}/hold - Release the user's active hold
		r.Delete("/", seatHandler.ReleaseUserHold)
	})
}
