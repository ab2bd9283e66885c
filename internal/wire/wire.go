package wire

import (
	"net/http"

	"transit-booking/internal/adaptor"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/middleware"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the router built around one engine.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds the HTTP surface for service. rdb may be nil, in which
// case hold requests are not rate limited.
func Wiring(service *usecase.Service, rdb *redis.Client, config *utils.Config, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(handler, rdb, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	rdb *redis.Client,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Actor(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// Apply routes
	wireTrip(r, handler.Trip, logger)
	wireSeat(r, handler.Seat, rdb, config, logger)
	wireBooking(r, handler.Booking, logger)
	wirePayment(r, handler.Payment, logger)
	wireAudit(r, handler.Audit, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
