// main.go
package main

import (
	"context"
	"log"
	"os"

	"transit-booking/cmd"
	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/usecase"
	"transit-booking/internal/wire"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/database"
	"transit-booking/pkg/queue"
	"transit-booking/pkg/utils"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("transit-booking", pflag.ExitOnError)
	envFile := flags.String("env", ".env", "path to the env file")
	flags.String("port", "", "HTTP listen port (overrides PORT)")
	flags.String("trips", "", "trip catalog YAML file (overrides TRIPS_FILE)")
	flags.Bool("debug", false, "debug logging (overrides DEBUG)")
	_ = flags.Parse(os.Args[1:])

	// Load config
	config, err := utils.LoadConfig(*envFile, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx := context.Background()
	clk := clock.Real()

	// Load trip catalog
	var trips []*entity.Trip
	if config.App.TripsFile != "" {
		trips, err = repository.LoadTrips(config.App.TripsFile)
		if err != nil {
			logger.Fatal("Failed to load trips", zap.String("file", config.App.TripsFile), zap.Error(err))
		}
	} else {
		trips = repository.DemoTrips(clk.Now())
		logger.Info("No trips file configured, using demo catalog")
	}
	logger.Info("Trip catalog loaded", zap.Int("trips", len(trips)))

	// Audit archive database (optional)
	var db database.PgxIface
	if config.Database.Enabled() {
		db, err = database.InitDB(ctx, config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := repository.EnsureAuditSchema(ctx, db); err != nil {
			logger.Fatal("Failed to prepare audit schema", zap.Error(err))
		}
		logger.Info("Audit archive connected")
	}

	// Rate limiter backend (optional)
	rdb, err := database.InitRedis(ctx, config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, hold rate limiting disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Ticket notifications (optional)
	var notifier usecase.Notifier
	if config.Queue.URL != "" {
		publisher, err := queue.NewPublisher(config.Queue, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, tickets will only be logged", zap.Error(err))
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	}

	// Initialize repositories and engine
	repos := repository.NewRepository(trips, db, logger)
	service := usecase.NewService(repos, clk, config, nil, notifier, logger)
	if err := service.Seat.InitializeFromCatalog(ctx); err != nil {
		logger.Fatal("Failed to initialize seat inventory", zap.Error(err))
	}

	// Wire all dependencies
	app := wire.Wiring(service, rdb, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, service.Shutdown, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}
