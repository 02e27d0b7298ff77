package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hotel-booking/cmd"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/memstore"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/integration/guard"
	"hotel-booking/internal/integration/notify"
	"hotel-booking/internal/integration/processor"
	"hotel-booking/internal/scheduler"
	"hotel-booking/internal/usecase"
	"hotel-booking/internal/wire"
	"hotel-booking/pkg/database"
	"hotel-booking/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.Name, config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("db_driver", config.Database.Driver),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos *repository.Repository
	switch config.Database.Driver {
	case "memory":
		store := memstore.New(config.Database.LockTimeout)
		seedUnits(store)
		repos = store.Repository()
		logger.Warn("Using in-memory storage; data is lost on exit")
	default:
		if config.Database.Migrate {
			if err := database.RunMigrations(config.Database, logger); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}

		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected successfully")

		repos = repository.NewRepository(db, config.Database.LockTimeout, logger)
	}

	deps := usecase.Dependencies{}

	if config.Payment.ProcessorURL != "" {
		deps.Processor = processor.NewHTTPClient(config.Payment.ProcessorURL, config.Payment.ProcessorKey, config.Payment.Timeout, logger)
	} else {
		logger.Warn("PAYMENT_PROCESSOR_URL is empty, using the sandbox processor")
	}

	if config.RabbitMQ.URL != "" {
		publisher, err := notify.NewRabbitPublisher(config.RabbitMQ.URL, config.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, notifications go to the log", zap.Error(err))
		} else {
			defer publisher.Close()
			deps.Notifier = publisher
		}
	}

	if client := guard.NewRedisClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB, logger); client != nil {
		defer client.Close()
		deps.Guard = guard.NewRedisGuard(client, config.Redis.SubmissionPendingTTL, config.Redis.SubmissionTTL, logger)
	}

	app := wire.Wiring(repos, deps, config, logger)

	jobs := scheduler.New(app.Service.Dispatch, logger)
	if err := jobs.Start(config.Dispatch.RedeliverySchedule); err != nil {
		logger.Warn("Scheduler not started", zap.Error(err))
	}

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("HTTP server stopped", zap.Error(err))
	}

	jobs.Stop()

	logger.Info("Waiting for in-flight notifications")
	app.Service.Dispatch.Wait()
	logger.Info("Shutdown complete")
}

// seedUnits gives the in-memory driver a small catalog to book against.
func seedUnits(store *memstore.Store) {
	units := []struct {
		room, kind string
		capacity   int
		rate       string
	}{
		{"101", "standard", 2, "100.00"},
		{"102", "standard", 2, "100.00"},
		{"201", "deluxe", 3, "160.00"},
		{"301", "suite", 4, "280.00"},
	}
	for _, u := range units {
		store.AddUnit(entity.Unit{
			RoomNumber:  u.room,
			Type:        u.kind,
			Capacity:    u.capacity,
			NightlyRate: decimal.RequireFromString(u.rate),
			Status:      entity.UnitStatusAvailable,
		})
	}
}
