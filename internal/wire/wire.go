package wire

import (
	"net/http"
	"time"

	"hotel-booking/internal/adaptor"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/integration/webhook"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/middleware"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// webhookTolerance bounds the age of a signed processor delivery.
const webhookTolerance = 5 * time.Minute

type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

func Wiring(repo *repository.Repository, deps usecase.Dependencies, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)

	verifier := webhook.NewVerifier(config.Payment.WebhookSecret, webhookTolerance)
	if !verifier.Enabled() {
		logger.Warn("PAYMENT_WEBHOOK_SECRET is empty, webhook deliveries will be rejected")
	}

	handler := adaptor.NewHandler(service, verifier, logger)
	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", map[string]string{"app": config.App.Name})
	})

	wireUnit(r, handler.Unit, handler.Availability)
	wireReservation(r, handler.Reservation, config, logger)
	wirePayment(r, handler.Payment)

	return r
}
