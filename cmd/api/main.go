package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinicdesk/booking-api/internal/config"
	appointmentHandler "github.com/clinicdesk/booking-api/internal/handler/appointment"
	authHandler "github.com/clinicdesk/booking-api/internal/handler/auth"
	availabilityHandler "github.com/clinicdesk/booking-api/internal/handler/availability"
	doctorHandler "github.com/clinicdesk/booking-api/internal/handler/doctor"
	healthHandler "github.com/clinicdesk/booking-api/internal/handler/health"
	patientHandler "github.com/clinicdesk/booking-api/internal/handler/patient"
	prescriptionHandler "github.com/clinicdesk/booking-api/internal/handler/prescription"
	reportHandler "github.com/clinicdesk/booking-api/internal/handler/report"
	"github.com/clinicdesk/booking-api/internal/middleware"
	"github.com/clinicdesk/booking-api/internal/repository/postgres"
	"github.com/clinicdesk/booking-api/internal/router"
	appointmentService "github.com/clinicdesk/booking-api/internal/service/appointment"
	authService "github.com/clinicdesk/booking-api/internal/service/auth"
	availabilityService "github.com/clinicdesk/booking-api/internal/service/availability"
	bookingService "github.com/clinicdesk/booking-api/internal/service/booking"
	doctorService "github.com/clinicdesk/booking-api/internal/service/doctor"
	patientService "github.com/clinicdesk/booking-api/internal/service/patient"
	prescriptionService "github.com/clinicdesk/booking-api/internal/service/prescription"
	reportService "github.com/clinicdesk/booking-api/internal/service/report"
	"github.com/clinicdesk/booking-api/pkg/auth"
	"github.com/clinicdesk/booking-api/pkg/logger"
	"github.com/clinicdesk/booking-api/pkg/metrics"
	"github.com/clinicdesk/booking-api/pkg/security"
	"github.com/clinicdesk/booking-api/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	txRunner := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Shared infrastructure
	appMetrics := metrics.New("booking_api")
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	hasher := security.NewBcryptHasher(0)

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file storage")
	}

	// Services
	authSvc := authService.NewService(&txRunner, userRepo, doctorRepo, patientRepo, hasher, jwtService)
	doctorSvc := doctorService.NewService(&txRunner, userRepo, doctorRepo, hasher)
	patientSvc := patientService.NewService(&txRunner, userRepo, patientRepo, hasher)
	availabilitySvc := availabilityService.NewService(availabilityRepo, doctorRepo, appLogger)
	bookingSvc := bookingService.NewService(&txRunner, appointmentRepo, availabilityRepo, doctorRepo, patientRepo, outboxRepo, appMetrics, appLogger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, doctorRepo, patientRepo)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, appointmentRepo, doctorRepo, patientRepo, fileStorage)
	reportSvc := reportService.NewService(appointmentRepo, doctorRepo, patientRepo)

	// HTTP surface
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	r := router.NewRouter(authMiddleware, router.Handlers{
		Auth:         authHandler.NewHandler(authSvc),
		Doctor:       doctorHandler.NewHandler(doctorSvc, availabilitySvc),
		Patient:      patientHandler.NewHandler(patientSvc),
		Availability: availabilityHandler.NewHandler(availabilitySvc),
		Appointment:  appointmentHandler.NewHandler(bookingSvc, appointmentSvc),
		Prescription: prescriptionHandler.NewHandler(prescriptionSvc),
		Report:       reportHandler.NewHandler(reportSvc),
		Health:       healthHandler.NewHandler(db),
	}, router.Config{
		RateLimit:     rate.Limit(cfg.Server.RateLimit),
		RateBurst:     cfg.Server.RateBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "booking_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
