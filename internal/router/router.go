package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/clinicdesk/booking-api/internal/handler/appointment"
	authhandler "github.com/clinicdesk/booking-api/internal/handler/auth"
	availabilityhandler "github.com/clinicdesk/booking-api/internal/handler/availability"
	doctorhandler "github.com/clinicdesk/booking-api/internal/handler/doctor"
	healthhandler "github.com/clinicdesk/booking-api/internal/handler/health"
	patienthandler "github.com/clinicdesk/booking-api/internal/handler/patient"
	prescriptionhandler "github.com/clinicdesk/booking-api/internal/handler/prescription"
	reporthandler "github.com/clinicdesk/booking-api/internal/handler/report"
	"github.com/clinicdesk/booking-api/internal/middleware"
	"github.com/clinicdesk/booking-api/internal/model"
)

type Handlers struct {
	Auth         *authhandler.Handler
	Doctor       *doctorhandler.Handler
	Patient      *patienthandler.Handler
	Availability *availabilityhandler.Handler
	Appointment  *appointmenthandler.Handler
	Prescription *prescriptionhandler.Handler
	Report       *reporthandler.Handler
	Health       *healthhandler.Handler
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: 30 * time.Second}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)
	api.GET("/health/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	r.handlers.Auth.RegisterRoutes(api)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.handlers.Doctor.RegisterRoutes(protected)
	r.handlers.Patient.RegisterRoutes(protected)
	r.handlers.Appointment.RegisterRoutes(protected)
	r.handlers.Prescription.RegisterRoutes(protected)

	// Patient-only routes
	patientOnly := protected.Group("")
	patientOnly.Use(r.auth.RequireRoles(model.RolePatient))
	r.handlers.Appointment.RegisterBookingRoutes(patientOnly)

	// Doctor-only routes
	doctorOnly := protected.Group("/doctor")
	doctorOnly.Use(r.auth.RequireRoles(model.RoleDoctor))
	r.handlers.Availability.RegisterRoutes(doctorOnly)
	r.handlers.Prescription.RegisterDoctorRoutes(doctorOnly)
	r.handlers.Report.RegisterDoctorRoutes(doctorOnly)

	// Admin-only routes
	admin := protected.Group("/admin")
	admin.Use(r.auth.RequireRoles(model.RoleAdmin))
	r.handlers.Doctor.RegisterAdminRoutes(admin)
	r.handlers.Patient.RegisterAdminRoutes(admin)
	r.handlers.Appointment.RegisterAdminRoutes(admin)
	r.handlers.Report.RegisterAdminRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
