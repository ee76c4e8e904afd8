package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-console/internal/admin"
	authHandler "donation-console/internal/auth/handler"
	authService "donation-console/internal/auth/service"
	"donation-console/internal/config"
	"donation-console/internal/delivery/http/handler"
	"donation-console/internal/delivery/ws"
	"donation-console/internal/donation"
	"donation-console/internal/gateway"
	"donation-console/internal/geolocation"
	"donation-console/internal/logger"
	"donation-console/internal/metrics"
	"donation-console/internal/middleware"
	"donation-console/internal/realtime"
	"donation-console/internal/session"
	"donation-console/internal/solicitud"
	"donation-console/internal/tracking"
)

// Console holds every long-lived component of the running console.
type Console struct {
	Sessions    *session.Registry
	Locator     *geolocation.BrowserLocator
	Donations   *donation.HTTPBackend
	Controller  *donation.Controller
	Tracking    *tracking.Service
	Dashboard   *metrics.Dashboard
	Solicitudes *solicitud.Service
	Admin       *admin.Service
	Auth        *authService.Service
	Hub         *ws.Hub
	Bridge      *realtime.Bridge
	RateLimiter *middleware.RateLimiter

	startedAt time.Time
	log       *zap.Logger
}

// NewConsole wires the console against the backend described by cfg.
// subscriber may be nil to disable realtime updates.
func NewConsole(cfg *config.Config, subscriber gateway.Subscriber, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	opts := gateway.Options{
		Timeout:     cfg.Backend.Timeout,
		ReadRetries: cfg.Backend.ReadRetries,
		Logger:      log.Named("gateway"),
	}
	api := gateway.NewClient(cfg.Backend.BaseURL, opts)
	authClient := gateway.NewClient(cfg.Backend.AuthURL, opts)

	var geocoder geolocation.Geocoder
	if cfg.Geolocation.ReverseGeocodeURL != "" {
		geocoder = geolocation.NewNominatimGeocoder(cfg.Geolocation.ReverseGeocodeURL, cfg.Geolocation.UserAgent, cfg.Geolocation.Language)
	}
	locator := geolocation.NewBrowserLocator()
	geo := geolocation.NewService(locator, geocoder, cfg.Geolocation.AcquireTimeout, log.Named("geolocation"))

	sessions := session.NewRegistry()
	backend := donation.NewHTTPBackend(api)
	controller := donation.NewController(donation.NewStore(), backend, geo, donation.ControllerOptions{
		MaxImageBytes: cfg.Upload.MaxImageBytes,
		Logger:        log.Named("donation"),
	})
	trackingSvc := tracking.NewService(api)
	dashboard := metrics.NewDashboard(api)
	hub := ws.NewHub(cfg.CORS.AllowedOrigins, log.Named("ws"))

	if subscriber == nil {
		subscriber = gateway.NoopSubscriber{}
	}
	bridge := realtime.NewBridge(subscriber, hub, log.Named("realtime")).
		On(gateway.TopicDonationUpdated, controller, trackingSvc).
		On(gateway.TopicNewMetric, dashboard)

	return &Console{
		Sessions:    sessions,
		Locator:     locator,
		Donations:   backend,
		Controller:  controller,
		Tracking:    trackingSvc,
		Dashboard:   dashboard,
		Solicitudes: solicitud.NewService(api, log.Named("solicitud")),
		Admin:       admin.NewService(api, log.Named("admin")),
		Auth:        authService.NewService(api, authClient, sessions, log.Named("auth")),
		Hub:         hub,
		Bridge:      bridge,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst),
		startedAt:   time.Now(),
		log:         log,
	}
}

// Start launches the background work: realtime subscriptions, draft and
// session expiry, and rate limiter eviction. It returns once subscriptions are open.
func (c *Console) Start(ctx context.Context, draftTTL time.Duration) error {
	go c.Controller.StartDraftCleanupJob(ctx, draftTTL/2, draftTTL)
	go c.Sessions.StartCleanupJob(ctx, session.DefaultSweepInterval, c.log)
	go c.RateLimiter.Run(ctx)
	return c.Bridge.Start(ctx)
}

// Close stops subscriptions, disconnects browsers and aborts open drafts.
func (c *Console) Close() {
	c.Bridge.Stop()
	c.Hub.Close()
	c.Controller.Close()
}

func SetupRoutes(cfg *config.Config, app *Console) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, request size limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(cfg.Upload.MaxImageBytes))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"uptime":   time.Since(app.startedAt).Round(time.Second).String(),
			"sessions": app.Sessions.Len(),
			"drafts":   app.Controller.OpenDrafts(),
			"browsers": app.Hub.Len(),
		})
	})
	router.GET("/ws", app.Hub.Serve)

	auth := authHandler.NewHandler(app.Auth)

	limit := middleware.RateLimitMiddleware(app.RateLimiter)
	console := router.Group("/api/console")
	{
		// Public routes are limited per IP, protected ones per CI.
		auth.RegisterRoutes(console.Group("", limit))

		protected := console.Group("")
		protected.Use(middleware.AuthMiddleware(app.Sessions), limit)
		{
			auth.RegisterSessionRoutes(protected)
			handler.NewDonationHandler(app.Controller, app.Locator, app.Donations, cfg.Backend.ImageBaseURL, cfg.Upload.MaxImageBytes).RegisterRoutes(protected)
			handler.NewTrackingHandler(app.Tracking).RegisterRoutes(protected)
			handler.NewMetricsHandler(app.Dashboard).RegisterRoutes(protected)

			adminGroup := protected.Group("/admin")
			adminGroup.Use(middleware.AdminOnly())
			{
				handler.NewSolicitudHandler(app.Solicitudes).RegisterRoutes(adminGroup)
				handler.NewAdminHandler(app.Admin).RegisterRoutes(adminGroup)
			}
		}
	}

	logger.Info("All routes initialized")
	return router
}
