package server

import (
	"context"
	"net/http"

	"guss/internal/auth"
	"guss/internal/config"
	"guss/internal/gym"
	"guss/internal/notify"
	"guss/internal/reservation"
	"guss/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	gymHandler := gym.NewHandler(db)

	// Keep the interface nil when no notifier is configured, so the
	// coordinator's nil check works.
	var pushNotifier reservation.Notifier
	if notifier != nil {
		pushNotifier = notifier
	}
	reservationHandler := reservation.NewHandler(db, cfg.QRSecret, pushNotifier)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	// Scanner endpoint: authenticated by the signed QR payload itself.
	router.GET("/api/checkin", reservationHandler.CheckIn)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/api/gyms", gymHandler.ListGyms)
		protected.GET("/api/gyms/:gymID", gymHandler.GetGym)
		protected.GET("/reservations", reservationHandler.ListMyReservations)
		protected.DELETE("/api/reservations/:reservationID", reservationHandler.CancelReservation)
	}

	// The reserve endpoint carries the one write hot path; rate limit it.
	reserveLimit := RateLimitMiddleware(cfg.ReserveRateRPS, cfg.ReserveRateBurst)
	protected.POST("/api/reserve", reserveLimit, reservationHandler.Reserve)

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/gyms", gymHandler.CreateGym)
		admin.GET("/gyms/:gymID/reservations", reservationHandler.ListReservationsByGym)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
