package api

import (
	"net/http"
	"time"

	"github.com/Aidin1998/accounts/common/apiutil"
	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/Aidin1998/accounts/internal/identities"
	"github.com/Aidin1998/accounts/internal/newsletter"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Options tunes the HTTP surface
type Options struct {
	AllowOrigins []string
	// RateLimit uses the limiter format, e.g. "100-M". Empty disables limiting.
	RateLimit string
	// LimiterStore defaults to an in-memory store.
	LimiterStore limiter.Store
	// Avatars, when set, is served under AvatarPath.
	Avatars    http.FileSystem
	AvatarPath string
}

// Server represents the API server
type Server struct {
	router     *gin.Engine
	logger     *zap.Logger
	accounts   *identities.Service
	auth       *auth.Middleware
	newsletter *newsletter.Publisher
}

// NewServer creates the API server
func NewServer(
	logger *zap.Logger,
	accounts *identities.Service,
	authMiddleware *auth.Middleware,
	publisher *newsletter.Publisher,
	opts Options,
) (*Server, error) {
	server := &Server{
		logger:     logger,
		accounts:   accounts,
		auth:       authMiddleware,
		newsletter: publisher,
	}

	router := gin.New()
	router.MaxMultipartMemory = 2 * identities.MaxAvatarSize

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("accounts-api"))

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", apiutil.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", apiutil.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(apiutil.RequestID(), apiutil.MetricsMiddleware(), apiutil.ErrorMiddleware(logger))

	rateLimiter, err := newRateLimiter(opts)
	if err != nil {
		return nil, err
	}

	server.router = router
	server.registerRoutes(rateLimiter, opts)
	return server, nil
}

func newRateLimiter(opts Options) (gin.HandlerFunc, error) {
	if opts.RateLimit == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
	if err != nil {
		return nil, err
	}
	store := opts.LimiterStore
	if store == nil {
		store = memory.NewStore()
	}
	return ginlimiter.NewMiddleware(limiter.New(store, rate),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			apiutil.RFC7807RateLimitResponse(c, "Request was throttled.")
		}),
	), nil
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the HTTP handler to mount in an http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes(rateLimiter gin.HandlerFunc, opts Options) {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.Avatars != nil && opts.AvatarPath != "" {
		s.router.StaticFS(opts.AvatarPath, opts.Avatars)
	}

	api := s.router.Group("/api", rateLimiter, s.auth.Authenticate())
	{
		users := api.Group("/users")
		{
			users.GET("", s.auth.Require(auth.OrganizationsChange), s.listUsers)
			users.POST("", s.auth.Require(auth.OrganizationsChange), s.createUser)
			users.GET("/:id", s.auth.Require(auth.OrganizationsChange), s.getUser)
			users.PATCH("/:id", s.auth.Require(auth.OrganizationsView), s.updateUser)
			users.DELETE("/:id", s.auth.Require(auth.OrganizationsChange), s.deleteUser)

			users.POST("/:id/avatar", s.auth.Require(auth.AvatarAny), s.setAvatar)
			users.DELETE("/:id/avatar", s.auth.Require(auth.AvatarAny), s.clearAvatar)
		}

		api.POST("/token/reset", s.resetToken)
		api.GET("/token", s.getToken)
		api.GET("/whoami", s.whoAmI)

		for _, path := range []string{"/current-user/hotkeys", "/hotkeys"} {
			api.GET(path, s.getHotkeys)
			api.PATCH(path, s.updateHotkeys)
		}
	}
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
