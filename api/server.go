package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/OldStager01/predictify/api/docs"
	"github.com/OldStager01/predictify/api/handlers"
	"github.com/OldStager01/predictify/api/middleware"
	"github.com/OldStager01/predictify/api/websocket"
	"github.com/OldStager01/predictify/internal/auth"
	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/pkg/config"
	"github.com/OldStager01/predictify/pkg/models"
)

const maxRequestBytes = 1 << 20

// Dependencies are the services the HTTP layer is built on. Bus and History
// may be nil.
type Dependencies struct {
	Catalog  *catalog.Service
	Accounts *auth.Accounts
	History  handlers.HistoryStore
	Bus      *events.EventBus
	Checks   map[string]handlers.CheckFunc
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if gin.Mode() != gin.TestMode {
		if cfg.App.Mode == "production" {
			gin.SetMode(gin.ReleaseMode)
		} else {
			gin.SetMode(gin.DebugMode)
		}
	}

	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router: gin.New(),
		config: cfg,
		deps:   deps,
		wsHub:  wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.Bus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.Bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.CORS(middleware.CORSConfigFrom(s.config.API.CORS)))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestLogger("/health/live", "/health/ready", "/metrics"))
	s.router.Use(metrics.Get().GinMiddleware())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBytes))

	if s.config.API.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
		s.router.Use(middleware.RateLimit(rateLimiter))
	}
}

func (s *Server) setupRoutes() {
	apiCfg := s.config.API
	page := handlers.Pagination{DefaultLimit: apiCfg.DefaultLimit, MaxLimit: apiCfg.MaxLimit}
	tokens := s.deps.Accounts.Tokens()

	healthHandler := handlers.NewHealthHandler(s.deps.Checks)
	authHandler := handlers.NewAuthHandler(s.deps.Accounts, handlers.CookieConfig{
		Name:   apiCfg.CookieName,
		Secure: apiCfg.CookieSecure,
	})
	eventHandler := handlers.NewEventHandler(s.deps.Catalog, page, apiCfg.RequestTimeout)
	predictionHandler := handlers.NewPredictionHandler(s.deps.Catalog, s.deps.History, page, s.config.Prediction.MaxFactors)

	endpointLimits := middleware.NewEndpointRateLimiter().
		AddEndpoint("/api/predictions/score", 30, time.Minute)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)
	s.router.GET("/metrics", gin.WrapH(metrics.Get().Handler()))
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub, apiCfg.CORS.AllowedOrigins))

	api := s.router.Group("/api")
	api.Use(endpointLimits.Middleware())

	authRoutes := api.Group("/auth", middleware.AuthRateLimiter())
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/register", authHandler.Register)
	}

	requireAuth := middleware.JWTAuth(tokens, apiCfg.CookieName)
	requireOrganizer := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	eventRoutes := api.Group("/events")
	{
		eventRoutes.GET("", eventHandler.List)
		eventRoutes.GET("/upcoming", eventHandler.Upcoming)
		eventRoutes.GET("/featured", eventHandler.Featured)
		eventRoutes.GET("/trending", eventHandler.Trending)
		eventRoutes.GET("/search", eventHandler.Search)
		eventRoutes.GET("/slug/:slug", eventHandler.GetBySlug)
		eventRoutes.GET("/:id", eventHandler.Get)

		eventRoutes.GET("/my-events", requireAuth, eventHandler.MyEvents)
		eventRoutes.POST("/:id/interest", requireAuth, eventHandler.RegisterInterest)

		eventRoutes.POST("", requireAuth, requireOrganizer, eventHandler.Create)
		eventRoutes.PUT("/:id", requireAuth, requireOrganizer, eventHandler.Update)
		eventRoutes.POST("/:id/publish", requireAuth, requireOrganizer, eventHandler.Publish)
		eventRoutes.POST("/:id/cancel", requireAuth, requireOrganizer, eventHandler.Cancel)
		eventRoutes.DELETE("/:id", requireAuth, requireOrganizer, eventHandler.Delete)
	}

	predictionRoutes := api.Group("/predictions")
	{
		predictionRoutes.GET("/factors", predictionHandler.Factors)
		predictionRoutes.POST("/score", predictionHandler.Score)
		predictionRoutes.GET("/event/:id", predictionHandler.ForEvent)
		predictionRoutes.GET("/event/:id/display", predictionHandler.Display)
		predictionRoutes.GET("/event/:id/history", requireAuth, predictionHandler.History)
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.API.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the websocket side first so no frames are queued while
// the HTTP server drains.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
