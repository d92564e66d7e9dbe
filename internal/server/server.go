package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heraldbot/herald/internal/bot"
	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/internal/service/authoring"
	"github.com/heraldbot/herald/internal/service/generation"
	"github.com/heraldbot/herald/internal/telegram"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Roles       *service.RoleService
	Guard       *service.Guard
	Channels    *service.ChannelService
	Posts       *service.PostService
	Publication *service.PublicationService
	Machine     *authoring.Machine
	Scheduler   *service.Scheduler
	Telegram    *telegram.Client
	Bot         *bot.Router
	Auth        *AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	roles := service.NewRoleService(db, logger)
	guard := service.NewGuard(roles, cfg.Admin.BootstrapID, logger)
	channels := service.NewChannelService(db, logger)
	posts := service.NewPostService(db, &cfg.Authoring, logger)
	tg := telegram.NewClient(&cfg.Telegram, logger)
	publication := service.NewPublicationService(posts, channels, tg, logger)
	generator := generation.NewGenerator(&cfg.Generation, logger)
	machine := authoring.NewMachine(&cfg.Authoring, posts, generator, logger)
	scheduler := service.NewScheduler(&cfg.Scheduler, logger, publication)
	botRouter := bot.NewRouter(guard, roles, channels, posts, publication, machine, tg, logger)
	auth := NewAuthService(logger, cfg.Admin.TOTPSecret)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:      cfg,
		DB:          db,
		Router:      router,
		Logger:      logger,
		Roles:       roles,
		Guard:       guard,
		Channels:    channels,
		Posts:       posts,
		Publication: publication,
		Machine:     machine,
		Scheduler:   scheduler,
		Telegram:    tg,
		Bot:         botRouter,
		Auth:        auth,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// Telegram webhook ingest
	s.Router.POST("/webhook", s.handleWebhook)

	// Admin API
	api := s.Router.Group("/api/v1")
	api.Use(s.Auth.Middleware())
	{
		roles := api.Group("/roles")
		{
			roles.GET("/:user_id", s.handleRoleHistory)
			roles.POST("", s.handleGrantRole)
			roles.DELETE("", s.handleRevokeRole)
		}

		channels := api.Group("/channels")
		{
			channels.GET("", s.handleListChannels)
			channels.POST("", s.handleAddChannel)
			channels.PUT("/:id/default", s.handleSetDefaultChannel)
			channels.DELETE("/:id", s.handleRemoveChannel)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", s.handleListPosts)
			posts.GET("/:id", s.handleGetPost)
			posts.PUT("/:id", s.handleUpdatePost)
			posts.DELETE("/:id", s.handleDeletePost)
			posts.POST("/:id/publish", s.handlePublishPost)
			posts.POST("/run-due", s.handleRunDue)
		}
	}
}

func (s *Server) handleWebhook(c *gin.Context) {
	if secret := s.Config.Telegram.WebhookSecret; secret != "" {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secret {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.Logger.Warn("Malformed webhook update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed update"})
		return
	}

	// One worker per inbound action; per-session locks serialize
	// concurrent steps on the same principal's flow.
	go s.Bot.HandleUpdate(context.Background(), &update)

	c.Status(http.StatusOK)
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
