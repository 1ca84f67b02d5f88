package main

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/laribacloud/lariba-cloud/internal/handler"
	"github.com/laribacloud/lariba-cloud/internal/middleware"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/internal/service"
	"github.com/laribacloud/lariba-cloud/pkg/config"
	"github.com/laribacloud/lariba-cloud/pkg/database"
	"github.com/laribacloud/lariba-cloud/pkg/hashutil"
	"github.com/laribacloud/lariba-cloud/pkg/jwtutil"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"github.com/laribacloud/lariba-cloud/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("lariba-cloud")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting lariba-cloud...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(db,
		&model.User{},
		&model.Organization{},
		&model.OrganizationMember{},
		&model.Project{},
		&model.ProjectMember{},
		&model.ApiKey{},
		&model.OrganizationInvite{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Credential hashing and token issuance, injected explicitly
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	keyedHasher := hashutil.NewKeyedHasher(cfg.Auth.KeyPepper)
	inviteTTL := time.Duration(cfg.Auth.InviteTTLDays) * 24 * time.Hour

	// Core services
	authSvc := service.NewAuthService(db, jwtUtil)
	orgSvc := service.NewOrganizationService(db)
	projectSvc := service.NewProjectService(db)
	memberSvc := service.NewMemberService(db)
	apiKeySvc := service.NewAPIKeyService(db, keyedHasher)
	inviteSvc := service.NewInviteService(db, keyedHasher, inviteTTL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	orgHandler := handler.NewOrganizationHandler(orgSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	memberHandler := handler.NewProjectMemberHandler(memberSvc)
	keyHandler := handler.NewAPIKeyHandler(apiKeySvc)
	inviteHandler := handler.NewInviteHandler(inviteSvc)
	serviceHandler := handler.NewServiceHandler()

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Human API - bearer token required
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtUtil, authSvc))

	v1.GET("/me", authHandler.Me)

	orgs := v1.Group("/organizations")
	orgs.POST("", orgHandler.Create)
	orgs.GET("", orgHandler.List)
	orgs.GET("/:id", orgHandler.Get)
	orgs.POST("/:id/members", orgHandler.AddMember)
	orgs.GET("/:id/members", orgHandler.ListMembers)
	orgs.POST("/:id/projects", projectHandler.Create)
	orgs.GET("/:id/projects", projectHandler.List)
	orgs.POST("/:id/invites", inviteHandler.Create)
	orgs.GET("/:id/invites", inviteHandler.List)
	orgs.POST("/invites/:invite_id/resend", inviteHandler.Resend)
	orgs.POST("/invites/:invite_id/accept", inviteHandler.Accept)
	orgs.POST("/invites/:invite_id/revoke", inviteHandler.Revoke)

	projects := v1.Group("/projects")
	projects.GET("/:id", projectHandler.Get)
	projects.GET("/:id/members", memberHandler.List)
	projects.GET("/:id/members/me", memberHandler.My)
	projects.POST("/:id/members", memberHandler.Add)
	projects.PATCH("/:id/members/:user_id", memberHandler.UpdateRole)
	projects.DELETE("/:id/members/:user_id", memberHandler.Remove)
	projects.POST("/:id/keys", keyHandler.Create)
	projects.POST("/:id/keys/bootstrap", keyHandler.CreateBootstrap)
	projects.GET("/:id/keys", keyHandler.List)
	projects.POST("/:id/keys/:key_id/revoke", keyHandler.Revoke)
	projects.DELETE("/:id/keys/:key_id", keyHandler.Delete)

	// Machine API - X-API-Key required
	svc := e.Group("/service")
	svc.Use(middleware.APIKeyAuth(apiKeySvc))
	svc.GET("/ping", serviceHandler.Ping)
	svc.GET("/whoami", serviceHandler.Whoami)
	svc.GET("/admin-only", serviceHandler.AdminOnly, middleware.RequireScope(apiKeySvc, service.ScopeAdmin))

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
