package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/api/handlers"
	"github.com/mesfabric/routecraft/internal/api/middleware"
	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/auth"
	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/export"
	"github.com/mesfabric/routecraft/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, emitter *audit.Emitter, exporter *export.Exporter) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	authenticator := auth.NewBasicAuthenticator(db, cfg.Auth)

	routeSvc := service.NewRouteService(db, emitter)
	opSvc := service.NewOperationService(db, emitter)
	adminSvc := service.NewAdminService(db, emitter)

	authHandler := handlers.NewAuthHandler(db, authenticator, adminSvc, emitter)
	routeHandler := handlers.NewRouteHandler(routeSvc, exporter, emitter)
	opHandler := handlers.NewOperationHandler(opSvc)
	adminHandler := handlers.NewAdminHandler(adminSvc)

	// Public routes
	public := router.Group("/api")
	{
		public.GET("/health", handlers.HealthCheck)
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)
	}

	if cfg.Auth.Type == "oidc" {
		oidcAuth, err := auth.NewOIDCAuthenticator(context.Background(), cfg.Auth, db)
		if err != nil {
			slog.Error("Failed to initialize OIDC, falling back to basic auth only", "error", err)
		} else {
			oidcHandler := handlers.NewOIDCHandler(oidcAuth)
			public.GET("/auth/oidc/login", oidcHandler.LoginRedirect)
			public.GET("/auth/oidc/callback", oidcHandler.Callback)
		}
	}

	// Protected routes (require authentication)
	protected := router.Group("/api")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/change-password", authHandler.ChangePassword)
		protected.POST("/auth/2fa/setup", authHandler.Setup2FA)
		protected.POST("/auth/2fa/enable", authHandler.Enable2FA)
		protected.POST("/auth/2fa/disable", authHandler.Disable2FA)

		routes := protected.Group("/routes")
		{
			routes.GET("", middleware.RequirePermission("routes", "read"), routeHandler.ListRoutes)
			routes.POST("", middleware.RequirePermission("routes", "create"), routeHandler.CreateRoute)
			routes.GET("/:id", middleware.RequirePermission("routes", "read"), routeHandler.GetRoute)
			routes.PUT("/:id", middleware.RequirePermission("routes", "update"), routeHandler.UpdateRoute)
			routes.DELETE("/:id", middleware.RequirePermission("routes", "delete"), routeHandler.DeleteRoute)

			routes.GET("/:id/versions", middleware.RequirePermission("routes", "read"), routeHandler.ListVersions)
			routes.POST("/:id/versions", middleware.RequirePermission("routes", "update"), routeHandler.CreateVersion)
			routes.GET("/:id/versions/diff", middleware.RequirePermission("routes", "read"), routeHandler.DiffVersions)
			routes.GET("/:id/versions/:version", middleware.RequirePermission("routes", "read"), routeHandler.GetVersion)
			routes.GET("/:id/versions/:version/export", middleware.RequirePermission("routes", "export"), routeHandler.ExportVersion)
			routes.POST("/:id/restore", middleware.RequirePermission("routes", "update"), routeHandler.RestoreVersion)

			routes.POST("/:id/duplicate", middleware.RequirePermission("routes", "create"), routeHandler.DuplicateRoute)
			routes.POST("/:id/validate", middleware.RequirePermission("routes", "read"), routeHandler.ValidateRoute)
			routes.GET("/:id/statistics", middleware.RequirePermission("routes", "read"), routeHandler.RouteStatistics)
			routes.GET("/:id/dependencies", middleware.RequirePermission("routes", "read"), routeHandler.RouteDependencies)
			routes.POST("/:id/optimize", middleware.RequirePermission("routes", "read"), routeHandler.OptimizeRoute)
			routes.GET("/:id/export", middleware.RequirePermission("routes", "export"), routeHandler.ExportRoute)
		}

		operations := protected.Group("/operations")
		{
			operations.GET("", middleware.RequirePermission("operations", "read"), opHandler.ListOperations)
			operations.POST("", middleware.RequirePermission("operations", "create"), opHandler.CreateOperation)
			operations.GET("/:id", middleware.RequirePermission("operations", "read"), opHandler.GetOperation)
			operations.PUT("/:id", middleware.RequirePermission("operations", "update"), opHandler.UpdateOperation)
			operations.DELETE("/:id", middleware.RequirePermission("operations", "delete"), opHandler.DeleteOperation)
		}

		admin := protected.Group("/admin")
		{
			admin.GET("/users", middleware.RequirePermission("users", "read"), adminHandler.ListUsers)
			admin.POST("/users", middleware.RequirePermission("users", "create"), adminHandler.CreateUser)
			admin.GET("/users/:id", middleware.RequirePermission("users", "read"), adminHandler.GetUser)
			admin.PUT("/users/:id", middleware.RequirePermission("users", "update"), adminHandler.UpdateUser)
			admin.DELETE("/users/:id", middleware.RequirePermission("users", "delete"), adminHandler.DeleteUser)
			admin.POST("/users/:id/unlock", middleware.RequirePermission("users", "update"), adminHandler.UnlockUser)
			admin.POST("/users/:id/roles", middleware.RequirePermission("users", "update"), adminHandler.AssignRole)
			admin.DELETE("/users/:id/roles/:role", middleware.RequirePermission("users", "update"), adminHandler.RevokeRole)

			admin.GET("/roles", middleware.RequirePermission("roles", "read"), adminHandler.ListRoles)
			admin.POST("/roles", middleware.RequirePermission("roles", "create"), adminHandler.CreateRole)
			admin.PUT("/roles/:id", middleware.RequirePermission("roles", "update"), adminHandler.UpdateRole)
			admin.DELETE("/roles/:id", middleware.RequirePermission("roles", "delete"), adminHandler.DeleteRole)
			admin.POST("/roles/:id/permissions", middleware.RequirePermission("roles", "update"), adminHandler.GrantPermission)
			admin.DELETE("/roles/:id/permissions/:permission", middleware.RequirePermission("roles", "update"), adminHandler.RevokePermission)

			admin.GET("/permissions", middleware.RequirePermission("roles", "read"), adminHandler.ListPermissions)
			admin.POST("/permissions", middleware.RequirePermission("system", "admin"), adminHandler.CreatePermission)

			admin.GET("/audit-logs", middleware.RequirePermission("audit_logs", "read"), adminHandler.ListAuditLogs)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
