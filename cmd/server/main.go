// Package main runs the resource management console HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/resource-mgmt/console/config"
	"github.com/resource-mgmt/console/internal/activities"
	"github.com/resource-mgmt/console/internal/auth"
	"github.com/resource-mgmt/console/internal/clients"
	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/emaillogs"
	"github.com/resource-mgmt/console/internal/employees"
	"github.com/resource-mgmt/console/internal/metrics"
	"github.com/resource-mgmt/console/internal/middleware"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/navigation"
	"github.com/resource-mgmt/console/internal/organization"
	"github.com/resource-mgmt/console/internal/projects"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/internal/reports"
	"github.com/resource-mgmt/console/internal/roles"
	"github.com/resource-mgmt/console/internal/skills"
	"github.com/resource-mgmt/console/internal/teams"
	"github.com/resource-mgmt/console/internal/timetracking"
	"github.com/resource-mgmt/console/pkg/database"
	"github.com/resource-mgmt/console/pkg/queue"
	"github.com/resource-mgmt/console/pkg/redis"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	orgRepo := organization.NewRepository(pool)
	orgCtx := organization.NewContext(orgRepo, logger)
	if err := orgCtx.Load(ctx); err != nil {
		logger.Error("organization context not ready", zap.Error(err))
	}
	stopOrgWatch := orgCtx.Watch(hub)
	defer stopOrgWatch()
	orgHandler := organization.NewHandler(orgRepo, orgCtx, hub, logger)

	confirmations := confirm.NewRedisStore(rdb.Client, cfg.Console.ConfirmTTL)
	lifecycle := crud.Lifecycle{Confirm: confirmations, Pub: hub, Logger: logger}
	jobQueue := queue.NewQueue(rdb.Client, logger)

	employeeRepo := employees.NewRepository(pool)
	employeeHandler := employees.NewHandler(employeeRepo, orgCtx, lifecycle)
	clientHandler := clients.NewHandler(clients.NewRepository(pool), orgCtx, lifecycle)
	projectHandler := projects.NewHandler(projects.NewRepository(pool), orgCtx, lifecycle)
	roleHandler := roles.NewHandler(roles.NewRepository(pool), lifecycle)
	skillHandler := skills.NewHandler(skills.NewRepository(pool), orgCtx, lifecycle)
	activityHandler := activities.NewHandler(activities.NewRepository(pool), orgCtx, lifecycle)
	teamHandler := teams.NewHandler(teams.NewRepository(pool), orgCtx, lifecycle)
	timeHandler := timetracking.NewHandler(timetracking.NewRepository(pool, employeeRepo), orgCtx, hub, logger)
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool), logger)

	var signer reports.URLSigner = unavailableSigner{}
	if s3Client != nil {
		signer = s3Client
	}
	reportHandler := reports.NewHandler(reports.NewRepository(pool), jobQueue, signer, orgCtx, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessions := auth.NewRedisSessions(rdb.Client)
	authHandler := auth.NewHandler(auth.NewRepository(pool), jwtService, sessions, jobQueue, employeeRepo, auth.Options{
		ResetTTL:   cfg.Console.PasswordResetTTL,
		AppBaseURL: cfg.Console.AppBaseURL,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", metrics.Handler())
	router.GET("/navigation", navigation.Handle)
	router.GET("/navigation/routes", navigation.RoutesHandler)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/password-reset", authHandler.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	manage := middleware.RequireManager()
	api := router.Group("")
	api.Use(middleware.JWT(jwtService, sessions))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)

		api.GET("/organization", orgHandler.Get)
		api.GET("/organization/context", orgHandler.Context)
		api.PUT("/organization", manage, orgHandler.Update)

		api.DELETE("/confirmations/:token", crud.CancelDelete(confirmations, logger))

		api.GET("/clients", clientHandler.List)
		api.GET("/clients/next-id", clientHandler.NextID)
		api.GET("/clients/:id", clientHandler.Get)
		api.POST("/clients", manage, clientHandler.Create)
		api.PUT("/clients/:id", manage, clientHandler.Update)
		api.PATCH("/clients/:id/status", manage, clientHandler.ToggleStatus())
		api.POST("/clients/:id/delete-request", manage, clientHandler.RequestDeletion())
		api.DELETE("/clients/:id", manage, clientHandler.Remove())

		api.GET("/projects", projectHandler.List)
		api.POST("/projects/allocations/check", projectHandler.CheckAllocation)
		api.GET("/projects/:id", projectHandler.Get)
		api.GET("/projects/:id/activities", projectHandler.Activities)
		api.POST("/projects", manage, projectHandler.Create)
		api.PUT("/projects/:id", manage, projectHandler.Update)
		api.PATCH("/projects/:id/status", manage, projectHandler.ToggleStatus())
		api.POST("/projects/:id/delete-request", manage, projectHandler.RequestDeletion())
		api.DELETE("/projects/:id", manage, projectHandler.Remove())

		api.GET("/employees", employeeHandler.List)
		api.GET("/employees/next-id", employeeHandler.NextID)
		api.GET("/employees/:id", employeeHandler.Get)
		api.POST("/employees", manage, employeeHandler.Create)
		api.PUT("/employees/:id", manage, employeeHandler.Update)
		api.PATCH("/employees/:id/status", manage, employeeHandler.ToggleStatus())
		api.POST("/employees/:id/delete-request", manage, employeeHandler.RequestDeletion())
		api.DELETE("/employees/:id", manage, employeeHandler.Remove())

		api.GET("/roles", roleHandler.List)
		api.GET("/roles/:id", roleHandler.Get)
		api.POST("/roles", manage, roleHandler.Create)
		api.PUT("/roles/:id", manage, roleHandler.Update)
		api.PATCH("/roles/:id/status", manage, roleHandler.ToggleStatus())
		api.POST("/roles/:id/delete-request", manage, roleHandler.RequestDeletion())
		api.DELETE("/roles/:id", manage, roleHandler.Remove())

		api.GET("/skills", skillHandler.List)
		api.GET("/skills/types", skillHandler.Types)
		api.GET("/skills/:id", skillHandler.Get)
		api.POST("/skills", manage, skillHandler.Create)
		api.PUT("/skills/:id", manage, skillHandler.Update)
		api.POST("/skills/:id/delete-request", manage, skillHandler.RequestDeletion())
		api.DELETE("/skills/:id", manage, skillHandler.Remove())

		api.GET("/activities", activityHandler.List)
		api.GET("/activities/:id", activityHandler.Get)
		api.POST("/activities", manage, activityHandler.Create)
		api.PUT("/activities/:id", manage, activityHandler.Update)
		api.PATCH("/activities/:id/status", manage, activityHandler.ToggleStatus())
		api.POST("/activities/:id/delete-request", manage, activityHandler.RequestDeletion())
		api.DELETE("/activities/:id", manage, activityHandler.Remove())

		api.GET("/teams", teamHandler.List)
		api.GET("/teams/:id", teamHandler.Get)
		api.POST("/teams", manage, teamHandler.Create)
		api.PUT("/teams/:id", manage, teamHandler.Update)
		api.PATCH("/teams/:id/status", manage, teamHandler.ToggleStatus())
		api.POST("/teams/:id/delete-request", manage, teamHandler.RequestDeletion())
		api.DELETE("/teams/:id", manage, teamHandler.Remove())

		tt := api.Group("/time-tracking")
		tt.GET("/me", timeHandler.Me)
		tt.POST("/start", timeHandler.Start)
		tt.POST("/stop", timeHandler.Stop)
		tt.GET("/active", timeHandler.Active)
		tt.GET("/entries", timeHandler.Entries)
		tt.GET("/clients", timeHandler.Clients)
		tt.GET("/projects", timeHandler.Projects)
		tt.GET("/activities", timeHandler.Activities)

		api.GET("/dashboard", manage, reportHandler.Dashboard)
		api.GET("/reports/clients", manage, reportHandler.Clients)
		api.POST("/reports/clients/export", manage, reportHandler.Export)
		api.GET("/reports/exports/:id/download-url", manage, reportHandler.DownloadURL)
		api.GET("/email-logs", middleware.RequireRole(models.UserRoleAdmin), emailLogsHandler.List)
	}

	router.GET("/ws", realtime.ServeWs(hub, logger, func(token string) (string, error) {
		return authHandler.ValidateForSocket(context.Background(), token)
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// unavailableSigner answers download requests when S3 is not configured.
type unavailableSigner struct{}

func (unavailableSigner) ReportDownloadURL(context.Context, string) (string, error) {
	return "", errS3Disabled
}

var errS3Disabled = errors.New("report storage is not configured")

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
