package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openschool/gradebook-api/api/swagger"
	"github.com/openschool/gradebook-api/internal/handler"
	"github.com/openschool/gradebook-api/internal/middleware"
	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/internal/repository"
	"github.com/openschool/gradebook-api/internal/service"
	"github.com/openschool/gradebook-api/pkg/cache"
	"github.com/openschool/gradebook-api/pkg/config"
	"github.com/openschool/gradebook-api/pkg/database"
	"github.com/openschool/gradebook-api/pkg/logger"
	corsmiddleware "github.com/openschool/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openschool/gradebook-api/pkg/middleware/requestid"
	"github.com/openschool/gradebook-api/pkg/security"
)

// @title OpenSchool Gradebook API
// @version 1.0.0
// @description School gradebook: teachers record grades, students view their own results
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres: " + err.Error())
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dashboard cache degrades to direct reads without redis.
		logr.Warn("redis unavailable, dashboard caching disabled: " + err.Error())
		redisClient = nil
	}

	schoolProvider := config.NewSchoolProvider(cfg.School.Path)
	hasher := security.NewHasher(security.DefaultParams())
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	adminResolver := service.NewAdminResolver(schoolProvider)
	authSvc := service.NewAuthService(userRepo, schoolProvider, hasher, validate, logr, service.AuthConfig{
		TokenSecret: cfg.Session.TokenSecret,
		TokenExpiry: cfg.Session.TokenExpiry,
		Issuer:      "gradebook-api",
	})
	userSvc := service.NewUserService(userRepo, hasher, cacheRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, userRepo, subjectRepo, cacheRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(gradeRepo, userRepo, subjectRepo, cacheRepo, metricsSvc, logr, cfg.Dashboard.CacheTTL)
	exportSvc := service.NewExportService(gradeRepo, logr)
	setupSvc := service.NewSetupService(schoolProvider, db, userRepo, subjectRepo, hasher, validate, logr)

	if setupSvc.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := setupSvc.Bootstrap(ctx); err != nil {
			cancel()
			logr.Fatal("bootstrap failed: " + err.Error())
		}
		cancel()
	} else {
		logr.Sugar().Infow("no config file found, waiting for first-time setup", "path", schoolProvider.Path())
	}

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc, handler.CookieSettings{
		MaxAge: cfg.Session.CookieMaxAge,
		Secure: cfg.Session.CookieSecure,
	})
	setupHandler := handler.NewSetupHandler(setupSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, setupSvc, adminResolver)
	gradeHandler := handler.NewGradeHandler(gradeSvc, exportSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.Session(authSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/setup", setupHandler.Run)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// The dashboard handles the unconfigured and anonymous states itself.
	r.GET("/", dashboardHandler.Show)

	teacherOnly := r.Group("/", middleware.RequireAuthenticated(), middleware.RequireRole(models.RoleTeacher))
	teacherOnly.POST("grades", gradeHandler.Create)
	teacherOnly.GET("grades/export", gradeHandler.Export)
	teacherOnly.GET("students/:id/grades", gradeHandler.ListForStudent)

	adminOnly := teacherOnly.Group("", middleware.RequireAdmin(adminResolver))
	adminOnly.GET("users", userHandler.List)
	adminOnly.POST("users", userHandler.Create)
	adminOnly.POST("users/:id/password", userHandler.ResetPassword)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Fatal("server exited: " + err.Error())
	}
}
