package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusops/course-records-api/api/swagger"
	"github.com/campusops/course-records-api/internal/handler"
	"github.com/campusops/course-records-api/internal/middleware"
	"github.com/campusops/course-records-api/internal/repository"
	"github.com/campusops/course-records-api/internal/service"
	"github.com/campusops/course-records-api/pkg/cache"
	"github.com/campusops/course-records-api/pkg/config"
	"github.com/campusops/course-records-api/pkg/database"
	"github.com/campusops/course-records-api/pkg/logger"
	corsmiddleware "github.com/campusops/course-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/course-records-api/pkg/middleware/requestid"
)

// @title Course Records API
// @version 1.0.0
// @description Course, enrollment, grade and attendance record management
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	professorRepo := repository.NewProfessorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	validate := validator.New()

	professorSvc := service.NewProfessorService(professorRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, professorRepo, attendanceRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, courseRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, courseRepo, studentRepo, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(studentRepo, enrollmentRepo, courseRepo, attendanceRepo, nil, nil, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Professors:  handler.NewProfessorHandler(professorSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Exports:     handler.NewExportHandler(exportSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
