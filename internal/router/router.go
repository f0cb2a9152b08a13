package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/access"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Nav     *handler.NavHandler
	Exam    *handler.ExamHandler
	Attempt *handler.AttemptHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	sessions middleware.SessionResolver,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	resolve := middleware.ResolveSession(sessions, log)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute)
	anyRole := middleware.Guard(model.AllRoles...)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(resolve)
	{
		auth.POST("/login",
			loginLimiter.Middleware(),
			middleware.RestrictRoles(access.HomePath, model.AllRoles...),
			handlers.Auth.Login,
		)
		auth.POST("/logout", anyRole, handlers.Auth.Logout)
		auth.GET("/me", anyRole, handlers.Auth.Me)
		auth.PUT("/profile", anyRole, handlers.Auth.UpdateProfile)
	}

	// ─── 2. Shell Group (anonymous allowed) ────────────────────────────
	shell := router.Group("/api/v1")
	shell.Use(resolve)
	{
		shell.GET("/nav", handlers.Nav.Navigation)
		shell.GET("/routes/resolve", handlers.Nav.Resolve)
	}

	// ─── 3. Exam Group (any role) ──────────────────────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(resolve, anyRole)
	{
		exams.GET("/:exam_id", handlers.Exam.GetExam)
		exams.GET("/:exam_id/events",
			middleware.Guard(model.RoleAdmin, model.RoleTeacher),
			handlers.Exam.ListEvents,
		)
	}

	// ─── 4. Student Group ──────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(resolve, middleware.Guard(model.RoleStudent))
	{
		studentAPI.GET("/exams/:exam_id/attempt", handlers.Attempt.GetAttempt)
		studentAPI.GET("/exams/:exam_id/result", handlers.Exam.GetResult)
	}

	// ─── 5. WebSocket Group (Student, token in query) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(resolve, middleware.Guard(model.RoleStudent))
	{
		ws.GET("/exams/:exam_id/attempt", handlers.Attempt.AttemptStream)
	}

	return router
}
