package router

import (
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/handler"
	"github.com/examdrive/examdrive-backend/internal/metrics"
	"github.com/examdrive/examdrive-backend/internal/middleware"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Drive         *handler.DriveHandler
	Result        *handler.ResultHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ─── 1. Student Group (JWT + Single Device) ────────────────────────
	studentAuth := router.Group("/api/v1/student/auth")
	{
		studentAuth.POST("/login", authLimiter.Middleware(), handlers.Auth.StudentLogin)
		studentAuth.POST("/logout",
			middleware.RequireStudentJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.StudentLogout,
		)
	}

	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/drive", handlers.StudentPortal.GetDrive)
		studentAPI.GET("/state", handlers.StudentPortal.GetState)
		studentAPI.POST("/exam/start", handlers.StudentPortal.StartExam)
		studentAPI.GET("/exam/questions", handlers.StudentPortal.GetQuestions)
		studentAPI.POST("/exam/violation", handlers.StudentPortal.RecordViolation)
		studentAPI.POST("/exam/disqualify", handlers.StudentPortal.Disqualify)
		studentAPI.POST("/exam/submit", handlers.StudentPortal.SubmitExam)
		studentAPI.GET("/exam/result", handlers.StudentPortal.GetResult)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireStudentWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/stream", handlers.WS.ViolationStream)
	}

	// ─── 3. Operator Group (JWT + Role) ────────────────────────────────
	router.POST("/api/v1/operator/auth/login", authLimiter.Middleware(), handlers.Auth.OperatorLogin)

	operatorAPI := router.Group("/api/v1/operator")
	operatorAPI.Use(middleware.RequireOperatorJWT(authService))
	{
		company := middleware.RequireRole(model.OperatorRoleCompany)
		admin := middleware.RequireRole(model.OperatorRoleAdmin)

		// Drive authoring
		operatorAPI.POST("/drives", company, handlers.Drive.Create)
		operatorAPI.GET("/drives/:id", handlers.Drive.Get)
		operatorAPI.POST("/drives/:id/questions", company, handlers.Drive.AddQuestions)
		operatorAPI.POST("/drives/:id/students", company, handlers.Drive.AddStudents)
		operatorAPI.POST("/drives/:id/submit", company, handlers.Drive.Submit)
		operatorAPI.POST("/drives/:id/review", admin, handlers.Drive.Review)

		// Window control
		operatorAPI.GET("/drives/:id/status", handlers.Drive.Status)
		operatorAPI.GET("/drives/:id/window", handlers.Drive.WindowStatus)
		operatorAPI.POST("/drives/:id/window/open", company, handlers.Drive.OpenWindow)
		operatorAPI.POST("/drives/:id/window/close", company, handlers.Drive.CloseWindow)
		operatorAPI.POST("/drives/:id/suspend", admin, handlers.Drive.Suspend)
		operatorAPI.POST("/drives/:id/reactivate", admin, handlers.Drive.Reactivate)

		// Results
		operatorAPI.GET("/drives/:id/results", middleware.Brotli(), handlers.Result.List)
		operatorAPI.GET("/drives/:id/results/export", middleware.Brotli(), handlers.Result.Export)
		operatorAPI.GET("/drives/:id/monitor", handlers.Monitor.MonitorDriveSSE)

		operatorAPI.POST("/students/:id/reset-login", admin, handlers.Auth.ResetStudentLogin)
		operatorAPI.GET("/system/metrics", admin, handlers.System.SystemMetricsSSE)
	}

	return router
}
