package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/database"
	"github.com/stemsi/abroad-backend/internal/handler"
	"github.com/stemsi/abroad-backend/internal/middleware"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Student      *handler.StudentHandler
	Application  *handler.ApplicationHandler
	Conversation *handler.ConversationHandler
	Catalogue    *handler.CatalogueHandler
	Media        *handler.MediaHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	loginLimiter *middleware.RateLimiter,
	health *database.Health,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli(5, middleware.DefaultBrotliMinLength))

	// Uploaded files are content-addressed by a random name, so they never change.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		status, err := health.Check(c.Request.Context())
		if err != nil {
			response.FailWithFields(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, status)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "dependencies": status})
	})

	requireSession := []gin.HandlerFunc{
		middleware.RequireStaffJWT(authService),
		middleware.CheckActiveSession(authService, log),
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

		auth.GET("/me", append(requireSession, handlers.Auth.Me)...)
		auth.POST("/logout", append(requireSession, handlers.Auth.Logout)...)
	}

	// ─── 2. WebSocket Group (JWT via ?token=) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireSession...)
	{
		ws.GET("/conversations/:id/stream",
			middleware.RequirePermission(model.PermissionConversationsRead),
			handlers.WS.ConversationStream,
		)
	}

	// ─── 3. Staff API (JWT + session + RBAC) ───────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())
	api.Use(requireSession...)
	{
		api.POST("/media/upload",
			middleware.RequirePermission(model.PermissionMediaUpload),
			handlers.Media.Upload,
		)

		// Catalogue
		api.GET("/universities",
			middleware.RequirePermission(model.PermissionCatalogueRead),
			handlers.Catalogue.ListUniversities,
		)
		api.POST("/universities",
			middleware.RequirePermission(model.PermissionCatalogueWrite),
			handlers.Catalogue.CreateUniversity,
		)
		api.GET("/courses",
			middleware.RequirePermission(model.PermissionCatalogueRead),
			handlers.Catalogue.ListCourses,
		)
		api.POST("/courses",
			middleware.RequirePermission(model.PermissionCatalogueWrite),
			handlers.Catalogue.CreateCourse,
		)

		// Students
		students := api.Group("/students")
		{
			students.GET("", middleware.RequirePermission(model.PermissionStudentsRead), handlers.Student.List)
			students.POST("", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.CreateLead)
			students.POST("/register", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.Register)
			students.GET("/:id", middleware.RequirePermission(model.PermissionStudentsRead), handlers.Student.Get)
			students.PUT("/:id", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.Update)
			students.DELETE("/:id", middleware.RequirePermission(model.PermissionStudentsDelete), handlers.Student.Delete)

			students.PUT("/:id/personal-info", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.SavePersonalInfo)
			students.PUT("/:id/academic-qualification", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.SaveAcademicQualification)
			students.PUT("/:id/documents", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.SaveDocuments)
			students.PUT("/:id/work-experiences", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.Student.SaveWorkExperiences)
		}

		// Applications. Transition permissions are enforced again by the
		// lifecycle machine, which owns the rules.
		api.GET("/application-statuses",
			middleware.RequirePermission(model.PermissionApplicationsRead),
			handlers.Application.Statuses,
		)
		apps := api.Group("/applications")
		{
			apps.GET("", middleware.RequirePermission(model.PermissionApplicationsRead), handlers.Application.List)
			apps.POST("", middleware.RequirePermission(model.PermissionApplicationsCreate), handlers.Application.Create)
			apps.GET("/:id", middleware.RequirePermission(model.PermissionApplicationsRead), handlers.Application.Get)
			apps.DELETE("/:id", middleware.RequirePermission(model.PermissionApplicationsWithdraw), handlers.Application.Withdraw)
			apps.GET("/:id/activities", middleware.RequirePermission(model.PermissionApplicationsRead), handlers.Application.Activities)

			apps.PATCH("/:id/status", middleware.RequirePermission(model.PermissionApplicationsStatus), handlers.Application.SetStatus)
			apps.PATCH("/:id/priority", middleware.RequirePermission(model.PermissionApplicationsPriority), handlers.Application.SetPriority)

			apps.PUT("/:id/payment", middleware.RequirePermission(model.PermissionPaymentsUpload), handlers.Application.UploadPayment)
			apps.POST("/:id/payment/verify", middleware.RequirePermission(model.PermissionPaymentsVerify), handlers.Application.VerifyPayment)
			apps.DELETE("/:id/payment", middleware.RequirePermission(model.PermissionPaymentsVerify), handlers.Application.RemovePayment)
		}

		// Conversations
		api.GET("/conversations/:id/messages",
			middleware.RequirePermission(model.PermissionConversationsRead),
			handlers.Conversation.ListMessages,
		)
		api.POST("/conversations/:id/messages",
			middleware.RequirePermission(model.PermissionConversationsWrite),
			handlers.Conversation.Send,
		)
	}

	return router
}
