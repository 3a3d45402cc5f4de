package handlers

import (
	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/middleware"
	"github.com/estivenmendezr98/TAREAS/internal/monitoring"
	"github.com/estivenmendezr98/TAREAS/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Engine      *lifecycle.Engine
	Auth        *services.AuthServiceImpl
	Users       services.UserService
	Projects    services.ProjectService
	Tasks       services.TaskService
	Categories  services.CategoryService
	Evidence    services.EvidenceService
	Registry    *monitoring.Registry
	RateLimiter *middleware.RateLimiter
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(middleware.RequestLogger())
	if deps.Registry != nil {
		router.Use(deps.Registry.Middleware())
	}
	router.Use(cors.New(corsConfig(deps.Config.Server.CORSOrigins)))

	if deps.Registry != nil {
		router.GET("/health", deps.Registry.HealthHandler())
		router.GET("/health/ready", deps.Registry.ReadinessHandler())
		router.GET("/health/live", deps.Registry.LivenessHandler())
		router.GET("/metrics", deps.Registry.MetricsHandler())
	}
	router.Static("/uploads", deps.Config.Storage.UploadDir)

	authHandler := NewAuthHandler(deps.DB, deps.Auth)
	userHandler := NewUserHandler(deps.DB, deps.Users)
	categoryHandler := NewCategoryHandler(deps.DB, deps.Categories)
	projectHandler := NewProjectHandler(deps.DB, deps.Projects, deps.Engine)
	taskHandler := NewTaskHandler(deps.DB, deps.Tasks, deps.Engine)
	evidenceHandler := NewEvidenceHandler(deps.DB, deps.Evidence, deps.Config.Storage.MaxUploadSize)
	recycleBinHandler := NewRecycleBinHandler(deps.Engine)

	api := router.Group("/api")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}
	api.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{Parser: deps.Auth}))
	{
		admin := protected.Group("/users", middleware.AdminOnlyMiddleware())
		admin.GET("", userHandler.GetUsers)
		admin.POST("", userHandler.CreateUser)
		admin.PUT("/:id", userHandler.UpdateUser)

		protected.GET("/categories", categoryHandler.GetCategories)
		protected.POST("/categories", categoryHandler.CreateCategory)
		protected.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		protected.GET("/projects", projectHandler.GetProjects)
		protected.POST("/projects", projectHandler.CreateProject)
		protected.PUT("/projects/:id", projectHandler.UpdateProject)
		protected.DELETE("/projects/:id", projectHandler.DeleteProject)

		protected.POST("/tasks", taskHandler.CreateTask)
		protected.PUT("/tasks/:id", taskHandler.UpdateTask)
		protected.DELETE("/tasks/:id", taskHandler.DeleteTask)
		protected.POST("/tasks/:id/evidence", evidenceHandler.UploadEvidence)
		protected.DELETE("/evidence/:id", evidenceHandler.DeleteEvidence)

		protected.GET("/deleted", recycleBinHandler.GetDeleted)
		protected.GET("/deleted/history", recycleBinHandler.GetPurgeHistory)
		protected.POST("/restore/:type/:id", recycleBinHandler.Restore)
		protected.DELETE("/permanent/:type/:id", recycleBinHandler.PermanentDelete)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
