package handlers

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/logging"
	"github.com/wizone/it-support-api/internal/middleware"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/observability"
	"github.com/wizone/it-support-api/internal/services"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	SessionStore   sessions.Store
	Tokens         *auth.TokenManager
	RequestTimeout time.Duration

	AuthService       *services.AuthService
	UserService       *services.UserService
	CustomerService   *services.CustomerService
	TaskService       *services.TaskService
	AssignmentService *services.AssignmentService
	TriageService     *services.TriageService
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	r := gin.New()
	r.Use(logging.Recovery(logger))
	r.Use(logging.RequestLogger(logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.RequestTimeout(deps.RequestTimeout))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	customerHandler := NewCustomerHandler(deps.CustomerService)
	portalHandler := NewCustomerPortalHandler(deps.CustomerService, deps.TaskService)
	taskHandler := NewTaskHandler(deps.TaskService, deps.AssignmentService, deps.TriageService)
	systemHandler := NewSystemHandler(metrics)

	requireAuth := middleware.RequireAuth(deps.Tokens)
	officeStaff := middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleEngineer, models.RoleBackendEngineer)
	supervisors := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r.GET("/health", systemHandler.Health)
	r.GET("/metrics", systemHandler.Metrics)

	api := r.Group("/api")
	{
		// Employee auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/token", authHandler.IssueToken)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		// User routes (protected)
		api.GET("/users", requireAuth, supervisors, userHandler.ListUsers)
		api.POST("/users", requireAuth, adminOnly, userHandler.CreateUser)
		api.GET("/field-engineers", requireAuth, userHandler.ListFieldEngineers)

		// Customer routes (protected)
		customers := api.Group("/customers")
		customers.Use(requireAuth)
		{
			customers.GET("", customerHandler.ListCustomers)
			customers.POST("", officeStaff, customerHandler.CreateCustomer)
			customers.GET("/:id", customerHandler.GetCustomer)
			customers.PUT("/:id", officeStaff, customerHandler.UpdateCustomer)
			customers.PUT("/:id/portal-access", supervisors, customerHandler.SetPortalAccess)
		}

		// Customer portal
		customerAuth := api.Group("/customer-auth")
		{
			customerAuth.POST("/login", portalHandler.Login)
			customerAuth.POST("/logout", portalHandler.Logout)
		}

		portal := api.Group("/customer-portal")
		portal.Use(middleware.RequireCustomer(deps.Tokens))
		{
			portal.POST("/tasks", portalHandler.CreateTask)
			portal.GET("/tasks/:customerId", portalHandler.ListTasks)
			portal.GET("/tasks/:customerId/:taskId/updates", portalHandler.ListTaskUpdates)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", officeStaff, taskHandler.CreateTask)
			tasks.POST("/triage", officeStaff, taskHandler.Triage)

			task := tasks.Group("/:id", middleware.RequireTaskAccess())
			{
				task.GET("", taskHandler.GetTask)
				task.PUT("", taskHandler.UpdateTask)
				task.DELETE("", adminOnly, taskHandler.DeleteTask)
				task.GET("/updates", taskHandler.ListUpdates)
				task.POST("/updates", taskHandler.AddUpdate)
				task.POST("/assign-field-engineer", officeStaff, taskHandler.AssignFieldEngineer)
				task.POST("/assign", officeStaff, taskHandler.AssignEngineer)
				task.POST("/field-status", taskHandler.UpdateFieldStatus)
				task.POST("/complete", taskHandler.CompleteTask)
			}
		}

		api.GET("/dashboard/stats", requireAuth, taskHandler.Stats)
	}

	return r
}
