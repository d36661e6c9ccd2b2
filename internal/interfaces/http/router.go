package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/analytics"
	"github.com/jhoicas/crm-api/internal/application/auth"
	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	LeadUC      *usecase.LeadUseCase
	DealUC      *usecase.DealUseCase
	AnalyticsUC *analytics.ForecastUseCase
	Dispatcher  *notification.Dispatcher
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(string(entity.RoleAdmin))

	// Users
	users := protected.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/me", userHandler.Me)
	users.Post("/", adminOnly, userHandler.Create)
	users.Get("/", adminOnly, userHandler.List)
	users.Get("/:id", adminOnly, userHandler.GetByID)
	users.Patch("/:id", userHandler.Update)
	users.Delete("/:id", adminOnly, userHandler.Delete)

	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsUC)

	// Leads (las rutas estáticas van antes de /:id)
	leads := protected.Group("/leads")
	leadHandler := NewLeadHandler(deps.LeadUC)
	leads.Post("/", RequireRole(string(entity.RoleAdmin), string(entity.RoleSalesRep)), leadHandler.Create)
	leads.Get("/", leadHandler.List)
	leads.Get("/status-percentages", analyticsHandler.LeadStatusPercentages)
	leads.Get("/:id", leadHandler.GetByID)
	leads.Patch("/:id", leadHandler.Update)
	leads.Delete("/:id", leadHandler.Delete)

	// Deals
	deals := protected.Group("/deals")
	dealHandler := NewDealHandler(deps.DealUC)
	deals.Post("/", RequireRole(string(entity.RoleAdmin), string(entity.RoleSalesRep)), dealHandler.Create)
	deals.Get("/", dealHandler.List)
	deals.Get("/stage-percentages", analyticsHandler.DealStagePercentages)
	deals.Get("/forecast/monthly", analyticsHandler.MonthlyForecast)
	deals.Get("/forecast/report", analyticsHandler.ForecastReport)
	deals.Get("/pipeline", analyticsHandler.Pipeline)
	deals.Get("/:id", dealHandler.GetByID)
	deals.Patch("/:id", dealHandler.Update)
	deals.Delete("/:id", dealHandler.Delete)

	// Notifications
	notificationHandler := NewNotificationHandler(deps.Dispatcher)
	protected.Post("/notifications", notificationHandler.Send)
}
