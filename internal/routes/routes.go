package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	"github.com/BruksfildServices01/barbershop-booking/internal/config"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/handlers"
	infraRepo "github.com/BruksfildServices01/barbershop-booking/internal/infra/repository"
	"github.com/BruksfildServices01/barbershop-booking/internal/logging"
	"github.com/BruksfildServices01/barbershop-booking/internal/middleware"
	"github.com/BruksfildServices01/barbershop-booking/internal/reminder"
	ucBooking "github.com/BruksfildServices01/barbershop-booking/internal/usecase/booking"
)

// Deps are the singletons built in main. Cache and Limiter may be nil.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Grid      domain.Grid
	Location  *time.Location
	Cache     cache.Availability
	Audit     *audit.Dispatcher
	Scheduler *reminder.Scheduler
	Limiter   middleware.Limiter
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewIPLimiter(deps.Config.PublicRateLimit)
	}

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestID())
	r.Use(logging.GinLogger())
	r.Use(middleware.CORSMiddleware(deps.Config.CORSAllowedOrigins))

	// ======================================================
	// 🔧 INFRA
	// ======================================================
	bookingRepo := infraRepo.NewBookingGormRepository(deps.DB)

	// ======================================================
	// 🧠 USE CASES (BOOKINGS)
	// ======================================================
	getAvailabilityUC := ucBooking.NewGetAvailability(
		bookingRepo,
		deps.Grid,
		deps.Location,
		deps.Cache,
		logging.WithComponent("availability"),
	)

	createBookingUC := ucBooking.NewCreateBooking(
		bookingRepo,
		getAvailabilityUC,
		deps.Cache,
		deps.Audit,
	).WithPhoneCountryCode(deps.Config.SMSDefaultCountryCode)

	listBookingsUC := ucBooking.NewListBookings(bookingRepo, deps.Location)
	cancelBookingUC := ucBooking.NewCancelBooking(bookingRepo, deps.Cache, deps.Audit, deps.Location)
	completeBookingUC := ucBooking.NewCompleteBooking(bookingRepo, deps.Cache, deps.Audit, deps.Location)

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Config)
	meHandler := handlers.NewMeHandler(deps.DB)

	availabilityHandler := handlers.NewAvailabilityHandler(getAvailabilityUC)
	bookingHandler := handlers.NewBookingHandler(
		createBookingUC,
		listBookingsUC,
		cancelBookingUC,
		completeBookingUC,
	)

	catalogHandler := handlers.NewCatalogHandler(deps.DB, deps.Cache)
	breakHandler := handlers.NewStaffBreakHandler(deps.DB, deps.Cache)
	clientHandler := handlers.NewClientHandler(deps.DB)
	reminderHandler := handlers.NewReminderHandler(deps.DB, deps.Scheduler, deps.Audit)
	auditLogsHandler := handlers.NewAuditLogsHandler(deps.DB, deps.Location)

	// ======================================================
	// 🩺 OPERACIONAL
	// ======================================================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// ======================================================
	// 🌐 PÚBLICO
	// ======================================================
	public := api.Group("")
	public.Use(middleware.RateLimit(deps.Limiter, logging.WithComponent("ratelimit")))
	{
		public.POST("/auth/login", authHandler.Login)

		public.GET("/barbers", catalogHandler.ListBarbers)
		public.GET("/services", catalogHandler.ListServices)

		public.GET("/availability", availabilityHandler.Get)
		public.POST("/bookings", bookingHandler.Create)
	}

	// ======================================================
	// 🔐 ADMIN
	// ======================================================
	admin := api.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(deps.Config.JWTSecret),
		middleware.RequireRole("admin", "owner"),
	)
	{
		admin.GET("/me", meHandler.GetMe)

		// 📅 Agendamentos
		admin.GET("/bookings", bookingHandler.List)
		admin.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)
		admin.PATCH("/bookings/:id/complete", bookingHandler.Complete)

		// ✂️ Catálogo
		admin.POST("/barbers", catalogHandler.CreateBarber)
		admin.PATCH("/barbers/:id", catalogHandler.UpdateBarber)
		admin.POST("/services", catalogHandler.CreateService)
		admin.PATCH("/services/:id", catalogHandler.UpdateService)

		// ☕ Pausas
		admin.GET("/breaks", breakHandler.List)
		admin.POST("/breaks", breakHandler.Create)
		admin.DELETE("/breaks/:id", breakHandler.Delete)

		// 👥 Clientes
		admin.GET("/clients", clientHandler.List)

		// 🔔 Lembretes
		admin.GET("/reminder-templates", reminderHandler.ListTemplates)
		admin.POST("/reminder-templates", reminderHandler.CreateTemplate)
		admin.PATCH("/reminder-templates/:id", reminderHandler.UpdateTemplate)
		admin.DELETE("/reminder-templates/:id", reminderHandler.DeleteTemplate)
		admin.GET("/reminder-logs", reminderHandler.ListLogs)

		admin.GET("/reminders/status", reminderHandler.Status)
		admin.POST("/reminders/trigger", reminderHandler.Trigger)
		admin.POST("/reminders/start", reminderHandler.Start)
		admin.POST("/reminders/stop", reminderHandler.Stop)

		// 🧾 Auditoria
		admin.GET("/audit-logs", auditLogsHandler.List)
	}
}
