package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hospital-app-server/internal/handlers"
	"hospital-app-server/internal/middleware"
	"hospital-app-server/internal/models"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Appointments *handlers.AppointmentHandler
	Availability *handlers.AvailabilityHandler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, jwtSecret string, gatherer prometheus.Gatherer) {
	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		public.POST("/auth/login", h.Auth.Login)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(jwtSecret))
	{
		private.GET("/auth/profile", h.Auth.GetProfile)
		private.GET("/users/doctors", h.Users.GetDoctors)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), h.Appointments.CreateAppointment)

			// Scoped by role inside the service
			appointmentRoutes.GET("", h.Appointments.GetAppointmentsForUser)
			appointmentRoutes.GET("/pending", middleware.RoleAuthMiddleware(models.RoleDoctor), h.Appointments.GetPendingAppointments)
			appointmentRoutes.GET("/summary", h.Appointments.GetSummary)
			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)

			appointmentRoutes.PATCH("/:id/status", h.Appointments.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/cancel", middleware.RoleAuthMiddleware(models.RolePatient), h.Appointments.CancelAppointment)
			appointmentRoutes.PATCH("/:id/notes", middleware.RoleAuthMiddleware(models.RoleDoctor), h.Appointments.UpdateAppointmentNotes)
		}

		doctorRoutes := private.Group("/doctors/:id")
		{
			doctorRoutes.GET("/availability", h.Availability.GetDoctorWindows)
			doctorRoutes.GET("/slots", h.Availability.GetDoctorSlots)
		}

		// Doctors manage their own windows only
		availabilityRoutes := private.Group("/availability")
		availabilityRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
		{
			availabilityRoutes.POST("", h.Availability.CreateWindow)
			availabilityRoutes.PUT("/:id", h.Availability.UpdateWindow)
			availabilityRoutes.PATCH("/:id/active", h.Availability.SetWindowActive)
			availabilityRoutes.DELETE("/:id", h.Availability.DeleteWindow)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
