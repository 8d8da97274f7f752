package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotel-booking/auth"
	"hotel-booking/config"
	"hotel-booking/controllers"
	"hotel-booking/logger"
	"hotel-booking/middleware"
)

// Handlers bundles the controllers SetupRouter wires.
type Handlers struct {
	Session   *controllers.SessionController
	Agency    *controllers.AgencyController
	Dashboard *controllers.DashboardController
	Settings  *controllers.SettingsController
	Guest     *controllers.GuestController
	Pages     *controllers.PagesController
}

// SetupRouter builds the engine. uploadsDir is served at /uploads when files are kept on local disk.
func SetupRouter(app config.AppConfig, h Handlers, verifier *auth.Verifier, log logger.Logger, uploadsDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))
	r.MaxMultipartMemory = 8 << 20

	if uploadsDir != "" {
		r.Static("/uploads", uploadsDir)
	}

	origins := app.ParseCORSOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.LoadSession(verifier))

	api := r.Group("/api")
	{
		session := api.Group("/session")
		{
			session.POST("/login", h.Session.Login)
			session.POST("/logout", h.Session.Logout)
			session.POST("/verify", h.Session.Verify)
		}

		admin := api.Group("/admin", middleware.APIGate())
		{
			admin.GET("/hotels", h.Agency.ListHotels)
			admin.POST("/hotels", h.Agency.CreateHotel)
			admin.GET("/hotels/:hotelId", h.Agency.GetHotel)
			admin.DELETE("/hotels/:hotelId", h.Agency.DeleteHotel)
		}

		dashboard := api.Group("/dashboard/:hotelId", middleware.APIGate())
		{
			dashboard.GET("/bookings", h.Dashboard.ListBookings)
			dashboard.POST("/bookings", h.Dashboard.CreateBooking)
			dashboard.DELETE("/bookings", h.Dashboard.DeleteBookings)
			dashboard.GET("/bookings/:bookingId", h.Dashboard.GetBooking)
			dashboard.PUT("/bookings/:bookingId", h.Dashboard.UpdateBooking)
			dashboard.GET("/bookings/:bookingId/link", h.Dashboard.GetBookingLink)

			dashboard.GET("/settings", h.Settings.GetSettings)
			dashboard.PUT("/settings", h.Settings.UpdateSettings)
			dashboard.POST("/policies/generate", h.Settings.GeneratePolicies)
		}

		guest := api.Group("/guest/:linkId")
		{
			guest.GET("", h.Guest.Resolve)
			guest.GET("/wizard", h.Guest.GetWizard)
			guest.POST("/wizard/next", h.Guest.Next)
			guest.POST("/wizard/back", h.Guest.Back)
			guest.POST("/wizard/files/:slot", middleware.LimitBody(controllers.MaxUploadRequestBytes), h.Guest.UploadFile)
			guest.DELETE("/wizard/files/:slot", h.Guest.RemoveFile)
			guest.POST("/submit", h.Guest.Submit)
		}
	}

	pages := r.Group("", middleware.PageGate())
	{
		pages.GET("/login", h.Pages.HotelierLogin)
		pages.GET("/admin/login", h.Pages.AgencyLogin)
		pages.GET("/admin", h.Pages.AgencyHome)
		pages.GET("/admin/hotels", h.Pages.AgencyHome)
		pages.GET("/admin/hotels/:hotelId", h.Pages.AgencyHome)
		pages.GET("/dashboard", h.Pages.HotelierLogin)
		pages.GET("/dashboard/:hotelId", h.Pages.Dashboard)
		pages.GET("/dashboard/:hotelId/*rest", h.Pages.Dashboard)
		pages.GET("/guest/:linkId", h.Pages.GuestLanding)
		pages.GET("/guest/:linkId/thank-you", h.Pages.ThankYou)
	}

	return r
}
