package routes

import (
	"github.com/gin-gonic/gin"

	"phlebcare-backend/internal/handlers"
	"phlebcare-backend/internal/middleware"
)

// Handlers bundles everything SetupRoutes needs to wire.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Catalog      *handlers.CatalogHandler
	Checkout     *handlers.CheckoutHandler
	Order        *handlers.OrderHandler
	Payment      *handlers.PaymentHandler
	Pleb         *handlers.PlebHandler
	Availability *handlers.AvailabilityHandler
}

func SetupRoutes(r *gin.Engine, h Handlers) {

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware())

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// Public: catalog and zone rates so customers can see pricing
		// before signing in, plus the gateway webhook.
		api.GET("/tests", h.Catalog.ListTests)
		api.GET("/services", h.Catalog.ListServices)
		api.GET("/zones/slots", h.Catalog.ZoneSlots)
		api.GET("/plebs/eligible", h.Pleb.SearchEligible)
		api.POST("/payment/notification", h.Payment.HandleGatewayNotification)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			practitioner := protected.Group("/")
			practitioner.Use(middleware.PractitionerOnly())
			{
				practitioner.POST("/checkout", h.Checkout.Checkout)
				practitioner.GET("/orders", h.Order.MyOrders)
				practitioner.GET("/orders/:id", h.Order.OrderDetail)
				practitioner.POST("/orders/:id/capture", h.Payment.Capture)
				practitioner.POST("/orders/:id/release", h.Payment.Release)
			}

			protected.POST("/payment/tokenize", h.Payment.Tokenize)
			protected.GET("/payment/tokens", h.Payment.ListTokens)
			protected.DELETE("/payment/tokens/:id", h.Payment.DeleteToken)

			pleb := protected.Group("/pleb")
			pleb.Use(middleware.PlebOnly())
			{
				pleb.GET("/availability", h.Availability.GetMine)
				pleb.PUT("/availability", h.Availability.ReplaceMine)
				pleb.GET("/jobs", h.Pleb.MyJobs)
				pleb.PATCH("/jobs/:id/status", h.Pleb.UpdateJobStatus)
			}
		}
	}
}
