package transport

import (
	"time"

	"github.com/warcamp/booker/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

func InitRoutes(bookingHandler *BookingHandler, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(requestTimeout))

	api := router.Group("/api/v1")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/complete", bookingHandler.CompleteBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		owners := api.Group("/owners")
		{
			owners.GET("/:owner/active-count", bookingHandler.CountActive)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/logs", bookingHandler.GetAuditLog)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}
