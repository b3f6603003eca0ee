package routes

import (
	"innkeeper/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the internal API consumed by the conversation
// orchestrator plus the operational endpoints. Guest-facing webhook parsing
// lives with the channel collaborators, not here.
func RegisterRoutes(router *gin.Engine, reservations *handlers.ReservationHandler) {
	router.GET("/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/availability", reservations.CheckAvailabilityHandler)
		v1.POST("/reservations", reservations.CreateReservationHandler)
		v1.POST("/reservations/:id/cancel", reservations.CancelReservationHandler)
		v1.GET("/reservations/:id/late-checkout", reservations.CheckLateCheckoutHandler)
		v1.POST("/reservations/:id/late-checkout", reservations.ConfirmLateCheckoutHandler)
		v1.POST("/sessions", reservations.GetOrCreateSessionHandler)
		v1.PUT("/sessions/:userId", reservations.UpdateSessionHandler)
	}
}
