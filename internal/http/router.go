// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/http/handlers"
	"courier/internal/http/middleware"
	"courier/internal/modules/matching"
	"courier/internal/modules/routing"
	"courier/internal/socket"
)

func NewRouter(engine *matching.Engine, planner *routing.Planner, hub *socket.Hub) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	dispatch := handlers.NewDispatchHandler(engine)
	r.POST("/api/orders", dispatch.CreateOrder)
	r.GET("/api/orders/:id", dispatch.GetOrder)
	r.POST("/api/orders/:id/cancel", dispatch.CancelOrder)
	r.POST("/api/orders/:id/complete", dispatch.CompleteOrder)
	r.PUT("/api/drivers/:id/position", dispatch.UpdateDriverPosition)
	r.PUT("/api/drivers/:id/status", dispatch.UpdateDriverStatus)
	r.GET("/api/statistics", dispatch.Statistics)

	routes := handlers.NewRouteHandler(planner)
	r.POST("/api/routes", routes.Plan)

	ws := handlers.NewSocketHandler(hub)
	r.GET("/ws", ws.Serve)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
