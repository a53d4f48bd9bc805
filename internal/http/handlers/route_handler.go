// README: Route planning handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/routing"
	"courier/internal/types"
)

type RouteHandler struct {
	planner *routing.Planner
}

func NewRouteHandler(planner *routing.Planner) *RouteHandler {
	return &RouteHandler{planner: planner}
}

type planRouteReq struct {
	Points          []pointReq `json:"points"`
	AvoidCongestion bool       `json:"avoid_congestion"`
}

func (h *RouteHandler) Plan(c *gin.Context) {
	var req planRouteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Points) < 2 {
		writeError(c, http.StatusBadRequest, "need at least 2 points")
		return
	}

	points := make([]types.Point, 0, len(req.Points))
	for _, p := range req.Points {
		points = append(points, p.point())
	}

	route, err := h.planner.PlanMultiPointRoute(points, routing.Options{
		AvoidCongestion: req.AvoidCongestion,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, route)
}
