// README: Order and driver handlers for the dispatch API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"courier/internal/modules/driver"
	"courier/internal/modules/matching"
	"courier/internal/modules/order"
	"courier/internal/types"
)

type DispatchHandler struct {
	engine *matching.Engine
}

func NewDispatchHandler(engine *matching.Engine) *DispatchHandler {
	return &DispatchHandler{engine: engine}
}

type pointReq struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (p pointReq) point() types.Point {
	return types.Point{Lng: p.Lng, Lat: p.Lat}
}

type createOrderReq struct {
	Pickup   pointReq `json:"pickup"`
	Delivery pointReq `json:"delivery"`
	Cargo    string   `json:"cargo"`
	WeightKg float64  `json:"weight_kg"`
	Urgent   bool     `json:"urgent"`
}

func (h *DispatchHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	id := types.ID(uuid.NewString())
	res, err := h.engine.AddOrder(order.Order{
		ID:       id,
		Pickup:   req.Pickup.point(),
		Delivery: req.Delivery.point(),
		Cargo:    types.SizeClass(req.Cargo),
		WeightKg: req.WeightKg,
		Urgent:   req.Urgent,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{
		"order_id":               id,
		"status":                 order.StatusPending,
		"queue_position":         res.QueuePosition,
		"estimated_wait_minutes": res.EstimatedWaitMinutes,
	})
}

func (h *DispatchHandler) GetOrder(c *gin.Context) {
	id := types.ID(c.Param("id"))
	o, ok := h.engine.Order(id)
	if !ok {
		writeError(c, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *DispatchHandler) CancelOrder(c *gin.Context) {
	id := types.ID(c.Param("id"))
	res, err := h.engine.CancelOrder(id)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"order_id":        id,
		"status":          order.StatusCancelled,
		"refund_eligible": res.RefundEligible,
	})
}

func (h *DispatchHandler) CompleteOrder(c *gin.Context) {
	id := types.ID(c.Param("id"))
	var data order.CompletionData
	if err := c.ShouldBindJSON(&data); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.engine.CompleteOrder(id, data)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *DispatchHandler) UpdateDriverPosition(c *gin.Context) {
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.engine.UpdateDriverPosition(types.ID(c.Param("id")), req.point())
	c.Status(http.StatusNoContent)
}

type driverStatusReq struct {
	Status string `json:"status"`
}

func (h *DispatchHandler) UpdateDriverStatus(c *gin.Context) {
	var req driverStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	status := driver.Status(req.Status)
	if !status.Valid() {
		writeError(c, http.StatusBadRequest, "invalid status")
		return
	}
	h.engine.UpdateDriverStatus(types.ID(c.Param("id")), status)
	c.Status(http.StatusNoContent)
}

func (h *DispatchHandler) Statistics(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.engine.Statistics())
}
