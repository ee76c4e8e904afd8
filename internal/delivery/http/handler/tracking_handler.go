package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/middleware"
	"donation-console/internal/tracking"
	"donation-console/pkg/utils"
)

type TrackingHandler struct {
	service *tracking.Service
}

func NewTrackingHandler(service *tracking.Service) *TrackingHandler {
	return &TrackingHandler{service: service}
}

func (h *TrackingHandler) RegisterRoutes(router *gin.RouterGroup) {
	t := router.Group("/tracking")
	{
		t.GET("", h.List)
		t.GET("/delivered", h.DeliveredCount)
	}
}

type trackingView struct {
	tracking.Record
	Route []tracking.Point `json:"ruta"`
}

func (h *TrackingHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context(), middleware.GetSession(c), c.Query("refresh") == "true")
	if err != nil {
		respond.Error(c, err)
		return
	}

	views := make([]trackingView, 0, len(records))
	for _, r := range records {
		views = append(views, trackingView{Record: r, Route: r.Route()})
	}
	utils.SuccessResponse(c, http.StatusOK, "", views)
}

func (h *TrackingHandler) DeliveredCount(c *gin.Context) {
	n, err := h.service.DeliveredCount(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"entregadas": n})
}
