package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/middleware"
	"donation-console/internal/solicitud"
	"donation-console/pkg/utils"
)

type SolicitudHandler struct {
	service *solicitud.Service
}

func NewSolicitudHandler(service *solicitud.Service) *SolicitudHandler {
	return &SolicitudHandler{service: service}
}

// RegisterRoutes expects router to be admin-only.
func (h *SolicitudHandler) RegisterRoutes(router *gin.RouterGroup) {
	s := router.Group("/solicitudes")
	{
		s.GET("", h.List)
		s.POST("", h.Create)
		s.POST("/:id/approve", h.Approve)
		s.POST("/:id/reject", h.Reject)
	}
}

func (h *SolicitudHandler) List(c *gin.Context) {
	var q solicitud.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.BadRequest(c, "Parámetros inválidos")
		return
	}

	items, err := h.service.Summaries(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", solicitud.Filter(items, q))
}

func (h *SolicitudHandler) Approve(c *gin.Context) {
	reply, err := h.service.Approve(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, reply, nil)
}

type rejectRequest struct {
	Motivo string `json:"motivo"`
}

func (h *SolicitudHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Indique el motivo del rechazo")
		return
	}

	reply, err := h.service.Reject(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req.Motivo)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, reply, nil)
}

func (h *SolicitudHandler) Create(c *gin.Context) {
	var req solicitud.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Solicitud inválida")
		return
	}

	created, err := h.service.Create(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Solicitud registrada", created)
}
