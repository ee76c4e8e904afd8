package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/donation"
	"donation-console/internal/geolocation"
	"donation-console/internal/middleware"
	"donation-console/internal/session"
	"donation-console/pkg/utils"
)

// Counter reports the approved donation total shown in the list header.
type Counter interface {
	ApprovedTotal(ctx context.Context, sess *session.Session) (int64, error)
}

type DonationHandler struct {
	controller    *donation.Controller
	locator       *geolocation.BrowserLocator
	counter       Counter
	imageBaseURL  string
	maxImageBytes int64
}

func NewDonationHandler(controller *donation.Controller, locator *geolocation.BrowserLocator, counter Counter, imageBaseURL string, maxImageBytes int64) *DonationHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = donation.DefaultMaxImageBytes
	}
	return &DonationHandler{
		controller:    controller,
		locator:       locator,
		counter:       counter,
		imageBaseURL:  imageBaseURL,
		maxImageBytes: maxImageBytes,
	}
}

func (h *DonationHandler) RegisterRoutes(router *gin.RouterGroup) {
	donations := router.Group("/donations")
	{
		donations.GET("", h.List)
		donations.GET("/total", h.ApprovedTotal)
		donations.POST("/:id/drafts", h.OpenDraft)
	}

	drafts := router.Group("/drafts")
	{
		drafts.GET("/:draftId", h.GetDraft)
		drafts.PUT("/:draftId/status", h.SetStatus)
		drafts.POST("/:draftId/image", h.SetImage)
		drafts.POST("/:draftId/location/sensor", h.ReportSensor)
		drafts.PUT("/:draftId/location", h.OverrideLocation)
		drafts.POST("/:draftId/location/retry", h.RetryLocation)
		drafts.POST("/:draftId/submit", h.Submit)
		drafts.DELETE("/:draftId", h.Cancel)
	}
}

type listQuery struct {
	Estado  string `form:"estado"`
	Refresh bool   `form:"refresh"`
}

func (h *DonationHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.BadRequest(c, "Parámetros inválidos")
		return
	}

	items, err := h.controller.List(c.Request.Context(), middleware.GetSession(c), q.Refresh)
	if err != nil {
		respond.Error(c, err)
		return
	}

	items = donation.Filter(items, q.Estado)
	views := make([]donation.View, 0, len(items))
	for _, d := range items {
		views = append(views, donation.NewView(d, h.imageBaseURL))
	}
	utils.SuccessResponse(c, http.StatusOK, "", views)
}

func (h *DonationHandler) ApprovedTotal(c *gin.Context) {
	total, err := h.counter.ApprovedTotal(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"total": total})
}

func (h *DonationHandler) OpenDraft(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.BadRequest(c, "Identificador de donación inválido")
		return
	}

	view, err := h.controller.OpenDraft(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "", view)
}

func (h *DonationHandler) GetDraft(c *gin.Context) {
	view, err := h.controller.Draft(middleware.GetSession(c), c.Param("draftId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

type statusRequest struct {
	Estado donation.Status `json:"estado" binding:"required"`
}

func (h *DonationHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Seleccione un estado")
		return
	}

	view, err := h.controller.SetNextStatus(middleware.GetSession(c), c.Param("draftId"), req.Estado)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

func (h *DonationHandler) SetImage(c *gin.Context) {
	file, err := c.FormFile("imagen")
	if err != nil {
		respond.BadRequest(c, "Adjunte una imagen")
		return
	}

	f, err := file.Open()
	if err != nil {
		respond.BadRequest(c, "No se pudo leer la imagen")
		return
	}
	defer f.Close()

	// One byte over the limit is enough for the size check to fail.
	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		respond.BadRequest(c, "No se pudo leer la imagen")
		return
	}

	view, err := h.controller.SetImage(middleware.GetSession(c), c.Param("draftId"), file.Filename, data)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// sensorReport is what the browser's geolocation callback posts: either a
// reading or a GeolocationPositionError code.
type sensorReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	ErrorCode int      `json:"errorCode"`
}

func (h *DonationHandler) ReportSensor(c *gin.Context) {
	var req sensorReport
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Lectura de ubicación inválida")
		return
	}

	sess := middleware.GetSession(c)
	draftID := c.Param("draftId")
	if _, err := h.controller.Draft(sess, draftID); err != nil {
		respond.Error(c, err)
		return
	}

	var delivered bool
	switch {
	case req.ErrorCode != 0:
		delivered = h.locator.Fail(draftID, geolocation.ErrorFromCode(req.ErrorCode))
	case req.Latitude != nil && req.Longitude != nil:
		delivered = h.locator.Report(draftID, geolocation.Fix{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Accuracy:  req.Accuracy,
		})
	default:
		respond.BadRequest(c, "Lectura de ubicación inválida")
		return
	}
	if !delivered {
		utils.ErrorResponse(c, http.StatusConflict, "No hay una lectura de ubicación pendiente")
		return
	}

	c.Status(http.StatusAccepted)
}

type overrideRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *DonationHandler) OverrideLocation(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Indique la ubicación en el mapa")
		return
	}

	view, err := h.controller.OverrideLocation(middleware.GetSession(c), c.Param("draftId"), *req.Latitude, *req.Longitude)
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

func (h *DonationHandler) RetryLocation(c *gin.Context) {
	view, err := h.controller.RetryLocation(middleware.GetSession(c), c.Param("draftId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "", view)
}

func (h *DonationHandler) Submit(c *gin.Context) {
	updated, err := h.controller.Submit(middleware.GetSession(c), c.Param("draftId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Estado actualizado correctamente", donation.NewView(updated, h.imageBaseURL))
}

func (h *DonationHandler) Cancel(c *gin.Context) {
	if err := h.controller.Cancel(middleware.GetSession(c), c.Param("draftId")); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
