package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"donation-console/internal/admin"
	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/middleware"
	"donation-console/pkg/utils"
)

type AdminHandler struct {
	service *admin.Service
}

func NewAdminHandler(service *admin.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes expects router to be admin-only.
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("/:id/active", h.ToggleActive)
		users.POST("/:id/admin", h.Promote)
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.service.Users(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	users = admin.Filter(users, c.Query("q"))
	if c.Query("elegibles") == "true" {
		users = admin.Eligible(users)
	}
	utils.SuccessResponse(c, http.StatusOK, "", users)
}

func (h *AdminHandler) ToggleActive(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.service.ToggleActive(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Estado del usuario actualizado", nil)
}

func (h *AdminHandler) Promote(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.service.Promote(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Usuario promovido a administrador", nil)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.BadRequest(c, "Identificador de usuario inválido")
		return 0, false
	}
	return id, true
}
