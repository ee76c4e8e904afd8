package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-console/internal/auth/models"
	"donation-console/internal/auth/service"
	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/middleware"
	"donation-console/pkg/utils"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/new-password", h.SetNewPassword)
	}
}

// RegisterSessionRoutes expects router to run behind AuthMiddleware.
func (h *Handler) RegisterSessionRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respond.BadRequest(c, "Ingrese su CI y contraseña")
		return
	}

	authResponse, err := h.service.Login(c.Request.Context(), &request)
	if err != nil {
		respond.Error(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Inicio de sesión exitoso", authResponse)
}

func (h *Handler) Register(c *gin.Context) {
	var request models.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respond.BadRequest(c, "Ingrese su CI")
		return
	}

	if err := h.service.Register(c.Request.Context(), &request); err != nil {
		respond.Error(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Registro solicitado", nil)
}

func (h *Handler) SetNewPassword(c *gin.Context) {
	var request models.NewPasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respond.BadRequest(c, "Complete todos los campos")
		return
	}

	if err := h.service.SetNewPassword(c.Request.Context(), &request); err != nil {
		respond.Error(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Contraseña actualizada", nil)
}

func (h *Handler) Logout(c *gin.Context) {
	if sess := middleware.GetSession(c); sess != nil {
		h.service.Logout(sess.Token)
	}
	utils.SuccessResponse(c, http.StatusOK, "Sesión cerrada", nil)
}

func (h *Handler) Me(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Sesión no válida")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", models.AuthResponse{
		CI:        sess.Subject,
		IsAdmin:   sess.IsAdmin,
		ExpiresAt: sess.ExpiresAt,
	})
}

