package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/middleware"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterDevice handles POST /notifications/devices
// @Summary Register a device token for push notifications
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body RegisterDeviceRequest true "Device token"
// @Success 201 {object} DeviceToken
// @Failure 422 {object} gin.H
// @Router /notifications/devices [post]
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.service.RegisterDevice(c.Request.Context(), middleware.CallerMembershipNumber(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, token)
}

// RemoveDevice handles DELETE /notifications/devices/:token
// @Summary Remove a registered device token
// @Tags Notifications
// @Produce json
// @Param token path string true "Device token"
// @Success 200 {object} gin.H
// @Router /notifications/devices/{token} [delete]
func (h *Handler) RemoveDevice(c *gin.Context) {
	err := h.service.RemoveDevice(c.Request.Context(), middleware.CallerMembershipNumber(c), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device token removed"})
}

// History handles GET /notifications
// @Summary List the caller's recent notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum entries to return" default(50)
// @Success 200 {array} NotificationLog
// @Router /notifications [get]
func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.service.History(c.Request.Context(), middleware.CallerMembershipNumber(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func respondError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Errors found during validation",
			"detail":  verr.Messages,
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
