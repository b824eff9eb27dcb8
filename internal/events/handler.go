package events

import (
	"errors"
	"net/http"

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

// ListUpcoming handles GET /events
// @Summary List upcoming event instances
// @Tags Events
// @Produce json
// @Success 200 {array} EventInstance
// @Router /events [get]
func (h *Handler) ListUpcoming(c *gin.Context) {
	instances, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list events"})
		return
	}
	c.JSON(http.StatusOK, instances)
}

// ListSeries handles GET /events/series
// @Summary List event series
// @Tags Events
// @Produce json
// @Success 200 {array} EventSeries
// @Router /events/series [get]
func (h *Handler) ListSeries(c *gin.Context) {
	series, err := h.service.ListSeries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list event series"})
		return
	}
	c.JSON(http.StatusOK, series)
}

// CreateSeries handles POST /events/series
// @Summary Create an event series
// @Tags Events
// @Accept json
// @Produce json
// @Param request body CreateSeriesRequest true "Event series"
// @Success 201 {object} EventSeries
// @Failure 422 {object} gin.H
// @Router /events/series [post]
func (h *Handler) CreateSeries(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := h.service.CreateSeries(c.Request.Context(), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, series)
}

// GetSeries handles GET /events/series/:seriesId
// @Summary Get an event series
// @Tags Events
// @Produce json
// @Param seriesId path string true "Event series ID"
// @Success 200 {object} EventSeries
// @Failure 404 {object} gin.H
// @Router /events/series/{seriesId} [get]
func (h *Handler) GetSeries(c *gin.Context) {
	series, err := h.service.GetSeries(c.Request.Context(), c.Param("seriesId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// UpdateSeries handles PUT /events/series/:seriesId
func (h *Handler) UpdateSeries(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := h.service.UpdateSeries(c.Request.Context(), c.Param("seriesId"), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// DeleteSeries handles DELETE /events/series/:seriesId
func (h *Handler) DeleteSeries(c *gin.Context) {
	err := h.service.DeleteSeries(c.Request.Context(), c.Param("seriesId"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event series deleted"})
}

// ListInstances handles GET /events/series/:seriesId/instances
func (h *Handler) ListInstances(c *gin.Context) {
	instances, err := h.service.ListInstances(c.Request.Context(), c.Param("seriesId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list event instances"})
		return
	}
	c.JSON(http.StatusOK, instances)
}

// CreateInstance handles POST /events/series/:seriesId/instances
// @Summary Schedule an event instance
// @Tags Events
// @Accept json
// @Produce json
// @Param seriesId path string true "Event series ID"
// @Param request body CreateInstanceRequest true "Event instance"
// @Success 201 {object} EventInstance
// @Failure 422 {object} gin.H
// @Router /events/series/{seriesId}/instances [post]
func (h *Handler) CreateInstance(c *gin.Context) {
	var req CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instance, err := h.service.CreateInstance(c.Request.Context(), c.Param("seriesId"), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, instance)
}

// GetInstance handles GET /events/:seriesId/:eventId
func (h *Handler) GetInstance(c *gin.Context) {
	instance, err := h.service.GetInstance(c.Request.Context(), c.Param("seriesId"), c.Param("eventId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}

// UpdateInstance handles PUT /events/:seriesId/:eventId
func (h *Handler) UpdateInstance(c *gin.Context) {
	var req CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instance, err := h.service.UpdateInstance(c.Request.Context(), c.Param("seriesId"), c.Param("eventId"), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}

// DeleteInstance handles DELETE /events/:seriesId/:eventId
func (h *Handler) DeleteInstance(c *gin.Context) {
	err := h.service.DeleteInstance(c.Request.Context(), c.Param("seriesId"), c.Param("eventId"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
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
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
