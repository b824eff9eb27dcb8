package allocation

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

// Register handles POST /events/:seriesId/:eventId/register/:membershipNumber
// @Summary Toggle self-registration for an event
// @Description Registers the member, or unregisters them if already registered
// @Tags Allocations
// @Produce json
// @Param seriesId path string true "Event series ID"
// @Param eventId path string true "Event ID"
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} RegisterResult
// @Failure 403 {object} gin.H
// @Failure 422 {object} gin.H
// @Router /events/{seriesId}/{eventId}/register/{membershipNumber} [post]
func (h *Handler) Register(c *gin.Context) {
	result, err := h.service.Register(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), c.Param("membershipNumber"),
		middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Eligibility handles GET /events/:seriesId/:eventId/eligibility/:membershipNumber
// @Summary Check a member's eligibility for an event
// @Tags Allocations
// @Produce json
// @Success 200 {object} eligibility.Result
// @Router /events/{seriesId}/{eventId}/eligibility/{membershipNumber} [get]
func (h *Handler) Eligibility(c *gin.Context) {
	result, err := h.service.Eligibility(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), c.Param("membershipNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAllocations handles GET /events/:seriesId/:eventId/allocations
func (h *Handler) ListAllocations(c *gin.Context) {
	allocations, err := h.service.ListByEvent(c.Request.Context(), c.Param("seriesId"), c.Param("eventId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, allocations)
}

// MemberAllocations handles GET /members/:membershipNumber/allocations
func (h *Handler) MemberAllocations(c *gin.Context) {
	allocations, err := h.service.MemberAllocations(c.Request.Context(), c.Param("membershipNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, allocations)
}

// SetAllocations handles PUT /events/:seriesId/:eventId/allocate
// @Summary Bulk administrative allocation write
// @Description Applies a state to batches of members. Failures are reported per member, the batch continues.
// @Tags Allocations
// @Accept json
// @Produce json
// @Param request body SetAllocationsRequest true "Allocation groups"
// @Success 200 {object} SetAllocationsResult
// @Router /events/{seriesId}/{eventId}/allocate [put]
func (h *Handler) SetAllocations(c *gin.Context) {
	var req SetAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SetAllocations(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SetAllocation handles PUT /events/:seriesId/:eventId/allocate/:membershipNumber
func (h *Handler) SetAllocation(c *gin.Context) {
	var req struct {
		Allocation string `json:"allocation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.service.SetAllocation(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), c.Param("membershipNumber"), req.Allocation,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// DeleteAllocation handles DELETE /events/:seriesId/:eventId/allocate/:membershipNumber
func (h *Handler) DeleteAllocation(c *gin.Context) {
	err := h.service.DeleteAllocation(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), c.Param("membershipNumber"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "allocation deleted"})
}

// Suggest handles GET /events/:seriesId/:eventId/allocate/suggest
// @Summary Suggest which registered members to allocate
// @Tags Allocations
// @Produce json
// @Param limit query int false "Override the computed remaining capacity"
// @Success 200 {array} string
// @Router /events/{seriesId}/{eventId}/allocate/suggest [get]
func (h *Handler) Suggest(c *gin.Context) {
	var limitOverride *int
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be numeric"})
			return
		}
		limitOverride = &limit
	}

	selected, err := h.service.Suggest(c.Request.Context(),
		c.Param("seriesId"), c.Param("eventId"), limitOverride,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if selected == nil {
		selected = []string{}
	}
	c.JSON(http.StatusOK, selected)
}

// respondError maps allocation errors onto HTTP statuses with stable reason
// codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRegistrationClosed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Registration deadline has already passed",
			"reason":  apperr.ReasonRegistrationClosed,
		})
	case errors.Is(err, ErrNotEligible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Eligibility criteria not met",
			"reason":  apperr.ReasonNotEligible,
		})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusForbidden, gin.H{
			"message": err.Error(),
			"reason":  apperr.ReasonInvalidTransition,
		})
	case errors.Is(err, apperr.ErrValidation):
		var verr *apperr.ValidationError
		detail := []string{err.Error()}
		if errors.As(err, &verr) {
			detail = verr.Messages
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Errors found during validation",
			"detail":  detail,
			"reason":  apperr.ReasonValidation,
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "reason": apperr.ReasonNotFound})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": apperr.ReasonConflict})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "reason": apperr.ReasonCollaborator})
	}
}
