package member

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

// ListMembers handles GET /members
// @Summary List the membership roll
// @Description E-mail addresses are only included for COMMITTEE callers
// @Tags Members
// @Produce json
// @Success 200 {array} MemberSummary
// @Router /members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	includeEmail := middleware.CallerInGroup(c, middleware.GroupCommittee)

	members, err := h.service.List(c.Request.Context(), includeEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list members"})
		return
	}

	c.JSON(http.StatusOK, members)
}

// GetMember handles GET /members/:membershipNumber
// @Summary Get a member's full record
// @Tags Members
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} Member
// @Failure 404 {object} gin.H
// @Router /members/{membershipNumber} [get]
func (h *Handler) GetMember(c *gin.Context) {
	m, err := h.service.GetByMembershipNumber(c.Request.Context(), c.Param("membershipNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// UpdateMember handles PUT /members/:membershipNumber
// @Summary Update a member's contact details
// @Tags Members
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body UpdateMemberRequest true "Member details"
// @Success 200 {object} Member
// @Failure 422 {object} gin.H
// @Router /members/{membershipNumber} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.Update(c.Request.Context(), c.Param("membershipNumber"), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// SuspendMember handles POST /members/:membershipNumber/suspend
// @Summary Suspend or reinstate a member
// @Tags Members
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} gin.H
// @Router /members/{membershipNumber}/suspend [post]
func (h *Handler) SuspendMember(c *gin.Context) {
	var req struct {
		Suspended bool `json:"suspended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Suspend(c.Request.Context(), c.Param("membershipNumber"), req.Suspended,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member updated", "suspended": req.Suspended})
}

// DeleteMember handles DELETE /members/:membershipNumber
// @Summary Delete a member
// @Tags Members
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} gin.H
// @Router /members/{membershipNumber} [delete]
func (h *Handler) DeleteMember(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("membershipNumber"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member deleted"})
}

// CompareMembers handles POST /members/compare
// @Summary Compare the portal roll against the national membership list
// @Tags Members
// @Accept json
// @Produce json
// @Param request body CompareRequest true "Membership numbers from the national database"
// @Success 200 {array} CompareResult
// @Failure 400 {object} gin.H
// @Router /members/compare [post]
func (h *Handler) CompareMembers(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.service.Compare(c.Request.Context(), req.Members)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// MemberReport handles GET /members/report
// @Summary Membership demographics report
// @Tags Members
// @Produce json
// @Success 200 {object} MemberReport
// @Router /members/report [get]
func (h *Handler) MemberReport(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build member report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// respondError maps application errors onto HTTP statuses
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
