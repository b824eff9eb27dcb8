package application

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

// Submit handles POST /applications/:membershipNumber
// @Summary Submit a membership application
// @Description Public endpoint used by prospective members
// @Tags Applications
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body SubmitApplicationRequest true "Application"
// @Success 200 {object} gin.H
// @Failure 422 {object} gin.H
// @Router /applications/{membershipNumber} [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Submit(c.Request.Context(), c.Param("membershipNumber"), req, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application submitted"})
}

// List handles GET /applications
// @Summary List pending applications
// @Tags Applications
// @Produce json
// @Success 200 {array} Application
// @Router /applications [get]
func (h *Handler) List(c *gin.Context) {
	apps, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if apps == nil {
		apps = []Application{}
	}

	c.JSON(http.StatusOK, apps)
}

// GetStatus handles POST /applications/:membershipNumber/status
// @Summary Check reference progress for an application
// @Description Requires the applicant's date of birth; a mismatch looks identical to a missing application
// @Tags Applications
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body StatusRequest true "Date of birth"
// @Success 200 {object} Status
// @Failure 404 {object} gin.H
// @Router /applications/{membershipNumber}/status [post]
func (h *Handler) GetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date of birth must be provided for validation purposes"})
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), c.Param("membershipNumber"), req.DateOfBirth)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Could not find application"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SubmitReference handles POST /applications/:membershipNumber/references
// @Summary Submit a reference for an applicant
// @Description Public endpoint; the token from the referee's e-mail authenticates the submission
// @Tags Applications
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body SubmitReferenceRequest true "Reference"
// @Success 200 {object} gin.H
// @Failure 422 {object} gin.H
// @Router /applications/{membershipNumber}/references [post]
func (h *Handler) SubmitReference(c *gin.Context) {
	var req SubmitReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.SubmitReference(c.Request.Context(), c.Param("membershipNumber"), req, middleware.GetIPFromContext(c))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "We have not received an application for this membership number"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reference submitted"})
}

// AcceptReference handles POST /applications/:membershipNumber/references/accept
// @Summary Mark a submitted reference as reviewed and accepted
// @Tags Applications
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body AcceptReferenceRequest true "Referee e-mail"
// @Success 200 {object} gin.H
// @Router /applications/{membershipNumber}/references/accept [post]
func (h *Handler) AcceptReference(c *gin.Context) {
	var req AcceptReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.AcceptReference(c.Request.Context(), c.Param("membershipNumber"), req.Email,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reference accepted"})
}

// Approve handles POST /applications/:membershipNumber/approve
// @Summary Approve an application and create the member record
// @Tags Applications
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} member.Member
// @Failure 404 {object} gin.H
// @Router /applications/{membershipNumber}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	m, err := h.service.Approve(c.Request.Context(), c.Param("membershipNumber"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "We have not received an application for this membership number"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Reject handles DELETE /applications/:membershipNumber
// @Summary Reject and remove an application
// @Tags Applications
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} gin.H
// @Router /applications/{membershipNumber} [delete]
func (h *Handler) Reject(c *gin.Context) {
	err := h.service.Reject(c.Request.Context(), c.Param("membershipNumber"),
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application removed"})
}

// ReplaceNumber handles PUT /applications/:membershipNumber/number
// @Summary Replace the membership number on an application
// @Description Not implemented: references are keyed by the original number
// @Tags Applications
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Failure 501 {object} gin.H
// @Router /applications/{membershipNumber}/number [put]
func (h *Handler) ReplaceNumber(c *gin.Context) {
	err := h.service.ReplaceMembershipNumber(c.Request.Context(), c.Param("membershipNumber"), "")
	if errors.Is(err, ErrReplaceUnsupported) {
		c.JSON(http.StatusNotImplemented, gin.H{"message": err.Error()})
		return
	}
	respondError(c, err)
}

// GetReport handles GET /applications/report
// @Summary Applications overview report
// @Tags Applications
// @Produce json
// @Success 200 {object} Report
// @Router /applications/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
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
