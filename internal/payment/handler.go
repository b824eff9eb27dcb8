package payment

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

// StartRenewal handles POST /members/:membershipNumber/payment
// @Summary Start a membership renewal payment
// @Tags Payments
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {object} StartRenewalResponse
// @Failure 404 {object} gin.H
// @Router /members/{membershipNumber}/payment [post]
func (h *Handler) StartRenewal(c *gin.Context) {
	resp, err := h.service.StartRenewal(c.Request.Context(), c.Param("membershipNumber"), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment handles POST /members/:membershipNumber/payment/verify
// @Summary Verify a renewal payment and extend the membership
// @Tags Payments
// @Accept json
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Param request body VerifyPaymentRequest true "Gateway callback"
// @Success 200 {object} RenewalResult
// @Failure 422 {object} gin.H
// @Router /members/{membershipNumber}/payment/verify [post]
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.VerifyAndApply(c.Request.Context(), c.Param("membershipNumber"), req, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// History handles GET /members/:membershipNumber/payment
// @Summary List a member's renewal payments
// @Tags Payments
// @Produce json
// @Param membershipNumber path string true "Membership number"
// @Success 200 {array} Payment
// @Router /members/{membershipNumber}/payment [get]
func (h *Handler) History(c *gin.Context) {
	payments, err := h.service.History(c.Request.Context(), c.Param("membershipNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
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
