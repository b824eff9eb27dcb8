package reports

import (
	"errors"
	"fmt"
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

// Attendance handles GET /events/report/attendance
// @Summary Participation histogram for active members over the past year
// @Tags Reports
// @Produce json
// @Success 200 {object} AttendanceReport
// @Router /events/report/attendance [get]
func (h *Handler) Attendance(c *gin.Context) {
	report, err := h.service.Attendance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// EventOverview handles GET /events/report
// @Summary Event delivery statistics split by series type
// @Tags Reports
// @Produce json
// @Success 200 {object} EventReport
// @Router /events/report [get]
func (h *Handler) EventOverview(c *gin.Context) {
	report, err := h.service.EventOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// MemberExport handles POST /members/export
// @Summary Export member details, optionally merged with an event's allocations
// @Tags Reports
// @Accept json
// @Produce text/csv
// @Param request body MemberExportRequest true "Export selection"
// @Success 200 {string} string "file"
// @Router /members/export [post]
func (h *Handler) MemberExport(c *gin.Context) {
	var req MemberExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, filename, contentType, err := h.service.MemberExport(c.Request.Context(), req,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// AwardCandidates handles GET /members/awards
// @Summary Members meeting the good service award criteria
// @Description Pass ?format=csv|xlsx|pdf to download instead of JSON
// @Tags Reports
// @Produce json
// @Success 200 {array} member.AwardCandidate
// @Router /members/awards [get]
func (h *Handler) AwardCandidates(c *gin.Context) {
	format := c.Query("format")
	if format == "" {
		candidates, err := h.service.AwardCandidates(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, candidates)
		return
	}

	data, filename, contentType, err := h.service.AwardExport(c.Request.Context(), format,
		middleware.CallerMembershipNumber(c), middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
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
