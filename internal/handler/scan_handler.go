package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scanpoint/attendance-api/internal/service"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
	"github.com/scanpoint/attendance-api/pkg/response"
)

// ScanHandler accepts QR scan submissions from students.
type ScanHandler struct {
	service *service.ScanService
}

// NewScanHandler constructs handler.
func NewScanHandler(svc *service.ScanService) *ScanHandler {
	return &ScanHandler{service: svc}
}

// Scan godoc
// @Summary Record attendance from a scanned QR token
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Already recorded"
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Scan(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.AlreadyRecorded {
		response.JSON(c, http.StatusOK, gin.H{"message": "Attendance already recorded"}, nil)
		return
	}
	response.Created(c, result)
}
