package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scanpoint/attendance-api/internal/service"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
	"github.com/scanpoint/attendance-api/pkg/response"
)

// RecordHandler manages attendance record overrides and student history.
type RecordHandler struct {
	service *service.RecordService
}

// NewRecordHandler constructs handler.
func NewRecordHandler(svc *service.RecordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// Override godoc
// @Summary Override an attendance record's status
// @Tags Attendance Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.OverrideRecordRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/records/{id} [patch]
func (h *RecordHandler) Override(c *gin.Context) {
	var req service.OverrideRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Override(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// MyHistory godoc
// @Summary Get the authenticated student's attendance history
// @Tags Attendance Records
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/me/attendance [get]
func (h *RecordHandler) MyHistory(c *gin.Context) {
	from, to, err := historyRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.HistoryForUser(c.Request.Context(), claimsFromContext(c), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentHistory godoc
// @Summary Get a student's attendance history
// @Tags Attendance Records
// @Produce json
// @Param id path string true "Student profile ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *RecordHandler) StudentHistory(c *gin.Context) {
	from, to, err := historyRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.HistoryForStudent(c.Request.Context(), c.Param("id"), claimsFromContext(c), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

func historyRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		to = &t
	}
	return from, to, nil
}
