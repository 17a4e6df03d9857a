package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/middleware"
	"github.com/scanpoint/attendance-api/internal/models"
	"github.com/scanpoint/attendance-api/internal/service"
	"github.com/scanpoint/attendance-api/pkg/config"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

type fakeStudentResolver struct {
	profile *models.StudentProfile
}

func (f *fakeStudentResolver) FindStudentProfileByUser(context.Context, string) (*models.StudentProfile, error) {
	return f.profile, nil
}

type fakeSessionReader struct {
	session *models.AttendanceSessionDetail
}

func (f *fakeSessionReader) FindOpenDetailByToken(context.Context, string) (*models.AttendanceSessionDetail, error) {
	return f.session, nil
}

type fakeEnrollmentChecker struct{}

func (f *fakeEnrollmentChecker) IsEnrolled(context.Context, string, string) (bool, error) {
	return true, nil
}

type fakeRecordWriter struct {
	created bool
}

func (f *fakeRecordWriter) Insert(_ context.Context, record *models.AttendanceRecord) (bool, error) {
	if f.created {
		record.ID = "rec-1"
	}
	return f.created, nil
}

func newScanHandlerFixture(created bool) *ScanHandler {
	now := time.Now().UTC()
	expires := now.Add(30 * time.Minute)
	session := &models.AttendanceSessionDetail{
		AttendanceSession: models.AttendanceSession{
			ID:          "sess-1",
			StartedAt:   now.Add(-5 * time.Minute),
			QRToken:     "tok",
			QRExpiresAt: &expires,
		},
		SectionID: "sect-1",
	}
	svc := service.NewScanService(
		&fakeStudentResolver{profile: &models.StudentProfile{ID: "stud-1", UserID: "user-1"}},
		&fakeSessionReader{session: session},
		&fakeEnrollmentChecker{},
		&fakeRecordWriter{created: created},
		nil, nil,
		config.AttendanceConfig{LateThreshold: 15 * time.Minute},
		nil, zap.NewNop(),
	)
	return NewScanHandler(svc)
}

func performScan(t *testing.T, handler *ScanHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/scan", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Scan(c)
	return rec
}

func TestScanHandlerCreated(t *testing.T) {
	rec := performScan(t, newScanHandlerFixture(true), `{"qr_token":"tok"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "present", envelope.Data["attendance_status"])
}

func TestScanHandlerAlreadyRecorded(t *testing.T) {
	rec := performScan(t, newScanHandlerFixture(false), `{"qr_token":"tok"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Attendance already recorded", envelope.Data["message"])
}

func TestScanHandlerInvalidPayload(t *testing.T) {
	rec := performScan(t, newScanHandlerFixture(true), `{`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanHandlerMissingToken(t *testing.T) {
	rec := performScan(t, newScanHandlerFixture(true), `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Error)
}
