package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/models"
	"github.com/scanpoint/attendance-api/internal/repository"
	"github.com/scanpoint/attendance-api/pkg/config"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type mockSessionRepo struct {
	createErr   error
	open        *models.AttendanceSession
	detail      *models.AttendanceSessionDetail
	detailErr   error
	closed      bool
	closeErr    error
	closeCalled bool
	list        []models.AttendanceSessionDetail
	listTotal   int
	lastFilter  models.AttendanceSessionFilter
}

func (m *mockSessionRepo) Create(_ context.Context, session *models.AttendanceSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	session.ID = "sess-1"
	return nil
}

func (m *mockSessionRepo) FindOpenBySchedule(_ context.Context, _ string) (*models.AttendanceSession, error) {
	if m.open == nil {
		return nil, sql.ErrNoRows
	}
	return m.open, nil
}

func (m *mockSessionRepo) FindDetailByID(_ context.Context, _ string) (*models.AttendanceSessionDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockSessionRepo) Close(_ context.Context, _ string, _ time.Time) (bool, error) {
	m.closeCalled = true
	if m.closeErr != nil {
		return false, m.closeErr
	}
	return m.closed, nil
}

func (m *mockSessionRepo) List(_ context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	m.lastFilter = filter
	return m.list, m.listTotal, nil
}

type mockScheduleReader struct {
	detail *models.ClassScheduleDetail
	err    error
}

func (m *mockScheduleReader) FindDetailByID(_ context.Context, _ string) (*models.ClassScheduleDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

type mockRecordLister struct {
	rows []models.SessionRecordRow
	err  error
}

func (m *mockRecordLister) ListBySession(_ context.Context, _ string) ([]models.SessionRecordRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func teacherSchedule() *models.ClassScheduleDetail {
	return &models.ClassScheduleDetail{
		ClassSchedule: models.ClassSchedule{ID: "sched-1", SectionID: "sect-1"},
		CourseCode:    "CS101",
		SectionName:   "CS 1A",
		InstructorID:  "teacher-1",
	}
}

func sessionDetailFixture(closed bool) *models.AttendanceSessionDetail {
	detail := &models.AttendanceSessionDetail{
		AttendanceSession: models.AttendanceSession{
			ID:         "sess-1",
			ScheduleID: "sched-1",
			Date:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			StartedAt:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		},
		SectionID:    "sect-1",
		SectionName:  "CS 1A",
		CourseCode:   "CS101",
		InstructorID: "teacher-1",
	}
	if closed {
		closedAt := detail.StartedAt.Add(time.Hour)
		detail.ClosedAt = &closedAt
	}
	return detail
}

func newSessionService(repo *mockSessionRepo, schedules *mockScheduleReader, records *mockRecordLister) *SessionService {
	return NewSessionService(repo, schedules, records, nil, nil, config.AttendanceConfig{QRTokenTTL: 30 * time.Minute}, nil, zap.NewNop())
}

func teacherActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
}

func TestOpenSessionIssuesToken(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false)}
	svc := newSessionService(repo, &mockScheduleReader{detail: teacherSchedule()}, &mockRecordLister{})

	detail, err := svc.Open(context.Background(), OpenSessionRequest{ScheduleID: "sched-1"}, teacherActor())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", detail.ID)
}

func TestOpenSessionConflictCarriesExistingID(t *testing.T) {
	repo := &mockSessionRepo{
		createErr: repository.ErrOpenSessionExists,
		open:      &models.AttendanceSession{ID: "sess-existing", ScheduleID: "sched-1"},
	}
	svc := newSessionService(repo, &mockScheduleReader{detail: teacherSchedule()}, &mockRecordLister{})

	_, err := svc.Open(context.Background(), OpenSessionRequest{ScheduleID: "sched-1"}, teacherActor())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NotNil(t, appErr.Details)
	assert.Equal(t, "sess-existing", appErr.Details["session_id"])
}

func TestOpenSessionForbiddenForOtherTeacher(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &mockScheduleReader{detail: teacherSchedule()}, &mockRecordLister{})

	_, err := svc.Open(context.Background(), OpenSessionRequest{ScheduleID: "sched-1"}, &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestOpenSessionAdminBypassesOwnership(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false)}
	svc := newSessionService(repo, &mockScheduleReader{detail: teacherSchedule()}, &mockRecordLister{})

	_, err := svc.Open(context.Background(), OpenSessionRequest{ScheduleID: "sched-1"}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestCloseSessionAlreadyClosed(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(true)}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	_, err := svc.Close(context.Background(), "sess-1", teacherActor())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "session already closed", appErr.Message)
	assert.False(t, repo.closeCalled)
}

func TestCloseSessionLosesRace(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false), closed: false}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	_, err := svc.Close(context.Background(), "sess-1", teacherActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.closeCalled)
}

func TestCloseSessionSetsClosedAt(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false), closed: true}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	detail, err := svc.Close(context.Background(), "sess-1", teacherActor())
	require.NoError(t, err)
	assert.NotNil(t, detail.ClosedAt)
}

func TestSessionHiddenFromNonOwner(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false)}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	_, err := svc.Get(context.Background(), "sess-1", &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListScopesTeacherSessions(t *testing.T) {
	repo := &mockSessionRepo{list: []models.AttendanceSessionDetail{*sessionDetailFixture(false)}, listTotal: 1}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	rows, pagination, err := svc.List(context.Background(), SessionListRequest{}, teacherActor())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "teacher-1", repo.lastFilter.InstructorID)

	_, _, err = svc.List(context.Background(), SessionListRequest{}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.InstructorID)
}

func TestExportRecordsCSV(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false)}
	records := &mockRecordLister{rows: []models.SessionRecordRow{
		{
			AttendanceRecord: models.AttendanceRecord{Status: models.AttendanceStatusPresent, Timestamp: time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)},
			StudentNumber:    "2026-0001",
			StudentName:      "Alice Reyes",
		},
	}}
	svc := newSessionService(repo, &mockScheduleReader{}, records)

	payload, filename, contentType, err := svc.ExportRecords(context.Background(), "sess-1", "csv", teacherActor())
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "attendance-CS101-2026-03-02.csv", filename)
	assert.Contains(t, string(payload), "Alice Reyes")
	assert.Contains(t, string(payload), "present")
}

func TestExportRecordsUnknownFormat(t *testing.T) {
	repo := &mockSessionRepo{detail: sessionDetailFixture(false)}
	svc := newSessionService(repo, &mockScheduleReader{}, &mockRecordLister{})

	_, _, _, err := svc.ExportRecords(context.Background(), "sess-1", "xlsx", teacherActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
