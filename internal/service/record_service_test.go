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
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type mockRecordRepo struct {
	detail       *models.RecordDetail
	detailErr    error
	overridden   *models.AttendanceRecord
	lastStatus   models.AttendanceStatus
	lastActor    string
	history      []models.StudentHistoryRow
	summary      *models.StudentAttendanceSummary
	historyCalls int
}

func (m *mockRecordRepo) FindDetailByID(_ context.Context, _ string) (*models.RecordDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockRecordRepo) Override(_ context.Context, id string, status models.AttendanceStatus, overrideBy string, overrideAt time.Time) (*models.AttendanceRecord, error) {
	m.lastStatus = status
	m.lastActor = overrideBy
	record := m.detail.AttendanceRecord
	record.Status = status
	record.OverrideBy = &overrideBy
	record.OverrideAt = &overrideAt
	m.overridden = &record
	return &record, nil
}

func (m *mockRecordRepo) StudentHistory(_ context.Context, _ string, _, _ *time.Time) ([]models.StudentHistoryRow, error) {
	m.historyCalls++
	return m.history, nil
}

func (m *mockRecordRepo) StudentSummary(_ context.Context, _ string) (*models.StudentAttendanceSummary, error) {
	return m.summary, nil
}

type mockStudentReader struct {
	byUser    *models.StudentProfile
	byUserErr error
	byID      *models.StudentProfile
	byIDErr   error
}

func (m *mockStudentReader) FindStudentProfileByUser(_ context.Context, _ string) (*models.StudentProfile, error) {
	if m.byUserErr != nil {
		return nil, m.byUserErr
	}
	return m.byUser, nil
}

func (m *mockStudentReader) FindStudentProfileByID(_ context.Context, _ string) (*models.StudentProfile, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

type mockSectionReader struct {
	section *models.Section
	err     error
}

func (m *mockSectionReader) FindByID(_ context.Context, _ string) (*models.Section, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.section, nil
}

func recordDetailFixture() *models.RecordDetail {
	return &models.RecordDetail{
		AttendanceRecord: models.AttendanceRecord{
			ID:        "rec-1",
			SessionID: "sess-1",
			StudentID: "stud-1",
			Status:    models.AttendanceStatusLate,
			Timestamp: time.Date(2026, 3, 2, 8, 20, 0, 0, time.UTC),
		},
		SectionID:    "sect-1",
		InstructorID: "teacher-1",
	}
}

func newRecordService(repo *mockRecordRepo, students *mockStudentReader, sections *mockSectionReader) *RecordService {
	return NewRecordService(repo, students, sections, nil, nil, zap.NewNop())
}

func TestOverrideStampsActor(t *testing.T) {
	repo := &mockRecordRepo{detail: recordDetailFixture()}
	svc := newRecordService(repo, &mockStudentReader{}, &mockSectionReader{})

	record, err := svc.Override(context.Background(), "rec-1", OverrideRecordRequest{Status: "excused"}, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusExcused, record.Status)
	require.NotNil(t, record.OverrideBy)
	assert.Equal(t, "teacher-1", *record.OverrideBy)
	assert.NotNil(t, record.OverrideAt)
}

func TestOverrideNormalizesStatusCase(t *testing.T) {
	repo := &mockRecordRepo{detail: recordDetailFixture()}
	svc := newRecordService(repo, &mockStudentReader{}, &mockSectionReader{})

	_, err := svc.Override(context.Background(), "rec-1", OverrideRecordRequest{Status: "ABSENT"}, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, repo.lastStatus)
}

func TestOverrideRejectsUnknownStatus(t *testing.T) {
	repo := &mockRecordRepo{detail: recordDetailFixture()}
	svc := newRecordService(repo, &mockStudentReader{}, &mockSectionReader{})

	_, err := svc.Override(context.Background(), "rec-1", OverrideRecordRequest{Status: "attended"}, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.overridden)
}

func TestOverrideHiddenFromNonOwner(t *testing.T) {
	repo := &mockRecordRepo{detail: recordDetailFixture()}
	svc := newRecordService(repo, &mockStudentReader{}, &mockSectionReader{})

	_, err := svc.Override(context.Background(), "rec-1", OverrideRecordRequest{Status: "present"}, &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOverrideAdminBypassesOwnership(t *testing.T) {
	repo := &mockRecordRepo{detail: recordDetailFixture()}
	svc := newRecordService(repo, &mockStudentReader{}, &mockSectionReader{})

	_, err := svc.Override(context.Background(), "rec-1", OverrideRecordRequest{Status: "present"}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestHistoryForUserRequiresStudentProfile(t *testing.T) {
	repo := &mockRecordRepo{}
	svc := newRecordService(repo, &mockStudentReader{byUserErr: sql.ErrNoRows}, &mockSectionReader{})

	_, err := svc.HistoryForUser(context.Background(), &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, nil, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "user is not a student", appErr.Message)
}

func TestHistoryForUserReturnsReport(t *testing.T) {
	repo := &mockRecordRepo{
		history: []models.StudentHistoryRow{{SessionID: "sess-1", Status: models.AttendanceStatusPresent}},
		summary: &models.StudentAttendanceSummary{Present: 9, Late: 1, Total: 10, Percent: 100},
	}
	svc := newRecordService(repo, &mockStudentReader{byUser: &models.StudentProfile{ID: "stud-1", UserID: "user-1"}}, &mockSectionReader{})

	report, err := svc.HistoryForUser(context.Background(), &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, report.History, 1)
	assert.Equal(t, 10, report.Summary.Total)
}

func TestHistoryForStudentScopedToInstructor(t *testing.T) {
	repo := &mockRecordRepo{history: nil, summary: &models.StudentAttendanceSummary{}}
	students := &mockStudentReader{byID: &models.StudentProfile{ID: "stud-1", SectionID: "sect-1"}}
	sections := &mockSectionReader{section: &models.Section{ID: "sect-1", InstructorID: "teacher-1"}}
	svc := newRecordService(repo, students, sections)

	_, err := svc.HistoryForStudent(context.Background(), "stud-1", &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}, nil, nil)
	require.NoError(t, err)

	_, err = svc.HistoryForStudent(context.Background(), "stud-1", &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
