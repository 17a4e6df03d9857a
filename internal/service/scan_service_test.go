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
	"github.com/scanpoint/attendance-api/pkg/config"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type mockStudentResolver struct {
	profile *models.StudentProfile
	err     error
}

func (m *mockStudentResolver) FindStudentProfileByUser(_ context.Context, _ string) (*models.StudentProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

type mockSessionReader struct {
	session *models.AttendanceSessionDetail
	err     error
}

func (m *mockSessionReader) FindOpenDetailByToken(_ context.Context, _ string) (*models.AttendanceSessionDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockEnrollmentChecker struct {
	enrolled bool
	err      error
}

func (m *mockEnrollmentChecker) IsEnrolled(_ context.Context, _, _ string) (bool, error) {
	return m.enrolled, m.err
}

type mockRecordWriter struct {
	created  bool
	err      error
	inserted *models.AttendanceRecord
}

func (m *mockRecordWriter) Insert(_ context.Context, record *models.AttendanceRecord) (bool, error) {
	m.inserted = record
	if m.err != nil {
		return false, m.err
	}
	if m.created {
		record.ID = "rec-1"
	}
	return m.created, nil
}

func openSessionDetail(startedAt time.Time) *models.AttendanceSessionDetail {
	expires := startedAt.Add(30 * time.Minute)
	return &models.AttendanceSessionDetail{
		AttendanceSession: models.AttendanceSession{
			ID:          "sess-1",
			ScheduleID:  "sched-1",
			StartedAt:   startedAt,
			QRToken:     "token-1",
			QRExpiresAt: &expires,
		},
		SectionID:    "sect-1",
		InstructorID: "teacher-1",
	}
}

func newScanService(students scanStudentResolver, sessions scanSessionReader, enrollment enrollmentChecker, records scanRecordWriter) *ScanService {
	return NewScanService(students, sessions, enrollment, records, nil, nil, config.AttendanceConfig{LateThreshold: 15 * time.Minute}, nil, zap.NewNop())
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
}

func TestScanCreatesPresentRecord(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1", UserID: "user-1"}}
	sessions := &mockSessionReader{session: openSessionDetail(time.Now().UTC().Add(-5 * time.Minute))}
	records := &mockRecordWriter{created: true}
	svc := newScanService(students, sessions, &mockEnrollmentChecker{enrolled: true}, records)

	result, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.NoError(t, err)
	assert.False(t, result.AlreadyRecorded)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	require.NotNil(t, records.inserted)
	assert.Equal(t, "sess-1", records.inserted.SessionID)
	assert.Equal(t, "stud-1", records.inserted.StudentID)
}

func TestScanMarksLateAfterThreshold(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1", UserID: "user-1"}}
	sessions := &mockSessionReader{session: openSessionDetail(time.Now().UTC().Add(-20 * time.Minute))}
	records := &mockRecordWriter{created: true}
	svc := newScanService(students, sessions, &mockEnrollmentChecker{enrolled: true}, records)

	result, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
}

func TestScanDuplicateIsIdempotent(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1", UserID: "user-1"}}
	sessions := &mockSessionReader{session: openSessionDetail(time.Now().UTC())}
	records := &mockRecordWriter{created: false}
	svc := newScanService(students, sessions, &mockEnrollmentChecker{enrolled: true}, records)

	result, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.NoError(t, err)
	assert.True(t, result.AlreadyRecorded)
	assert.Nil(t, result.Record)
}

func TestScanRejectsNonStudent(t *testing.T) {
	students := &mockStudentResolver{err: sql.ErrNoRows}
	svc := newScanService(students, &mockSessionReader{}, &mockEnrollmentChecker{}, &mockRecordWriter{})

	_, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "user is not a student", appErr.Message)
}

func TestScanRejectsUnknownToken(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1"}}
	sessions := &mockSessionReader{err: sql.ErrNoRows}
	svc := newScanService(students, sessions, &mockEnrollmentChecker{}, &mockRecordWriter{})

	_, err := svc.Scan(context.Background(), ScanRequest{QRToken: "bogus"}, studentClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid or expired QR token", appErr.Message)
}

func TestScanRejectsExpiredToken(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1"}}
	detail := openSessionDetail(time.Now().UTC().Add(-2 * time.Hour))
	expired := time.Now().UTC().Add(-time.Hour)
	detail.QRExpiresAt = &expired
	svc := newScanService(students, &mockSessionReader{session: detail}, &mockEnrollmentChecker{}, &mockRecordWriter{})

	_, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.Error(t, err)
	assert.Equal(t, "QR code expired", appErrors.FromError(err).Message)
}

func TestScanRejectsUnenrolledStudent(t *testing.T) {
	students := &mockStudentResolver{profile: &models.StudentProfile{ID: "stud-1"}}
	sessions := &mockSessionReader{session: openSessionDetail(time.Now().UTC())}
	records := &mockRecordWriter{created: true}
	svc := newScanService(students, sessions, &mockEnrollmentChecker{enrolled: false}, records)

	_, err := svc.Scan(context.Background(), ScanRequest{QRToken: "token-1"}, studentClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "student not enrolled in this section", appErr.Message)
	assert.Nil(t, records.inserted)
}

func TestAttendanceStatusForBoundary(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	threshold := 15 * time.Minute

	assert.Equal(t, models.AttendanceStatusPresent, AttendanceStatusFor(startedAt, startedAt, threshold))
	assert.Equal(t, models.AttendanceStatusPresent, AttendanceStatusFor(startedAt, startedAt.Add(threshold), threshold))
	assert.Equal(t, models.AttendanceStatusLate, AttendanceStatusFor(startedAt, startedAt.Add(threshold+time.Second), threshold))
}
