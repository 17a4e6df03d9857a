package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/models"
	"github.com/scanpoint/attendance-api/pkg/config"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type scanStudentResolver interface {
	FindStudentProfileByUser(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type scanSessionReader interface {
	FindOpenDetailByToken(ctx context.Context, token string) (*models.AttendanceSessionDetail, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, sectionID, studentID string) (bool, error)
}

type scanRecordWriter interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error)
}

// ScanService validates QR scans and records attendance. The student
// identity is always resolved from the authenticated caller; a client
// cannot mark attendance on another student's behalf.
type ScanService struct {
	students   scanStudentResolver
	sessions   scanSessionReader
	enrollment enrollmentChecker
	records    scanRecordWriter
	cache      *CacheService
	metrics    *MetricsService
	policy     config.AttendanceConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScanService constructs the scan service.
func NewScanService(students scanStudentResolver, sessions scanSessionReader, enrollment enrollmentChecker, records scanRecordWriter, cache *CacheService, metrics *MetricsService, policy config.AttendanceConfig, validate *validator.Validate, logger *zap.Logger) *ScanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.LateThreshold <= 0 {
		policy.LateThreshold = 15 * time.Minute
	}
	return &ScanService{
		students:   students,
		sessions:   sessions,
		enrollment: enrollment,
		records:    records,
		cache:      cache,
		metrics:    metrics,
		policy:     policy,
		validator:  validate,
		logger:     logger,
	}
}

// ScanRequest carries the QR token presented by the student.
type ScanRequest struct {
	QRToken string `json:"qr_token" validate:"required"`
}

// ScanResult describes the outcome of a successful scan.
type ScanResult struct {
	AlreadyRecorded bool                     `json:"already_recorded"`
	Status          models.AttendanceStatus  `json:"attendance_status,omitempty"`
	Record          *models.AttendanceRecord `json:"record,omitempty"`
}

// Scan validates a presented token and records attendance. The checks run
// in a fixed order and short-circuit on the first failure; the duplicate
// check happens after all authorization checks, so an unauthorized caller
// never learns whether a record exists.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest, actor *models.JWTClaims) (*ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	profile, err := s.students.FindStudentProfileByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordScanMetric("rejected")
			return nil, appErrors.Clone(appErrors.ErrForbidden, "user is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student profile")
	}

	session, err := s.sessions.FindOpenDetailByToken(ctx, req.QRToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A closed session's token is indistinguishable from a
			// never-issued one.
			s.recordScanMetric("rejected")
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid or expired QR token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session")
	}

	now := time.Now().UTC()
	if session.QRExpiresAt != nil && now.After(*session.QRExpiresAt) {
		s.recordScanMetric("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "QR code expired")
	}

	enrolled, err := s.enrollment.IsEnrolled(ctx, session.SectionID, profile.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		s.recordScanMetric("rejected")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student not enrolled in this section")
	}

	record := &models.AttendanceRecord{
		SessionID: session.ID,
		StudentID: profile.ID,
		Status:    AttendanceStatusFor(session.StartedAt, now, s.policy.LateThreshold),
		Timestamp: now,
	}

	created, err := s.records.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance record")
	}
	if !created {
		s.recordScanMetric("duplicate")
		return &ScanResult{AlreadyRecorded: true}, nil
	}

	s.recordScanMetric("created")
	_ = s.cache.Invalidate(ctx, SessionRecordsCacheKey(session.ID))
	s.logger.Info("attendance recorded",
		zap.String("session_id", session.ID),
		zap.String("student_id", profile.ID),
		zap.String("status", string(record.Status)))

	return &ScanResult{Status: record.Status, Record: record}, nil
}

func (s *ScanService) recordScanMetric(result string) {
	if s.metrics != nil {
		s.metrics.RecordScan(result)
	}
}

// AttendanceStatusFor derives the scan status from elapsed time since the
// session started. Exactly at the threshold still counts as present.
func AttendanceStatusFor(startedAt, scannedAt time.Time, lateThreshold time.Duration) models.AttendanceStatus {
	if scannedAt.Sub(startedAt) <= lateThreshold {
		return models.AttendanceStatusPresent
	}
	return models.AttendanceStatusLate
}
