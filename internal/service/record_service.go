package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/models"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type recordRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.RecordDetail, error)
	Override(ctx context.Context, id string, status models.AttendanceStatus, overrideBy string, overrideAt time.Time) (*models.AttendanceRecord, error)
	StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentHistoryRow, error)
	StudentSummary(ctx context.Context, studentID string) (*models.StudentAttendanceSummary, error)
}

type recordStudentReader interface {
	FindStudentProfileByUser(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindStudentProfileByID(ctx context.Context, id string) (*models.StudentProfile, error)
}

type recordSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// RecordService handles manual corrections and history queries over
// attendance records.
type RecordService struct {
	repo      recordRepository
	students  recordStudentReader
	sections  recordSectionReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService constructs the record service.
func NewRecordService(repo recordRepository, students recordStudentReader, sections recordSectionReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RecordService{repo: repo, students: students, sections: sections, cache: cache, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// OverrideRecordRequest is the payload for a manual status correction.
type OverrideRecordRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// StudentAttendanceReport bundles a student's history with a summary.
type StudentAttendanceReport struct {
	History []models.StudentHistoryRow       `json:"history"`
	Summary *models.StudentAttendanceSummary `json:"summary"`
}

// Override corrects a record's status and stamps who changed it. Lookup is
// visibility-scoped like sessions: records outside the teacher's sections
// surface as NotFound. Status transitions are unrestricted; only enum
// membership is validated.
func (s *RecordService) Override(ctx context.Context, recordID string, req OverrideRecordRequest, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	detail, err := s.repo.FindDetailByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if actor.Role != models.RoleAdmin && detail.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}

	status := models.AttendanceStatus(strings.ToLower(req.Status))
	record, err := s.repo.Override(ctx, recordID, status, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override record")
	}

	_ = s.cache.Invalidate(ctx, SessionRecordsCacheKey(record.SessionID))
	s.logger.Info("attendance record overridden",
		zap.String("record_id", record.ID),
		zap.String("status", string(status)),
		zap.String("override_by", actor.UserID))
	return record, nil
}

// HistoryForUser returns the calling student's own attendance report.
func (s *RecordService) HistoryForUser(ctx context.Context, actor *models.JWTClaims, from, to *time.Time) (*StudentAttendanceReport, error) {
	profile, err := s.students.FindStudentProfileByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "user is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student profile")
	}
	return s.report(ctx, profile.ID, from, to)
}

// HistoryForStudent returns a student's attendance report for staff. A
// teacher may only query students of sections they instruct.
func (s *RecordService) HistoryForStudent(ctx context.Context, studentID string, actor *models.JWTClaims, from, to *time.Time) (*StudentAttendanceReport, error) {
	profile, err := s.students.FindStudentProfileByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if actor.Role != models.RoleAdmin {
		section, err := s.sections.FindByID(ctx, profile.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.InstructorID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
	}

	return s.report(ctx, profile.ID, from, to)
}

func (s *RecordService) report(ctx context.Context, studentID string, from, to *time.Time) (*StudentAttendanceReport, error) {
	history, err := s.repo.StudentHistory(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance history")
	}
	summary, err := s.repo.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return &StudentAttendanceReport{History: history, Summary: summary}, nil
}
