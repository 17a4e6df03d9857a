package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/models"
	"github.com/scanpoint/attendance-api/internal/repository"
	"github.com/scanpoint/attendance-api/pkg/config"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
	"github.com/scanpoint/attendance-api/pkg/export"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindOpenBySchedule(ctx context.Context, scheduleID string) (*models.AttendanceSession, error)
	FindDetailByID(ctx context.Context, id string) (*models.AttendanceSessionDetail, error)
	Close(ctx context.Context, id string, closedAt time.Time) (bool, error)
	List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error)
}

type sessionScheduleReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
}

type sessionRecordLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionRecordRow, error)
}

// SessionService owns the attendance session lifecycle.
type SessionService struct {
	repo      sessionRepository
	schedules sessionScheduleReader
	records   sessionRecordLister
	cache     *CacheService
	metrics   *MetricsService
	policy    config.AttendanceConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, schedules sessionScheduleReader, records sessionRecordLister, cache *CacheService, metrics *MetricsService, policy config.AttendanceConfig, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.QRTokenTTL <= 0 {
		policy.QRTokenTTL = 30 * time.Minute
	}
	return &SessionService{
		repo:      repo,
		schedules: schedules,
		records:   records,
		cache:     cache,
		metrics:   metrics,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// OpenSessionRequest is the payload for opening a session.
type OpenSessionRequest struct {
	ScheduleID string `json:"schedule_id" validate:"required"`
}

// SessionListRequest filters session listings.
type SessionListRequest struct {
	ScheduleID string     `json:"schedule_id"`
	Date       *time.Time `json:"date"`
	OnlyOpen   bool       `json:"only_open"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// Open creates a new open session for a schedule. Only the owning
// instructor or an admin may open one; a schedule can have at most one
// open session at a time, and a conflict carries the existing session's id
// so the caller can resume it.
func (s *SessionService) Open(ctx context.Context, req OpenSessionRequest, actor *models.JWTClaims) (*models.AttendanceSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	schedule, err := s.schedules.FindDetailByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if actor.Role != models.RoleAdmin && schedule.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized for this schedule")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.policy.QRTokenTTL)
	session := &models.AttendanceSession{
		ScheduleID:  schedule.ID,
		Date:        now.Truncate(24 * time.Hour),
		StartedAt:   now,
		QRToken:     uuid.NewString(),
		QRExpiresAt: &expiresAt,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			conflict := appErrors.Clone(appErrors.ErrConflict, "session already open")
			if existing, findErr := s.repo.FindOpenBySchedule(ctx, schedule.ID); findErr == nil {
				conflict = appErrors.WithDetails(conflict, map[string]interface{}{"session_id": existing.ID})
			}
			return nil, conflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	if s.metrics != nil {
		s.metrics.RecordSessionOpened()
	}
	s.logger.Info("attendance session opened",
		zap.String("session_id", session.ID),
		zap.String("schedule_id", schedule.ID),
		zap.String("opened_by", actor.UserID))

	detail, err := s.repo.FindDetailByID(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return detail, nil
}

// Close terminates an open session. Visibility is scoped: a teacher who
// does not own the session's section gets NotFound, never Forbidden, so a
// non-owner cannot distinguish "doesn't exist" from "not yours".
func (s *SessionService) Close(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.AttendanceSessionDetail, error) {
	detail, err := s.visibleSession(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}

	if detail.ClosedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already closed")
	}

	closedAt := time.Now().UTC()
	closed, err := s.repo.Close(ctx, sessionID, closedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}
	if !closed {
		// Lost a race against a concurrent close.
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already closed")
	}

	if s.metrics != nil {
		s.metrics.RecordSessionClosed()
	}
	s.logger.Info("attendance session closed",
		zap.String("session_id", sessionID),
		zap.String("closed_by", actor.UserID))

	detail.ClosedAt = &closedAt
	return detail, nil
}

// Get returns one session within the actor's visibility scope.
func (s *SessionService) Get(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.AttendanceSessionDetail, error) {
	return s.visibleSession(ctx, sessionID, actor)
}

// List returns sessions within the actor's visibility scope.
func (s *SessionService) List(ctx context.Context, req SessionListRequest, actor *models.JWTClaims) ([]models.AttendanceSessionDetail, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.AttendanceSessionFilter{
		ScheduleID: req.ScheduleID,
		Date:       req.Date,
		OnlyOpen:   req.OnlyOpen,
		Page:       page,
		PageSize:   size,
	}
	if actor.Role != models.RoleAdmin {
		filter.InstructorID = actor.UserID
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Records returns the session's attendance records with student identity.
func (s *SessionService) Records(ctx context.Context, sessionID string, actor *models.JWTClaims) ([]models.SessionRecordRow, error) {
	if _, err := s.visibleSession(ctx, sessionID, actor); err != nil {
		return nil, err
	}

	key := SessionRecordsCacheKey(sessionID)
	var cached []models.SessionRecordRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session records")
	}

	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// ExportRecords renders the session report as CSV or PDF.
func (s *SessionService) ExportRecords(ctx context.Context, sessionID, format string, actor *models.JWTClaims) ([]byte, string, string, error) {
	detail, err := s.visibleSession(ctx, sessionID, actor)
	if err != nil {
		return nil, "", "", err
	}

	rows, err := s.Records(ctx, sessionID, actor)
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Student Number", "Student Name", "Status", "Scanned At"},
		Rows:    make([]map[string]string, len(rows)),
	}
	for i, row := range rows {
		dataset.Rows[i] = map[string]string{
			"Student Number": row.StudentNumber,
			"Student Name":   row.StudentName,
			"Status":         string(row.Status),
			"Scanned At":     row.Timestamp.Format(time.RFC3339),
		}
	}

	title := fmt.Sprintf("Attendance %s %s %s", detail.CourseCode, detail.SectionName, detail.Date.Format("2006-01-02"))
	base := fmt.Sprintf("attendance-%s-%s", detail.CourseCode, detail.Date.Format("2006-01-02"))

	switch format {
	case "csv", "":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, base + ".csv", "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, base + ".pdf", "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *SessionService) visibleSession(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.AttendanceSessionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if actor.Role != models.RoleAdmin && detail.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return detail, nil
}

// SessionRecordsCacheKey derives the cache key for a session's record listing.
func SessionRecordsCacheKey(sessionID string) string {
	return "session_records:" + sessionID
}
