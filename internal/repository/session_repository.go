package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/scanpoint/attendance-api/internal/models"
)

// ErrOpenSessionExists is returned when inserting a session for a schedule
// that already has an open one. The partial unique index on
// attendance_sessions (schedule_id) WHERE closed_at IS NULL makes the
// check-then-insert race impossible: of two concurrent opens exactly one
// insert succeeds.
var ErrOpenSessionExists = errors.New("an open session already exists for this schedule")

const sessionDetailColumns = `s.id, s.schedule_id, s.date, s.started_at, s.closed_at, s.qr_token, s.qr_expires_at,
sec.id AS section_id, sec.name AS section_name, c.code AS course_code, c.name AS course_name, sec.instructor_id AS instructor_id`

const sessionDetailJoins = `FROM attendance_sessions s
JOIN class_schedules sch ON sch.id = s.schedule_id
JOIN sections sec ON sec.id = sch.section_id
JOIN courses c ON c.id = sch.course_id`

// SessionRepository persists attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new open session. A unique violation on the open-session
// index surfaces as ErrOpenSessionExists.
func (r *SessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	query := `INSERT INTO attendance_sessions (id, schedule_id, date, started_at, qr_token, qr_expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.ScheduleID, session.Date, session.StartedAt, session.QRToken, session.QRExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrOpenSessionExists
		}
		return fmt.Errorf("create attendance session: %w", err)
	}
	return nil
}

// FindOpenBySchedule returns the open session for a schedule, if any.
func (r *SessionRepository) FindOpenBySchedule(ctx context.Context, scheduleID string) (*models.AttendanceSession, error) {
	query := `SELECT id, schedule_id, date, started_at, closed_at, qr_token, qr_expires_at
FROM attendance_sessions WHERE schedule_id = $1 AND closed_at IS NULL`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, scheduleID); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindDetailByID loads a session joined with its schedule, section and
// course. InstructorID allows callers to evaluate visibility.
func (r *SessionRepository) FindDetailByID(ctx context.Context, id string) (*models.AttendanceSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, sessionDetailColumns, sessionDetailJoins)
	var detail models.AttendanceSessionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindOpenDetailByToken resolves a QR token to its open session. Tokens of
// closed sessions do not match, which makes them indistinguishable from
// never-issued tokens.
func (r *SessionRepository) FindOpenDetailByToken(ctx context.Context, token string) (*models.AttendanceSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.qr_token = $1 AND s.closed_at IS NULL`, sessionDetailColumns, sessionDetailJoins)
	var detail models.AttendanceSessionDetail
	if err := r.db.GetContext(ctx, &detail, query, token); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Close stamps closed_at on an open session. It reports false when the
// session was already closed (zero rows matched the closed_at IS NULL
// predicate).
func (r *SessionRepository) Close(ctx context.Context, id string, closedAt time.Time) (bool, error) {
	query := `UPDATE attendance_sessions SET closed_at = $2 WHERE id = $1 AND closed_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, closedAt)
	if err != nil {
		return false, fmt.Errorf("close attendance session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close attendance session: %w", err)
	}
	return affected > 0, nil
}

// List returns sessions matching the filter, newest first.
func (r *SessionRepository) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ScheduleID != "" {
		where = append(where, fmt.Sprintf("s.schedule_id = $%d", len(args)+1))
		args = append(args, filter.ScheduleID)
	}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("s.date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.OnlyOpen {
		where = append(where, "s.closed_at IS NULL")
	}
	if filter.InstructorID != "" {
		where = append(where, fmt.Sprintf("sec.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY s.started_at DESC LIMIT %d OFFSET %d`,
		sessionDetailColumns, sessionDetailJoins, whereClause, size, offset)
	var rows []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", sessionDetailJoins, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance sessions: %w", err)
	}
	return rows, total, nil
}
