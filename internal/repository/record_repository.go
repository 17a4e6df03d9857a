package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

// RecordRepository persists attendance records.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert writes a record for (session, student). It reports false without
// error when a record already exists: the unique constraint on
// (session_id, student_id) turns concurrent duplicate scans into exactly
// one row, and ON CONFLICT DO NOTHING keeps the duplicate path non-fatal.
func (r *RecordRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO attendance_records (id, session_id, student_id, status, timestamp)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, student_id) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		record.ID, record.SessionID, record.StudentID, record.Status, record.Timestamp).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	return true, nil
}

// ListBySession returns a session's records with student identity, ordered
// by student name.
func (r *RecordRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SessionRecordRow, error) {
	query := `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.timestamp, ar.override_by, ar.override_at,
sp.student_number, u.full_name AS student_name
FROM attendance_records ar
JOIN student_profiles sp ON sp.id = ar.student_id
JOIN users u ON u.id = sp.user_id
WHERE ar.session_id = $1
ORDER BY u.full_name ASC`
	rows := []models.SessionRecordRow{}
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	return rows, nil
}

// FindDetailByID loads a record with the owning section's instructor.
func (r *RecordRepository) FindDetailByID(ctx context.Context, id string) (*models.RecordDetail, error) {
	query := `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.timestamp, ar.override_by, ar.override_at,
sec.id AS section_id, sec.instructor_id AS instructor_id
FROM attendance_records ar
JOIN attendance_sessions s ON s.id = ar.session_id
JOIN class_schedules sch ON sch.id = s.schedule_id
JOIN sections sec ON sec.id = sch.section_id
WHERE ar.id = $1`
	var detail models.RecordDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Override updates a record's status, stamping who changed it and when.
func (r *RecordRepository) Override(ctx context.Context, id string, status models.AttendanceStatus, overrideBy string, overrideAt time.Time) (*models.AttendanceRecord, error) {
	query := `UPDATE attendance_records
SET status = $2, override_by = $3, override_at = $4
WHERE id = $1
RETURNING id, session_id, student_id, status, timestamp, override_by, override_at`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id, status, overrideBy, overrideAt); err != nil {
		return nil, err
	}
	return &record, nil
}

// StudentHistory lists a student's records, newest first, optionally bounded
// by session date.
func (r *RecordRepository) StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentHistoryRow, error) {
	where := []string{"ar.student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		where = append(where, fmt.Sprintf("s.date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("s.date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT ar.session_id, s.date, c.code AS course_code, c.name AS course_name, ar.status, ar.timestamp
FROM attendance_records ar
JOIN attendance_sessions s ON s.id = ar.session_id
JOIN class_schedules sch ON sch.id = s.schedule_id
JOIN courses c ON c.id = sch.course_id
WHERE %s
ORDER BY s.date DESC, ar.timestamp DESC`, strings.Join(where, " AND "))
	rows := []models.StudentHistoryRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance history: %w", err)
	}
	return rows, nil
}

// StudentSummary aggregates a student's records by status.
func (r *RecordRepository) StudentSummary(ctx context.Context, studentID string) (*models.StudentAttendanceSummary, error) {
	query := `SELECT
COUNT(*) FILTER (WHERE status = 'present') AS present,
COUNT(*) FILTER (WHERE status = 'late') AS late,
COUNT(*) FILTER (WHERE status = 'absent') AS absent,
COUNT(*) FILTER (WHERE status = 'excused') AS excused,
COUNT(*) AS total
FROM attendance_records WHERE student_id = $1`
	var summary struct {
		Present int `db:"present"`
		Late    int `db:"late"`
		Absent  int `db:"absent"`
		Excused int `db:"excused"`
		Total   int `db:"total"`
	}
	if err := r.db.GetContext(ctx, &summary, query, studentID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	result := &models.StudentAttendanceSummary{
		Present: summary.Present,
		Late:    summary.Late,
		Absent:  summary.Absent,
		Excused: summary.Excused,
		Total:   summary.Total,
	}
	if result.Total > 0 {
		attended := result.Present + result.Late + result.Excused
		result.Percent = float64(attended) / float64(result.Total) * 100
	}
	return result, nil
}
