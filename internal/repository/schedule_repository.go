package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

const scheduleDetailQuery = `SELECT sch.id, sch.course_id, sch.section_id, sch.day_of_week, sch.start_time, sch.end_time, sch.room,
c.code AS course_code, c.name AS course_name, sec.name AS section_name, sec.instructor_id AS section_instructor_id
FROM class_schedules sch
JOIN courses c ON c.id = sch.course_id
JOIN sections sec ON sec.id = sch.section_id`

// ScheduleRepository persists class schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindDetailByID loads a schedule with course, section and owning
// instructor, the input to session opening.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	query := scheduleDetailQuery + ` WHERE sch.id = $1`
	var detail models.ClassScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns schedules, optionally restricted to one instructor's
// sections (teacher visibility scoping).
func (r *ScheduleRepository) List(ctx context.Context, sectionID, instructorID string) ([]models.ClassScheduleDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if sectionID != "" {
		where = append(where, fmt.Sprintf("sch.section_id = $%d", len(args)+1))
		args = append(args, sectionID)
	}
	if instructorID != "" {
		where = append(where, fmt.Sprintf("sec.instructor_id = $%d", len(args)+1))
		args = append(args, instructorID)
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY sch.day_of_week, sch.start_time", scheduleDetailQuery, strings.Join(where, " AND "))
	rows := []models.ClassScheduleDetail{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list class schedules: %w", err)
	}
	return rows, nil
}

// Create inserts a schedule row.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	query := `INSERT INTO class_schedules (id, course_id, section_id, day_of_week, start_time, end_time, room)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.CourseID, schedule.SectionID, schedule.DayOfWeek,
		schedule.StartTime, schedule.EndTime, schedule.Room); err != nil {
		return fmt.Errorf("create class schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule; sessions cascade at the database level.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete class schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete class schedule: %w", err)
	}
	return affected > 0, nil
}
