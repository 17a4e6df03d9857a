package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

// EnrollmentRepository reads section membership. The scan flow consumes it
// as a pure lookup; nothing in this service mutates enrollment.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// IsEnrolled reports whether the student belongs to the section.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, sectionID, studentID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM section_students WHERE section_id = $1 AND student_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, sectionID, studentID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// ListBySection returns the section's roster.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	query := `SELECT section_id, student_id, joined_at FROM section_students WHERE section_id = $1 ORDER BY joined_at ASC`
	rows := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &rows, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollment: %w", err)
	}
	return rows, nil
}
