package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

// UserRepository reads users and student profiles. Account management lives
// in the identity service; this API only resolves authenticated callers.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user row.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, full_name, role, active, created_at, updated_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindStudentProfileByUser resolves a user to their student profile.
func (r *UserRepository) FindStudentProfileByUser(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := `SELECT id, user_id, student_number, program_id, section_id, created_at
FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindStudentProfileByID loads a student profile row.
func (r *UserRepository) FindStudentProfileByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := `SELECT id, user_id, student_number, program_id, section_id, created_at
FROM student_profiles WHERE id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, fmt.Errorf("find student profile: %w", err)
	}
	return &profile, nil
}
