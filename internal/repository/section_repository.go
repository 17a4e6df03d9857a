package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

// SectionRepository persists sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID loads a section row.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := `SELECT id, program_id, instructor_id, year_level, name FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// List returns sections, optionally restricted to one instructor.
func (r *SectionRepository) List(ctx context.Context, instructorID string) ([]models.Section, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if instructorID != "" {
		where = append(where, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, instructorID)
	}
	query := fmt.Sprintf(`SELECT id, program_id, instructor_id, year_level, name FROM sections WHERE %s ORDER BY name ASC`,
		strings.Join(where, " AND "))
	rows := []models.Section{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return rows, nil
}

// CountByProgramAndYear counts existing cohorts, the input to the section
// name suffix.
func (r *SectionRepository) CountByProgramAndYear(ctx context.Context, programID string, yearLevel int) (int, error) {
	query := `SELECT COUNT(*) FROM sections WHERE program_id = $1 AND year_level = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, programID, yearLevel); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return count, nil
}

// Create inserts a section row.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	query := `INSERT INTO sections (id, program_id, instructor_id, year_level, name) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		section.ID, section.ProgramID, section.InstructorID, section.YearLevel, section.Name); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Delete removes a section and, via cascade, its schedules and sessions.
func (r *SectionRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete section: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete section: %w", err)
	}
	return affected > 0, nil
}
