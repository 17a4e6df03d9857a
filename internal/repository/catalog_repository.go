package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scanpoint/attendance-api/internal/models"
)

// CatalogRepository persists the flat academic catalog entities:
// departments, programs and courses.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows := []models.Department{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, code FROM departments ORDER BY code ASC`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return rows, nil
}

func (r *CatalogRepository) CreateDepartment(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	query := `INSERT INTO departments (id, name, code) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, dept.ID, dept.Name, dept.Code); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteDepartment(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "departments", id)
}

func (r *CatalogRepository) ListPrograms(ctx context.Context, departmentID string) ([]models.Program, error) {
	query := `SELECT id, department_id, name, code FROM programs`
	args := []interface{}{}
	if departmentID != "" {
		query += ` WHERE department_id = $1`
		args = append(args, departmentID)
	}
	query += ` ORDER BY code ASC`
	rows := []models.Program{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return rows, nil
}

func (r *CatalogRepository) FindProgramByID(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	if err := r.db.GetContext(ctx, &program, `SELECT id, department_id, name, code FROM programs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *CatalogRepository) CreateProgram(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	query := `INSERT INTO programs (id, department_id, name, code) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, program.ID, program.DepartmentID, program.Name, program.Code); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteProgram(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "programs", id)
}

func (r *CatalogRepository) ListCourses(ctx context.Context, departmentID string) ([]models.Course, error) {
	query := `SELECT id, department_id, name, code, units FROM courses`
	args := []interface{}{}
	if departmentID != "" {
		query += ` WHERE department_id = $1`
		args = append(args, departmentID)
	}
	query += ` ORDER BY code ASC`
	rows := []models.Course{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return rows, nil
}

func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	query := `INSERT INTO courses (id, department_id, name, code, units) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.DepartmentID, course.Name, course.Code, course.Units); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteCourse(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "courses", id)
}

func (r *CatalogRepository) deleteByID(ctx context.Context, table, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return affected > 0, nil
}
