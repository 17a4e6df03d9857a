package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scanpoint/attendance-api/internal/models"
	appErrors "github.com/scanpoint/attendance-api/pkg/errors"
)

type catalogRepository interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, dept *models.Department) error
	DeleteDepartment(ctx context.Context, id string) (bool, error)
	ListPrograms(ctx context.Context, departmentID string) ([]models.Program, error)
	FindProgramByID(ctx context.Context, id string) (*models.Program, error)
	CreateProgram(ctx context.Context, program *models.Program) error
	DeleteProgram(ctx context.Context, id string) (bool, error)
	ListCourses(ctx context.Context, departmentID string) ([]models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) (bool, error)
}

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	List(ctx context.Context, instructorID string) ([]models.Section, error)
	CountByProgramAndYear(ctx context.Context, programID string, yearLevel int) (int, error)
	Create(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) (bool, error)
}

type scheduleRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	List(ctx context.Context, sectionID, instructorID string) ([]models.ClassScheduleDetail, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, id string) (bool, error)
}

type academicUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AcademicService manages the schedule catalog: departments, programs,
// courses, sections and class schedules.
type AcademicService struct {
	catalog   catalogRepository
	sections  sectionRepository
	schedules scheduleRepository
	users     academicUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService constructs the academic catalog service.
func NewAcademicService(catalog catalogRepository, sections sectionRepository, schedules scheduleRepository, users academicUserReader, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicService{catalog: catalog, sections: sections, schedules: schedules, users: users, validator: validate, logger: logger}
}

// CreateDepartmentRequest is the payload for creating a department.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,max=20"`
}

// CreateProgramRequest is the payload for creating a program.
type CreateProgramRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=20"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=20"`
	Units        int    `json:"units" validate:"min=1,max=12"`
}

// CreateSectionRequest is the payload for creating a section.
type CreateSectionRequest struct {
	ProgramID    string `json:"program_id" validate:"required"`
	InstructorID string `json:"instructor_id" validate:"required"`
	YearLevel    int    `json:"year_level" validate:"required,min=1,max=10"`
}

// CreateScheduleRequest is the payload for creating a class schedule.
type CreateScheduleRequest struct {
	CourseID  string  `json:"course_id" validate:"required"`
	SectionID string  `json:"section_id" validate:"required"`
	DayOfWeek string  `json:"day_of_week" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room"`
}

func (s *AcademicService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.catalog.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return rows, nil
}

func (s *AcademicService) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	dept := &models.Department{Name: req.Name, Code: strings.ToUpper(req.Code)}
	if err := s.catalog.CreateDepartment(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	return dept, nil
}

func (s *AcademicService) DeleteDepartment(ctx context.Context, id string) error {
	return s.deleteEntity(s.catalog.DeleteDepartment, ctx, id, "department not found")
}

func (s *AcademicService) ListPrograms(ctx context.Context, departmentID string) ([]models.Program, error) {
	rows, err := s.catalog.ListPrograms(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	return rows, nil
}

func (s *AcademicService) CreateProgram(ctx context.Context, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	program := &models.Program{DepartmentID: req.DepartmentID, Name: req.Name, Code: strings.ToUpper(req.Code)}
	if err := s.catalog.CreateProgram(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

func (s *AcademicService) DeleteProgram(ctx context.Context, id string) error {
	return s.deleteEntity(s.catalog.DeleteProgram, ctx, id, "program not found")
}

func (s *AcademicService) ListCourses(ctx context.Context, departmentID string) ([]models.Course, error) {
	rows, err := s.catalog.ListCourses(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return rows, nil
}

func (s *AcademicService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	units := req.Units
	if units == 0 {
		units = 3
	}
	course := &models.Course{DepartmentID: req.DepartmentID, Name: req.Name, Code: strings.ToUpper(req.Code), Units: units}
	if err := s.catalog.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

func (s *AcademicService) DeleteCourse(ctx context.Context, id string) error {
	return s.deleteEntity(s.catalog.DeleteCourse, ctx, id, "course not found")
}

// ListSections returns sections; teachers only see their own.
func (s *AcademicService) ListSections(ctx context.Context, actor *models.JWTClaims) ([]models.Section, error) {
	instructorID := ""
	if actor.Role != models.RoleAdmin {
		instructorID = actor.UserID
	}
	rows, err := s.sections.List(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return rows, nil
}

// CreateSection creates a cohort. The section name is derived from the
// program code, year level and a letter suffix based on how many cohorts
// already exist for that program/year.
func (s *AcademicService) CreateSection(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	instructor, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor must have the teacher role")
	}

	program, err := s.catalog.FindProgramByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	count, err := s.sections.CountByProgramAndYear(ctx, req.ProgramID, req.YearLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sections")
	}

	section := &models.Section{
		ProgramID:    req.ProgramID,
		InstructorID: req.InstructorID,
		YearLevel:    req.YearLevel,
		Name:         fmt.Sprintf("%s %d%s", program.Code, req.YearLevel, SectionSuffix(count)),
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

func (s *AcademicService) DeleteSection(ctx context.Context, id string) error {
	return s.deleteEntity(s.sections.Delete, ctx, id, "section not found")
}

// ListSchedules returns class schedules; teachers only see their own
// sections' schedules.
func (s *AcademicService) ListSchedules(ctx context.Context, sectionID string, actor *models.JWTClaims) ([]models.ClassScheduleDetail, error) {
	instructorID := ""
	if actor.Role != models.RoleAdmin {
		instructorID = actor.UserID
	}
	rows, err := s.schedules.List(ctx, sectionID, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return rows, nil
}

// CreateSchedule creates a weekly slot for a section/course pair.
func (s *AcademicService) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	day := models.DayOfWeek(strings.ToLower(req.DayOfWeek))
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	schedule := &models.ClassSchedule{
		CourseID:  req.CourseID,
		SectionID: req.SectionID,
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

func (s *AcademicService) DeleteSchedule(ctx context.Context, id string) error {
	return s.deleteEntity(s.schedules.Delete, ctx, id, "schedule not found")
}

func (s *AcademicService) deleteEntity(del func(context.Context, string) (bool, error), ctx context.Context, id, notFoundMsg string) error {
	deleted, err := del(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete failed")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return nil
}

// SectionSuffix yields the cohort letter for the nth section of a
// program/year: 0 -> A, 25 -> Z, 26 -> AA. It depends only on the count of
// existing cohorts, not on storage-assigned identity.
func SectionSuffix(existingCount int) string {
	if existingCount < 0 {
		existingCount = 0
	}
	suffix := ""
	n := existingCount
	for {
		suffix = string(rune('A'+n%26)) + suffix
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return suffix
}
