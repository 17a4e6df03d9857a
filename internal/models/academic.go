package models

import "time"

// Department groups programs and courses.
type Department struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// Program is a course of study inside a department.
type Program struct {
	ID           string `db:"id" json:"id"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
}

// Course is a teachable unit owned by a department.
type Course struct {
	ID           string `db:"id" json:"id"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
	Units        int    `db:"units" json:"units"`
}

// Section is a cohort of students with one owning instructor.
type Section struct {
	ID           string `db:"id" json:"id"`
	ProgramID    string `db:"program_id" json:"program_id"`
	InstructorID string `db:"instructor_id" json:"instructor_id"`
	YearLevel    int    `db:"year_level" json:"year_level"`
	Name         string `db:"name" json:"name"`
}

// DayOfWeek enumerates schedule days.
type DayOfWeek string

const (
	DayMonday    DayOfWeek = "mon"
	DayTuesday   DayOfWeek = "tue"
	DayWednesday DayOfWeek = "wed"
	DayThursday  DayOfWeek = "thu"
	DayFriday    DayOfWeek = "fri"
	DaySaturday  DayOfWeek = "sat"
	DaySunday    DayOfWeek = "sun"
)

// Valid reports whether the value is a known day.
func (d DayOfWeek) Valid() bool {
	switch d {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return true
	default:
		return false
	}
}

// ClassSchedule assigns a course to a section on a weekly slot. Schedules
// referenced by attendance sessions are treated as immutable.
type ClassSchedule struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      *string   `db:"room" json:"room,omitempty"`
}

// ClassScheduleDetail denormalizes course/section metadata for listings and
// for ownership checks during session opening.
type ClassScheduleDetail struct {
	ClassSchedule
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	SectionName  string `db:"section_name" json:"section_name"`
	InstructorID string `db:"section_instructor_id" json:"instructor_id"`
}

// Enrollment is a section membership row; the scan flow only ever reads it.
type Enrollment struct {
	SectionID string    `db:"section_id" json:"section_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}
