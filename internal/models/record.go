package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the durable fact that a student attended (or was
// marked absent/excused for) a session. One row per (session, student),
// enforced by a unique constraint; rows are never deleted.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	SessionID  string           `db:"session_id" json:"session_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Timestamp  time.Time        `db:"timestamp" json:"timestamp"`
	OverrideBy *string          `db:"override_by" json:"override_by,omitempty"`
	OverrideAt *time.Time       `db:"override_at" json:"override_at,omitempty"`
}

// SessionRecordRow denormalizes a record with student identity for the
// per-session listing and exports.
type SessionRecordRow struct {
	AttendanceRecord
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
}

// RecordDetail carries the section owner so override authorization can be
// decided without a second lookup.
type RecordDetail struct {
	AttendanceRecord
	SectionID    string `db:"section_id" json:"-"`
	InstructorID string `db:"instructor_id" json:"-"`
}

// StudentHistoryRow is one entry of a student's attendance history.
type StudentHistoryRow struct {
	SessionID  string           `db:"session_id" json:"session_id"`
	Date       time.Time        `db:"date" json:"date"`
	CourseCode string           `db:"course_code" json:"course_code"`
	CourseName string           `db:"course_name" json:"course_name"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Timestamp  time.Time        `db:"timestamp" json:"timestamp"`
}

// StudentAttendanceSummary aggregates a student's records by status.
type StudentAttendanceSummary struct {
	Present int     `json:"present"`
	Late    int     `json:"late"`
	Absent  int     `json:"absent"`
	Excused int     `json:"excused"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}
