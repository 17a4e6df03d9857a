package models

import "time"

// AttendanceSession is a time-boxed window during which a class's attendance
// can be scanned. Lifecycle: created open (ClosedAt nil), closed exactly
// once, never reopened. At most one open session may exist per schedule;
// the database enforces this with a partial unique index on (schedule_id)
// WHERE closed_at IS NULL.
type AttendanceSession struct {
	ID          string     `db:"id" json:"id"`
	ScheduleID  string     `db:"schedule_id" json:"schedule_id"`
	Date        time.Time  `db:"date" json:"date"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	ClosedAt    *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	QRToken     string     `db:"qr_token" json:"qr_token"`
	QRExpiresAt *time.Time `db:"qr_expires_at" json:"qr_expires_at,omitempty"`
}

// Open reports whether the session still accepts scans.
func (s *AttendanceSession) Open() bool {
	return s.ClosedAt == nil
}

// AttendanceSessionDetail joins schedule and section context onto a session.
// The section instructor is carried so services can evaluate ownership
// without a second query.
type AttendanceSessionDetail struct {
	AttendanceSession
	SectionID    string `db:"section_id" json:"section_id"`
	SectionName  string `db:"section_name" json:"section_name"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	InstructorID string `db:"instructor_id" json:"-"`
}

// AttendanceSessionFilter scopes session listings.
type AttendanceSessionFilter struct {
	ScheduleID string
	Date       *time.Time
	OnlyOpen   bool
	// InstructorID restricts visibility to sessions of sections owned by
	// this teacher; empty means unrestricted (admin).
	InstructorID string
	Page         int
	PageSize     int
}
