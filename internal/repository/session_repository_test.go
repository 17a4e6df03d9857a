package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/scanpoint/attendance-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.AttendanceSession{ScheduleID: "sched-1", Date: time.Now(), StartedAt: time.Now(), QRToken: "tok"}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnError(&pq.Error{Code: "23505"})

	session := &models.AttendanceSession{ScheduleID: "sched-1", Date: time.Now(), StartedAt: time.Now(), QRToken: "tok"}
	err := repo.Create(context.Background(), session)
	require.ErrorIs(t, err, ErrOpenSessionExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCloseAlreadyClosed(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE attendance_sessions SET closed_at").
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := repo.Close(context.Background(), "sess-1", time.Now())
	require.NoError(t, err)
	require.False(t, closed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryClose(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE attendance_sessions SET closed_at").
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	closed, err := repo.Close(context.Background(), "sess-1", time.Now())
	require.NoError(t, err)
	require.True(t, closed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindOpenDetailByToken(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "date", "started_at", "closed_at", "qr_token", "qr_expires_at",
		"section_id", "section_name", "course_code", "course_name", "instructor_id"}).
		AddRow("sess-1", "sched-1", now, now, nil, "tok", nil, "sect-1", "CS 1A", "CS101", "Intro to CS", "teacher-1")
	mock.ExpectQuery("FROM attendance_sessions s").
		WithArgs("tok").
		WillReturnRows(rows)

	detail, err := repo.FindOpenDetailByToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "sess-1", detail.ID)
	require.Equal(t, "teacher-1", detail.InstructorID)
	require.Nil(t, detail.ClosedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
