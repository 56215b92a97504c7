package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAllocationRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "client_id", "seats_allocated", "created_at", "client_name"}).
		AddRow("alloc-1", "course-1", "client-a", 10, time.Now(), "Acme Logistics").
		AddRow("alloc-2", "course-1", "client-b", 8, time.Now(), "Metro Couriers")
	mock.ExpectQuery("SELECT a.id, a.course_id, a.client_id, a.seats_allocated, a.created_at").
		WithArgs("course-1").
		WillReturnRows(rows)

	allocations, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	require.Equal(t, "Acme Logistics", allocations[0].ClientName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReplaceAllDeletesThenInserts(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_allocations WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO course_allocations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO course_allocations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), "course-1", []models.SeatAllocation{
		{ClientID: "client-a", SeatsAllocated: 10},
		{ClientID: "client-b", SeatsAllocated: 8},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_allocations WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO course_allocations").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), "course-1", []models.SeatAllocation{
		{ClientID: "client-a", SeatsAllocated: 10},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReplaceAllEmptyListOnlyDeletes(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_allocations WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), "course-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
