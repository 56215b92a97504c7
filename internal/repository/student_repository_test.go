package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "client_id", "full_name", "email", "phone", "license_no", "active", "created_at", "updated_at", "client_name"}).
		AddRow("1", "client-1", "Aiken Drum", "aiken@example.com", "123", "DL-99", true, time.Now(), time.Now(), "Acme Fleet")
	mock.ExpectQuery(`SELECT s\.id, s\.client_id, s\.full_name(.+)FROM students s LEFT JOIN clients cl ON cl\.id = s\.client_id WHERE 1=1 AND s\.client_id = \$1 ORDER BY s\.created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("client-1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(s\.id\) FROM students s LEFT JOIN clients cl ON cl\.id = s\.client_id WHERE 1=1 AND s\.client_id = \$1`).
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{ClientID: "client-1"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, "Acme Fleet", students[0].ClientName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByLicense(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM students WHERE license_no = \$1 AND id <> \$2 LIMIT 1`).
		WithArgs("DL-99", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByLicense(context.Background(), "DL-99", "student-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{ClientID: "client-1", FullName: "Aiken Drum", Email: "aiken@example.com", Phone: "123", LicenseNo: "DL-99", Active: true}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`UPDATE students SET active = false, updated_at = \$2 WHERE id = \$1`).
		WithArgs("student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "student-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
