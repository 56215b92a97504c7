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

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseDetailColumns() []string {
	return []string{"id", "program_id", "host_client_id", "venue", "start_date", "end_date",
		"is_open_enrollment", "private_seats_allocated", "status", "created_at", "updated_at",
		"program_name", "max_students", "host_client_name"}
}

func TestCourseRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseDetailColumns()).
		AddRow("course-1", "prog-1", nil, "North Track", time.Now(), time.Now().Add(48*time.Hour),
			true, 0, "SCHEDULED", time.Now(), time.Now(), "Defensive Driving L1", 20, nil)
	mock.ExpectQuery(`(?s)SELECT ci\.id, ci\.program_id.+FROM course_instances ci.+WHERE ci\.status = \$1 ORDER BY ci\.start_date DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.CourseStatusScheduled).
		WillReturnRows(rows)
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).+FROM course_instances ci.+WHERE ci\.status = \$1`).
		WithArgs(models.CourseStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Status: models.CourseStatusScheduled})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Defensive Driving L1", courses[0].ProgramName)
	assert.Equal(t, 20, courses[0].MaxStudents)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	host := "client-1"
	hostName := "Acme Fleet"
	rows := sqlmock.NewRows(courseDetailColumns()).
		AddRow("course-1", "prog-1", host, "North Track", time.Now(), time.Now().Add(48*time.Hour),
			false, 12, "RUNNING", time.Now(), time.Now(), "Defensive Driving L1", 20, hostName)
	mock.ExpectQuery(`(?s)SELECT ci\.id, ci\.program_id.+WHERE ci\.id = \$1`).
		WithArgs("course-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "course-1")
	require.NoError(t, err)
	assert.False(t, detail.IsOpenEnrollment)
	assert.Equal(t, 12, detail.PrivateSeatsAllocated)
	require.NotNil(t, detail.HostClientName)
	assert.Equal(t, "Acme Fleet", *detail.HostClientName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO course_instances").
		WithArgs(sqlmock.AnyArg(), "prog-1", nil, "North Track", sqlmock.AnyArg(), sqlmock.AnyArg(),
			true, 0, "SCHEDULED", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.CourseInstance{
		ProgramID:        "prog-1",
		Venue:            "North Track",
		StartDate:        time.Now(),
		EndDate:          time.Now().Add(48 * time.Hour),
		IsOpenEnrollment: true,
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, models.CourseStatusScheduled, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListVehicles(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "model", "plate", "lat_acc_rating"}).
		AddRow("veh-1", "course-1", "Compact A", "B 1234 XY", 0.92)
	mock.ExpectQuery(`SELECT id, course_id, model, plate, lat_acc_rating FROM course_vehicles WHERE course_id = \$1 ORDER BY model`).
		WithArgs("course-1").
		WillReturnRows(rows)

	vehicles, err := repo.ListVehicles(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, 0.92, vehicles[0].LatAccRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}
