package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

func newClosureMock(t *testing.T) (*ClosureRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClosureRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestClosureRepositoryFindByCourse(t *testing.T) {
	repo, mock := newClosureMock(t)

	payload := json.RawMessage(`[{"full_name":"A"}]`)
	rows := sqlmock.NewRows([]string{"id", "course_id", "closed_by", "closed_at", "chord_length", "max_offset",
		"ideal_time", "penalty_cone", "penalty_gate", "analytics_data", "created_at"}).
		AddRow("cl-1", "course-1", "user-1", time.Now(), 12.5, 1.8, 14.2, 2.0, 5.0, []byte(payload), time.Now())

	mock.ExpectQuery(`SELECT id, course_id, closed_by, closed_at(.+)FROM course_closures WHERE course_id = \$1`).
		WithArgs("course-1").
		WillReturnRows(rows)

	closure, err := repo.FindByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "course-1", closure.CourseID)
	assert.JSONEq(t, string(payload), string(closure.AnalyticsData))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosureRepositoryCreateUpserts(t *testing.T) {
	repo, mock := newClosureMock(t)

	mock.ExpectExec(`INSERT INTO course_closures(.+)ON CONFLICT \(course_id\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	closure := &models.CourseClosure{
		CourseID:      "course-1",
		ClosedBy:      "user-1",
		ChordLength:   12.5,
		MaxOffset:     1.8,
		IdealTime:     14.2,
		PenaltyCone:   2.0,
		PenaltyGate:   5.0,
		AnalyticsData: json.RawMessage(`[]`),
	}
	err := repo.Create(context.Background(), closure)
	require.NoError(t, err)
	assert.NotEmpty(t, closure.ID)
	assert.False(t, closure.ClosedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
