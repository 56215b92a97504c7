package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

// ClosureRepository manages persistence of course closure records and their
// raw analytics payloads.
type ClosureRepository struct {
	db *sqlx.DB
}

// NewClosureRepository constructs the repository.
func NewClosureRepository(db *sqlx.DB) *ClosureRepository {
	return &ClosureRepository{db: db}
}

// FindByCourse returns the closure record for a course instance.
func (r *ClosureRepository) FindByCourse(ctx context.Context, courseID string) (*models.CourseClosure, error) {
	const query = `SELECT id, course_id, closed_by, closed_at, chord_length, max_offset, ideal_time,
        penalty_cone, penalty_gate, analytics_data, created_at
        FROM course_closures WHERE course_id = $1`
	var closure models.CourseClosure
	if err := r.db.GetContext(ctx, &closure, query, courseID); err != nil {
		return nil, err
	}
	return &closure, nil
}

// Create persists a closure record. A course instance has at most one closure;
// re-closing replaces the previous record.
func (r *ClosureRepository) Create(ctx context.Context, closure *models.CourseClosure) error {
	if closure.ID == "" {
		closure.ID = uuid.NewString()
	}
	if closure.ClosedAt.IsZero() {
		closure.ClosedAt = time.Now().UTC()
	}
	closure.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO course_closures (id, course_id, closed_by, closed_at, chord_length, max_offset,
        ideal_time, penalty_cone, penalty_gate, analytics_data, created_at)
        VALUES (:id, :course_id, :closed_by, :closed_at, :chord_length, :max_offset, :ideal_time,
        :penalty_cone, :penalty_gate, :analytics_data, :created_at)
        ON CONFLICT (course_id) DO UPDATE SET
        closed_by = EXCLUDED.closed_by, closed_at = EXCLUDED.closed_at, chord_length = EXCLUDED.chord_length,
        max_offset = EXCLUDED.max_offset, ideal_time = EXCLUDED.ideal_time, penalty_cone = EXCLUDED.penalty_cone,
        penalty_gate = EXCLUDED.penalty_gate, analytics_data = EXCLUDED.analytics_data`
	if _, err := r.db.NamedExecContext(ctx, query, closure); err != nil {
		return fmt.Errorf("save closure: %w", err)
	}
	return nil
}
