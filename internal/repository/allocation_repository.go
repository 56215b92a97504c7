package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

// AllocationRepository handles persistence of course seat allocations.
// The stored list for a course is only ever written wholesale: a save deletes
// every existing row and bulk-inserts the current in-memory list inside one
// transaction.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// ListByCourse returns the allocations for a course instance with client names.
func (r *AllocationRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SeatAllocationDetail, error) {
	const query = `SELECT a.id, a.course_id, a.client_id, a.seats_allocated, a.created_at,
        c.name AS client_name
        FROM course_allocations a
        LEFT JOIN clients c ON c.id = a.client_id
        WHERE a.course_id = $1
        ORDER BY a.created_at ASC`
	var allocations []models.SeatAllocationDetail
	if err := r.db.SelectContext(ctx, &allocations, query, courseID); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}

// ReplaceAll swaps the stored allocation list for the given course. Delete
// and inserts run in a single transaction, so a failure anywhere leaves the
// previous list intact and surfaces one error to the caller.
func (r *AllocationRepository) ReplaceAll(ctx context.Context, courseID string, allocations []models.SeatAllocation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_allocations WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear allocations: %w", err)
	}

	const insert = `INSERT INTO course_allocations (id, course_id, client_id, seats_allocated, created_at)
        VALUES (:id, :course_id, :client_id, :seats_allocated, :created_at)`
	now := time.Now().UTC()
	for i := range allocations {
		allocation := allocations[i]
		if allocation.ID == "" {
			allocation.ID = uuid.NewString()
		}
		allocation.CourseID = courseID
		if allocation.CreatedAt.IsZero() {
			allocation.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, allocation); err != nil {
			return fmt.Errorf("insert allocation for client %s: %w", allocation.ClientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation save: %w", err)
	}
	return nil
}
