package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

// CourseRepository handles persistence of course instances and their vehicles.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns course instances filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM course_instances ci
LEFT JOIN programs p ON p.id = ci.program_id
LEFT JOIN clients c ON c.id = ci.host_client_id`
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("ci.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("ci.host_client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ci.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("ci.start_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("ci.start_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date":   "ci.start_date",
		"venue":        "ci.venue",
		"status":       "ci.status",
		"program_name": "p.name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "start_date"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "ci.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ci.id, ci.program_id, ci.host_client_id, ci.venue, ci.start_date, ci.end_date,
        ci.is_open_enrollment, ci.private_seats_allocated, ci.status, ci.created_at, ci.updated_at,
        p.name AS program_name, p.max_students AS max_students, c.name AS host_client_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course instance by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseInstance, error) {
	const query = `SELECT id, program_id, host_client_id, venue, start_date, end_date,
        is_open_enrollment, private_seats_allocated, status, created_at, updated_at
        FROM course_instances WHERE id = $1`
	var course models.CourseInstance
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course instance with program and host client info.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT ci.id, ci.program_id, ci.host_client_id, ci.venue, ci.start_date, ci.end_date,
        ci.is_open_enrollment, ci.private_seats_allocated, ci.status, ci.created_at, ci.updated_at,
        p.name AS program_name, p.max_students AS max_students, c.name AS host_client_name
        FROM course_instances ci
        LEFT JOIN programs p ON p.id = ci.program_id
        LEFT JOIN clients c ON c.id = ci.host_client_id
        WHERE ci.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new course instance.
func (r *CourseRepository) Create(ctx context.Context, course *models.CourseInstance) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusScheduled
	}
	const query = `INSERT INTO course_instances (id, program_id, host_client_id, venue, start_date, end_date,
        is_open_enrollment, private_seats_allocated, status, created_at, updated_at)
        VALUES (:id, :program_id, :host_client_id, :venue, :start_date, :end_date,
        :is_open_enrollment, :private_seats_allocated, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists course instance changes.
func (r *CourseRepository) Update(ctx context.Context, course *models.CourseInstance) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_instances SET venue = :venue, start_date = :start_date, end_date = :end_date,
        host_client_id = :host_client_id, is_open_enrollment = :is_open_enrollment,
        private_seats_allocated = :private_seats_allocated, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course instance.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_instances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// FindProgramByID returns a program template.
func (r *CourseRepository) FindProgramByID(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, name, description, max_students, duration_days, chord_length, max_offset,
        ideal_time, penalty_cone, penalty_gate, created_at, updated_at
        FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// ListVehicles returns the vehicles fielded on a course instance.
func (r *CourseRepository) ListVehicles(ctx context.Context, courseID string) ([]models.CourseVehicle, error) {
	const query = `SELECT id, course_id, model, plate, lat_acc_rating FROM course_vehicles WHERE course_id = $1 ORDER BY model`
	var vehicles []models.CourseVehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, courseID); err != nil {
		return nil, fmt.Errorf("list course vehicles: %w", err)
	}
	return vehicles, nil
}
