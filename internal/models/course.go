package models

import "time"

// CourseStatus tracks the lifecycle of a course instance.
type CourseStatus string

// Possible course statuses.
const (
	CourseStatusScheduled CourseStatus = "SCHEDULED"
	CourseStatusRunning   CourseStatus = "RUNNING"
	CourseStatusClosed    CourseStatus = "CLOSED"
)

// Program is a course template: what gets taught and how the track is laid out.
type Program struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	MaxStudents  int       `db:"max_students" json:"max_students"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	ChordLength  float64   `db:"chord_length" json:"chord_length"`
	MaxOffset    float64   `db:"max_offset" json:"max_offset"`
	IdealTime    float64   `db:"ideal_time" json:"ideal_time"`
	PenaltyCone  float64   `db:"penalty_cone" json:"penalty_cone"`
	PenaltyGate  float64   `db:"penalty_gate" json:"penalty_gate"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseInstance is one scheduled run of a program at a venue.
// A private course pre-assigns its whole seat block to the host client;
// an open-enrollment course spreads seats across clients up to the
// program's max_students.
type CourseInstance struct {
	ID                    string       `db:"id" json:"id"`
	ProgramID             string       `db:"program_id" json:"program_id"`
	HostClientID          *string      `db:"host_client_id" json:"host_client_id,omitempty"`
	Venue                 string       `db:"venue" json:"venue"`
	StartDate             time.Time    `db:"start_date" json:"start_date"`
	EndDate               time.Time    `db:"end_date" json:"end_date"`
	IsOpenEnrollment      bool         `db:"is_open_enrollment" json:"is_open_enrollment"`
	PrivateSeatsAllocated int          `db:"private_seats_allocated" json:"private_seats_allocated"`
	Status                CourseStatus `db:"status" json:"status"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches CourseInstance with program and host client info.
type CourseDetail struct {
	CourseInstance
	ProgramName    string  `db:"program_name" json:"program_name"`
	MaxStudents    int     `db:"max_students" json:"max_students"`
	HostClientName *string `db:"host_client_name" json:"host_client_name,omitempty"`
}

// CourseFilter provides filters for listing course instances.
type CourseFilter struct {
	ProgramID string
	ClientID  string
	Status    CourseStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseVehicle is a vehicle fielded on a course instance.
type CourseVehicle struct {
	ID           string  `db:"id" json:"id"`
	CourseID     string  `db:"course_id" json:"course_id"`
	Model        string  `db:"model" json:"model"`
	Plate        string  `db:"plate" json:"plate"`
	LatAccRating float64 `db:"lat_acc_rating" json:"lat_acc_rating"`
}
