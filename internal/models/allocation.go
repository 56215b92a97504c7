package models

import "time"

// SeatAllocation pairs a course instance with a client and a seat count.
// The full list for a course is replaced wholesale on every save; there is
// no incremental diffing.
type SeatAllocation struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	ClientID       string    `db:"client_id" json:"client_id"`
	SeatsAllocated int       `db:"seats_allocated" json:"seats_allocated"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SeatAllocationDetail enriches SeatAllocation with the client name.
type SeatAllocationDetail struct {
	SeatAllocation
	ClientName string `db:"client_name" json:"client_name"`
}

// AllocationTotals summarises seat utilisation for a course instance.
type AllocationTotals struct {
	TotalAllocated       int     `json:"total_allocated"`
	MaxStudents          int     `json:"max_students"`
	AllocationPercentage float64 `json:"allocation_percentage"`
}
