package models

import (
	"encoding/json"
	"time"
)

// CourseClosure is the post-course record written when an instructor closes a
// course instance. AnalyticsData carries the raw per-student performance
// payload exactly as recorded on the track; it is parsed and scored on read,
// never rewritten.
type CourseClosure struct {
	ID            string          `db:"id" json:"id"`
	CourseID      string          `db:"course_id" json:"course_id"`
	ClosedBy      string          `db:"closed_by" json:"closed_by"`
	ClosedAt      time.Time       `db:"closed_at" json:"closed_at"`
	ChordLength   float64         `db:"chord_length" json:"chord_length"`
	MaxOffset     float64         `db:"max_offset" json:"max_offset"`
	IdealTime     float64         `db:"ideal_time" json:"ideal_time"`
	PenaltyCone   float64         `db:"penalty_cone" json:"penalty_cone"`
	PenaltyGate   float64         `db:"penalty_gate" json:"penalty_gate"`
	AnalyticsData json.RawMessage `db:"analytics_data" json:"analytics_data"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
