package models

import "time"

// StudentAnalytics pairs a scored performance record with its final-exercise
// aggregate for one trainee.
type StudentAnalytics struct {
	Record        StudentPerformanceRecord `json:"record"`
	FinalExercise FinalExerciseAggregate   `json:"final_exercise"`
}

// CourseAnalytics is the full computed analytics view for a closed course
// instance.
type CourseAnalytics struct {
	CourseID    string             `json:"course_id"`
	ProgramName string             `json:"program_name"`
	ClosedAt    time.Time          `json:"closed_at"`
	Students    []StudentAnalytics `json:"students"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// TopPerformer is one leaderboard row.
type TopPerformer struct {
	Rank              int     `json:"rank"`
	FullName          string  `json:"fullname"`
	ControlPct        float64 `json:"control_pct"`
	AttemptsUntilPass int     `json:"attempts_until_pass"`
	OverallScore      float64 `json:"overall_score"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
