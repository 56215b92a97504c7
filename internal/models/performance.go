package models

// StressCondition is the cognitive/time-pressure setting a final-exercise
// attempt was run under.
type StressCondition string

const (
	StressLow  StressCondition = "Low"
	StressHigh StressCondition = "High"
)

// FinalExerciseAttempt is one timed run of the multidisciplinary final
// exercise. Attempts are immutable once recorded; every aggregate is
// recomputed from the attempt list.
type FinalExerciseAttempt struct {
	CarID            string          `json:"car_id"`
	Stress           StressCondition `json:"stress"`
	RevSlalomTime    string          `json:"rev_slalom_time"`
	RevSlalomSeconds float64         `json:"rev_slalom_seconds"`
	RevPC            float64         `json:"rev_pc"`
	SlalomScore      float64         `json:"slalom_score"`
	LaneChangeScore  float64         `json:"lnch_score"`
	Cones            int             `json:"cones"`
	Gates            int             `json:"gates"`
	FinishTime       string          `json:"f_time"`
	FinishSeconds    float64         `json:"f_time_seconds"`
	FinalResult      float64         `json:"final_result"`
}

// RawStudentPerformance mirrors one element of the analytics_data payload.
// It carries both the current field names and the legacy flat ones written by
// the old closure tooling; NormalizePerformanceRecord folds the two together.
type RawStudentPerformance struct {
	FullName string `json:"fullname"`

	// current convention
	SlalomMax            float64                `json:"slalom_max"`
	LaneChangeMax        float64                `json:"lane_change_max"`
	SRunsUntilPass       float64                `json:"s_runs_until_pass"`
	LCRunsUntilPass      float64                `json:"lc_runs_until_pass"`
	SAttempts            float64                `json:"s_attempts"`
	LCAttempts           float64                `json:"lc_attempts"`
	SPasses              float64                `json:"s_passes"`
	LCPasses             float64                `json:"lc_passes"`
	SPctPass             float64                `json:"s_pc_pass"`
	LCPctPass            float64                `json:"lc_pc_pass"`
	SAvgPct              float64                `json:"s_avg_pc"`
	LCAvgPct             float64                `json:"lc_avg_pc"`
	FinalExerciseDetails []FinalExerciseAttempt `json:"final_exercise_details"`

	// legacy convention
	SlalomControl   float64 `json:"slalom_control"`
	EvasionControl  float64 `json:"evasion_control"`
	SlalomAttempts  float64 `json:"slalom_attempts"`
	EvasionAttempts float64 `json:"evasion_attempts"`
	HighStressScore float64 `json:"high_stress_score"`

	OverallScore float64       `json:"overall_score"`
	ScoreDetails *ScoreDetails `json:"score_details,omitempty"`
}

// ScoreDetails breaks the composite score down per exercise.
type ScoreDetails struct {
	SlalomScore     float64 `json:"slalom_score"`
	LaneChangeScore float64 `json:"lnch_score"`
	ReverseScore    float64 `json:"reverse_score"`
	FinalExScore    float64 `json:"final_ex_score"`
}

// StudentPerformanceRecord is the canonical, normalized view of one student's
// results for a course instance. It is constructed once per analytics
// computation and read-only afterwards; OverallScore is always derived via
// the composite formula, never copied from input.
type StudentPerformanceRecord struct {
	FullName string `json:"fullname"`

	SlalomControl     float64 `json:"slalom_control"`
	LaneChangeControl float64 `json:"lane_change_control"`

	SlalomRunsUntilPass     int `json:"s_runs_until_pass"`
	LaneChangeRunsUntilPass int `json:"lc_runs_until_pass"`

	SlalomAttempts     int `json:"slalom_attempts"`
	LaneChangeAttempts int `json:"lane_change_attempts"`
	SlalomPasses       int `json:"s_passes"`
	LaneChangePasses   int `json:"lc_passes"`

	SlalomPctPass     float64 `json:"s_pc_pass"`
	LaneChangePctPass float64 `json:"lc_pc_pass"`
	SlalomAvgPct      float64 `json:"s_avg_pc"`
	LaneChangeAvgPct  float64 `json:"lc_avg_pc"`

	HighStressScore float64 `json:"high_stress_score"`

	OverallScore float64      `json:"overall_score"`
	ScoreDetails ScoreDetails `json:"score_details"`

	FinalAttempts []FinalExerciseAttempt `json:"final_exercise_details"`
}

// FinalExerciseAggregate summarises a student's final-exercise attempts.
// The three averages are rounded to the nearest integer; a student with no
// attempts aggregates to all zeroes.
type FinalExerciseAggregate struct {
	AverageFinalResult int     `json:"average_final_result"`
	AveragePenalties   int     `json:"average_penalties"`
	AverageReverseTime int     `json:"average_reverse_time"`
	LowStressAverage   float64 `json:"low_stress_average"`
	HighStressAverage  float64 `json:"high_stress_average"`
}
