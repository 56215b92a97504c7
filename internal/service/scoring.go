package service

import (
	"math"
	"sort"

	"github.com/noah-isme/dts-adp-api/internal/models"
)

// Weights of the documented composite formula. The per-exercise split between
// control score and runs-until-pass is configurable (ScoringConfig); the
// cross-exercise 30/30/40 weighting is a fixed contract.
const (
	slalomWeight        = 0.3
	laneChangeWeight    = 0.3
	finalExerciseWeight = 0.4

	controlThreshold  = 80.0
	runsUntilPassFloor = 50.0

	// DefaultControlWeight is the fallback share of an exercise composite
	// contributed by the control score.
	DefaultControlWeight = 0.5
)

// NormalizeRawPerformance folds the legacy and current field conventions of a
// raw performance payload into one canonical record that populates both.
// For every dual-named quantity the current name wins; a zero or absent value
// falls back to the legacy name, and zero is the final default. The function
// is pure and idempotent: normalizing an already-normalized record returns it
// unchanged.
func NormalizeRawPerformance(raw models.RawStudentPerformance) models.RawStudentPerformance {
	out := raw

	slalomControl := preferValue(raw.SlalomMax, raw.SlalomControl)
	laneChangeControl := preferValue(raw.LaneChangeMax, raw.EvasionControl)
	out.SlalomMax = slalomControl
	out.SlalomControl = slalomControl
	out.LaneChangeMax = laneChangeControl
	out.EvasionControl = laneChangeControl

	slalomRuns := preferValue(raw.SRunsUntilPass, raw.SlalomAttempts)
	laneChangeRuns := preferValue(raw.LCRunsUntilPass, raw.EvasionAttempts)
	out.SRunsUntilPass = slalomRuns
	out.SlalomAttempts = slalomRuns
	out.LCRunsUntilPass = laneChangeRuns
	out.EvasionAttempts = laneChangeRuns

	if len(raw.FinalExerciseDetails) > 0 {
		out.HighStressScore = stressMean(raw.FinalExerciseDetails, models.StressHigh)
	}

	return out
}

// BuildPerformanceRecord produces the canonical immutable record for one
// student: normalized counters, final-exercise aggregates and the derived
// composite score. The overall score is always recomputed here; any
// overall_score present in the input is ignored.
func BuildPerformanceRecord(raw models.RawStudentPerformance, controlWeight float64) models.StudentPerformanceRecord {
	norm := NormalizeRawPerformance(raw)
	agg := AggregateFinalExercise(norm.FinalExerciseDetails)

	record := models.StudentPerformanceRecord{
		FullName:                norm.FullName,
		SlalomControl:           norm.SlalomMax,
		LaneChangeControl:       norm.LaneChangeMax,
		SlalomRunsUntilPass:     int(norm.SRunsUntilPass),
		LaneChangeRunsUntilPass: int(norm.LCRunsUntilPass),
		SlalomAttempts:          int(norm.SAttempts),
		LaneChangeAttempts:      int(norm.LCAttempts),
		SlalomPasses:            int(norm.SPasses),
		LaneChangePasses:        int(norm.LCPasses),
		SlalomPctPass:           norm.SPctPass,
		LaneChangePctPass:       norm.LCPctPass,
		SlalomAvgPct:            norm.SAvgPct,
		LaneChangeAvgPct:        norm.LCAvgPct,
		HighStressScore:         norm.HighStressScore,
		FinalAttempts:           append([]models.FinalExerciseAttempt(nil), norm.FinalExerciseDetails...),
	}

	record.ScoreDetails, record.OverallScore = CompositeScore(record, agg, controlWeight)
	return record
}

// AggregateFinalExercise reduces a student's final-exercise attempts into
// integer-rounded averages plus per-stress-condition means. Empty input, and
// any empty stress partition, aggregate to zero rather than dividing by zero.
// The reduction is commutative: attempt order never changes the result.
func AggregateFinalExercise(attempts []models.FinalExerciseAttempt) models.FinalExerciseAggregate {
	if len(attempts) == 0 {
		return models.FinalExerciseAggregate{}
	}

	var resultSum, penaltySum, reverseSum float64
	for _, a := range attempts {
		resultSum += a.FinalResult
		penaltySum += float64(a.Cones + a.Gates)
		reverseSum += a.RevSlalomSeconds
	}

	n := float64(len(attempts))
	return models.FinalExerciseAggregate{
		AverageFinalResult: int(math.Round(resultSum / n)),
		AveragePenalties:   int(math.Round(penaltySum / n)),
		AverageReverseTime: int(math.Round(reverseSum / n)),
		LowStressAverage:   stressMean(attempts, models.StressLow),
		HighStressAverage:  stressMean(attempts, models.StressHigh),
	}
}

// NormalizedRunsUntilPass converts an attempts-until-first-pass count into a
// score: fewer attempts score higher, with a hard floor of 50. A student who
// never recorded a pass (runs <= 0) sits at the floor instead of producing a
// negative or undefined value.
func NormalizedRunsUntilPass(runs int) float64 {
	if runs <= 0 {
		return runsUntilPassFloor
	}
	return math.Max(runsUntilPassFloor, 100-5*float64(runs-2))
}

// ControlScore applies the proficiency penalty: at or above the 80% threshold
// the raw score passes through untouched, below it the score is scaled by
// score/80, which strictly worsens sub-threshold results while preserving
// their ordering.
func ControlScore(score float64) float64 {
	if score >= controlThreshold {
		return score
	}
	return score * (score / controlThreshold)
}

// ExerciseComposite blends an exercise's control score with its normalized
// runs-until-pass. controlWeight outside (0,1) falls back to the default.
func ExerciseComposite(control float64, runsUntilPass int, controlWeight float64) float64 {
	if controlWeight <= 0 || controlWeight >= 1 {
		controlWeight = DefaultControlWeight
	}
	return controlWeight*ControlScore(control) + (1-controlWeight)*NormalizedRunsUntilPass(runsUntilPass)
}

// CompositeScore combines the per-exercise composites into the weighted
// overall score: 30% slalom, 30% lane change, 40% final exercise. The reverse
// sub-score is the mean reversing percentage across attempts; it is reported
// for display only and carries no overall weight.
func CompositeScore(record models.StudentPerformanceRecord, agg models.FinalExerciseAggregate, controlWeight float64) (models.ScoreDetails, float64) {
	details := models.ScoreDetails{
		SlalomScore:     ExerciseComposite(record.SlalomControl, record.SlalomRunsUntilPass, controlWeight),
		LaneChangeScore: ExerciseComposite(record.LaneChangeControl, record.LaneChangeRunsUntilPass, controlWeight),
		ReverseScore:    reverseMean(record.FinalAttempts),
		FinalExScore:    float64(agg.AverageFinalResult),
	}

	overall := slalomWeight*details.SlalomScore +
		laneChangeWeight*details.LaneChangeScore +
		finalExerciseWeight*details.FinalExScore
	return details, overall
}

// RankTopPerformers orders records for leaderboard display: descending by
// control percentage, ties broken by ascending attempt count (fewer attempts
// ranks higher). Limit <= 0 or beyond the list returns everything.
func RankTopPerformers(records []models.StudentPerformanceRecord, limit int) []models.StudentPerformanceRecord {
	ranked := append([]models.StudentPerformanceRecord(nil), records...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := rankControl(ranked[i]), rankControl(ranked[j])
		if ci != cj {
			return ci > cj
		}
		return rankAttempts(ranked[i]) < rankAttempts(ranked[j])
	})
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankControl(r models.StudentPerformanceRecord) float64 {
	return (r.SlalomControl + r.LaneChangeControl) / 2
}

func rankAttempts(r models.StudentPerformanceRecord) int {
	return r.SlalomRunsUntilPass + r.LaneChangeRunsUntilPass
}

func stressMean(attempts []models.FinalExerciseAttempt, stress models.StressCondition) float64 {
	var sum float64
	var count int
	for _, a := range attempts {
		if a.Stress != stress {
			continue
		}
		sum += a.FinalResult
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func reverseMean(attempts []models.FinalExerciseAttempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range attempts {
		sum += a.RevPC
	}
	return sum / float64(len(attempts))
}

// preferValue picks the current-convention value, falling back to the legacy
// one when the current is zero or missing; both absent defaults to zero.
func preferValue(current, legacy float64) float64 {
	if current != 0 {
		return current
	}
	return legacy
}
