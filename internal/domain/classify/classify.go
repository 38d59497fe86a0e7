// Package classify maps raw biomarker and heart-rate values to
// qualitative bands using reference ranges, and computes heart-rate
// training zones. Classification is deterministic and re-derivable at
// read time from the stored value plus the range definition.
package classify

import (
	"fmt"
	"math"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

// Band resolves value against the range by ordered threshold comparison.
// A nil threshold means no boundary in that direction; a range with no
// thresholds at all always classifies as optimal.
func Band(r model.BiomarkerRange, value float64) model.Band {
	if r.LowThreshold != nil && value < *r.LowThreshold {
		return model.BandCriticalLow
	}
	if r.OptimalMin != nil && value < *r.OptimalMin {
		return model.BandLow
	}
	if r.OptimalMax != nil && value > *r.OptimalMax {
		if r.HighThreshold != nil && value > *r.HighThreshold {
			return model.BandCriticalHigh
		}
		return model.BandHigh
	}
	// Ranges without an optimal_max still honor a bare high threshold.
	if r.HighThreshold != nil && value > *r.HighThreshold {
		return model.BandCriticalHigh
	}
	return model.BandOptimal
}

// zoneBands are the five fixed percent bands of heart-rate max (or
// reserve, for Karvonen). Configuration, not user input.
var zoneBands = [5]struct {
	name string
	lo   float64
	hi   float64
}{
	{"Recovery", 0.50, 0.60},
	{"Aerobic", 0.60, 0.70},
	{"Tempo", 0.70, 0.80},
	{"Threshold", 0.80, 0.90},
	{"VO2 Max", 0.90, 1.00},
}

// ComputeZones derives all five training zones from the profile. Zones
// are always recomputed in full. The karvonen method works on heart-rate
// reserve and requires a resting heart rate.
func ComputeZones(p model.ZoneProfile) ([5]model.Zone, error) {
	var zones [5]model.Zone

	boundary := func(pct float64) int {
		return int(math.Round(float64(p.MaxHeartRate) * pct))
	}
	switch p.Method {
	case model.MethodPercentage:
	case model.MethodKarvonen:
		if p.RestingHeartRate == nil {
			return zones, fmt.Errorf("%w: karvonen method needs a resting heart rate", ErrMissingRestingRate)
		}
		resting := float64(*p.RestingHeartRate)
		reserve := float64(p.MaxHeartRate) - resting
		boundary = func(pct float64) int {
			return int(math.Round(resting + reserve*pct))
		}
	default:
		return zones, fmt.Errorf("%w: calculation method %q", ErrMissingRestingRate, p.Method)
	}

	for i, b := range zoneBands {
		zones[i] = model.Zone{
			Zone:   i + 1,
			Name:   b.name,
			MinBPM: boundary(b.lo),
			MaxBPM: boundary(b.hi),
		}
	}
	return zones, nil
}

// ZoneSample is one heart-rate observation with its dwell time.
type ZoneSample struct {
	BPM             int
	DurationSeconds int
}

// ZoneTime reports time spent in one zone during a workout.
type ZoneTime struct {
	Zone            int     `json:"zone"`
	Name            string  `json:"name"`
	DurationSeconds int     `json:"duration_seconds"`
	Percentage      float64 `json:"percentage"`
}

// ZoneDistribution buckets samples into zones. Percentages are shares of
// total sample time; samples outside every zone count toward the total
// but no bucket.
func ZoneDistribution(samples []ZoneSample, zones [5]model.Zone) [5]ZoneTime {
	var times [5]int
	total := 0
	for _, s := range samples {
		total += s.DurationSeconds
		for i, z := range zones {
			if s.BPM >= z.MinBPM && s.BPM <= z.MaxBPM {
				times[i] += s.DurationSeconds
				break
			}
		}
	}

	var out [5]ZoneTime
	for i, z := range zones {
		pct := 0.0
		if total > 0 {
			pct = float64(times[i]) / float64(total) * 100
		}
		out[i] = ZoneTime{
			Zone:            z.Zone,
			Name:            z.Name,
			DurationSeconds: times[i],
			Percentage:      pct,
		}
	}
	return out
}

// Recovery is an HRV-derived readiness estimate.
type Recovery struct {
	Score    float64 `json:"score"`
	Current  float64 `json:"hrv_current"`
	Baseline float64 `json:"hrv_baseline"`
	Status   string  `json:"status"`
}

// RecoveryScore normalizes the current HRV reading against its baseline:
// a ratio of 1.0 scores 100, clamped to [0, 100]. Without a usable
// baseline the score is neutral.
func RecoveryScore(current, baseline float64) float64 {
	if baseline <= 0 {
		return 50
	}
	score := current / baseline * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RecoveryStatus maps a recovery score onto its qualitative label.
func RecoveryStatus(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "moderate"
	case score >= 20:
		return "low"
	default:
		return "poor"
	}
}

// restingAnomalyThreshold flags resting heart-rate readings deviating
// more than 10% from baseline.
const restingAnomalyThreshold = 0.10

// DetectRestingAnomaly compares a resting heart-rate reading against a
// baseline and returns the deviation percent and whether it crosses the
// anomaly threshold. A non-positive baseline never flags.
func DetectRestingAnomaly(current, baseline float64) (float64, bool) {
	if baseline <= 0 {
		return 0, false
	}
	deviation := math.Abs((current - baseline) / baseline)
	return deviation * 100, deviation > restingAnomalyThreshold
}
