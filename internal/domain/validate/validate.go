// Package validate rejects out-of-range values before they reach the
// store. A value that fails here is never persisted and never retried.
package validate

import (
	"fmt"
	"math"
	"time"
)

// Accepted ranges for raw measurements, in canonical units.
const (
	MinWeightKg    = 20.0
	MaxWeightKg    = 500.0
	MinHeartRate   = 20
	MaxHeartRate   = 300
	MaxCalories    = 50000.0
	MaxDurationMin = 1440 // 24 hours
	MaxHydrationMl = 20000.0
)

// WeightKg checks a body-weight measurement.
func WeightKg(kg float64) error {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return fmt.Errorf("%w: weight must be a finite number", ErrValidation)
	}
	if kg < MinWeightKg || kg > MaxWeightKg {
		return fmt.Errorf("%w: weight %.1f kg outside [%v, %v]", ErrValidation, kg, MinWeightKg, MaxWeightKg)
	}
	return nil
}

// HeartRate checks a BPM reading.
func HeartRate(bpm float64) error {
	if bpm < MinHeartRate || bpm > MaxHeartRate {
		return fmt.Errorf("%w: heart rate %.0f bpm outside [%d, %d]", ErrValidation, bpm, MinHeartRate, MaxHeartRate)
	}
	return nil
}

// Calories checks an energy value.
func Calories(kcal float64) error {
	if math.IsNaN(kcal) || math.IsInf(kcal, 0) {
		return fmt.Errorf("%w: calories must be a finite number", ErrValidation)
	}
	if kcal < 0 || kcal > MaxCalories {
		return fmt.Errorf("%w: calories %.0f outside [0, %v]", ErrValidation, kcal, MaxCalories)
	}
	return nil
}

// DurationMinutes checks sleep and exercise durations.
func DurationMinutes(minutes float64) error {
	if minutes < 0 || minutes > MaxDurationMin {
		return fmt.Errorf("%w: duration %.0f min outside [0, %d]", ErrValidation, minutes, MaxDurationMin)
	}
	return nil
}

// HydrationMl checks a fluid intake entry.
func HydrationMl(ml float64) error {
	if ml <= 0 || ml > MaxHydrationMl {
		return fmt.Errorf("%w: hydration %.0f ml outside (0, %v]", ErrValidation, ml, MaxHydrationMl)
	}
	return nil
}

// HRVMs checks an RMSSD heart-rate-variability reading in milliseconds.
func HRVMs(ms float64) error {
	if ms <= 0 || ms >= 500 {
		return fmt.Errorf("%w: hrv %.1f ms outside (0, 500)", ErrValidation, ms)
	}
	return nil
}

// Percentage checks a 0-100 bounded value.
func Percentage(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return fmt.Errorf("%w: percentage %v outside [0, 100]", ErrValidation, v)
	}
	return nil
}

// SleepWindow checks that a sleep interval is ordered and at most a day.
func SleepWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: sleep end must be after start", ErrValidation)
	}
	if end.Sub(start) > 24*time.Hour {
		return fmt.Errorf("%w: sleep duration cannot exceed 24 hours", ErrValidation)
	}
	return nil
}
