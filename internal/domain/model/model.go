// Package model contains domain entities passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Modality identifies a tracked health dimension.
type Modality string

// Modalities match the stored enumeration exactly.
const (
	ModalityWeight    Modality = "weight"
	ModalityNutrition Modality = "nutrition"
	ModalityExercise  Modality = "exercise"
	ModalityHydration Modality = "hydration"
	ModalitySleep     Modality = "sleep"
	ModalityHeartRate Modality = "heart_rate"
	ModalityHRV       Modality = "hrv"
	ModalityBiomarker Modality = "biomarker"
)

// Source identifies where a measurement came from.
type Source string

const (
	SourceManual      Source = "manual"
	SourceAppleHealth Source = "apple_health"
	SourceGarmin      Source = "garmin"
	SourceOura        Source = "oura"
	SourceWhoop       Source = "whoop"
)

// Measurement is one raw log entry. Immutable once stored; IsAnomaly is
// set post-hoc by the engine, never by the writer.
type Measurement struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Modality   Modality  `json:"modality"`
	RecordedAt time.Time `json:"recorded_at"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Source     Source    `json:"source"`
	IsAnomaly  bool      `json:"is_anomaly"`
}

// Nutrients holds per-serving macro totals at fixed two-decimal precision.
type Nutrients struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
}

// RecipeIngredient is one row of a recipe's ordered ingredient set.
// Per carries the referenced food item's nutrients for a single serving.
type RecipeIngredient struct {
	FoodItemID uuid.UUID  `json:"food_item_id"`
	Servings   float64    `json:"servings"`
	SortOrder  int        `json:"sort_order"`
	Per        *Nutrients `json:"per"`
}

// Recipe owns its ingredients and derives PerServing from them.
type Recipe struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	Name        string             `json:"name"`
	Servings    float64            `json:"servings"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	PerServing  Nutrients          `json:"per_serving"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// GoalType categorizes goals; values match the stored enumeration.
type GoalType string

const (
	GoalWeight    GoalType = "weight"
	GoalExercise  GoalType = "exercise"
	GoalNutrition GoalType = "nutrition"
	GoalHydration GoalType = "hydration"
	GoalSleep     GoalType = "sleep"
	GoalCustom    GoalType = "custom"
)

// Direction says which way progress runs.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
)

// GoalStatus is the goal lifecycle state.
type GoalStatus string

const (
	StatusActive    GoalStatus = "active"
	StatusCompleted GoalStatus = "completed"
	StatusAbandoned GoalStatus = "abandoned"
	StatusPaused    GoalStatus = "paused"
)

// Terminal reports whether no further updates apply to a goal in this state.
func (s GoalStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Milestone is a percentage checkpoint on the way to a goal target.
// AchievedAt records the first crossing only and is never cleared.
type Milestone struct {
	TargetValue float64    `json:"target_value"`
	Percentage  int        `json:"percentage"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty"`
	ActualValue *float64   `json:"actual_value,omitempty"`
}

// Goal tracks progress from StartValue toward TargetValue.
type Goal struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	GoalType     GoalType    `json:"goal_type"`
	Metric       string      `json:"metric"`
	TargetValue  float64     `json:"target_value"`
	StartValue   float64     `json:"start_value"`
	CurrentValue float64     `json:"current_value"`
	Direction    Direction   `json:"direction"`
	StartDate    time.Time   `json:"start_date"`
	TargetDate   *time.Time  `json:"target_date,omitempty"`
	Status       GoalStatus  `json:"status"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Milestones   []Milestone `json:"milestones"`
}

// Band is the qualitative classification of a biomarker value.
type Band string

const (
	BandCriticalLow  Band = "critical_low"
	BandLow          Band = "low"
	BandOptimal      Band = "optimal"
	BandHigh         Band = "high"
	BandCriticalHigh Band = "critical_high"
)

// BiomarkerRange is immutable reference data. Nil thresholds mean no
// boundary in that direction.
type BiomarkerRange struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Category      string   `json:"category"`
	Unit          string   `json:"unit"`
	LowThreshold  *float64 `json:"low_threshold,omitempty"`
	OptimalMin    *float64 `json:"optimal_min,omitempty"`
	OptimalMax    *float64 `json:"optimal_max,omitempty"`
	HighThreshold *float64 `json:"high_threshold,omitempty"`
}

// BiomarkerLog records one lab result. Classification is derived from the
// range definition, never user-supplied.
type BiomarkerLog struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Biomarker      string    `json:"biomarker"`
	Value          float64   `json:"value"`
	Classification Band      `json:"classification"`
	TestDate       time.Time `json:"test_date"`
}

// ZoneMethod selects the heart-rate zone formula.
type ZoneMethod string

const (
	MethodPercentage ZoneMethod = "percentage"
	MethodKarvonen   ZoneMethod = "karvonen"
)

// Zone is one training band in beats per minute.
type Zone struct {
	Zone   int    `json:"zone"`
	Name   string `json:"name"`
	MinBPM int    `json:"min_bpm"`
	MaxBPM int    `json:"max_bpm"`
}

// ZoneProfile holds a user's five training zones. Zones are recomputed in
// full whenever the inputs change, never partially.
type ZoneProfile struct {
	UserID           uuid.UUID  `json:"user_id"`
	MaxHeartRate     int        `json:"max_heart_rate"`
	RestingHeartRate *int       `json:"resting_heart_rate,omitempty"`
	Zones            [5]Zone    `json:"zones"`
	Method           ZoneMethod `json:"calculation_method"`
}
