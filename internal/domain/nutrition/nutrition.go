// Package nutrition recomputes derived nutrition aggregates: recipe
// per-serving totals and on-demand daily summaries. All computations are
// pure folds over their inputs so recomputing with unchanged inputs is
// bit-identical.
package nutrition

import (
	"fmt"
	"math"
	"time"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

// Nutrient fields are stored at two decimal places; every recompute
// rounds to this precision so repeated runs agree exactly.
const storedPrecision = 2

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithPrecision overrides the decimal precision of recomputed totals.
func WithPrecision(digits int) Option {
	return func(a *Aggregator) {
		if digits >= 0 {
			a.precision = digits
		}
	}
}

// Aggregator computes derived nutrition values.
type Aggregator struct {
	precision int
}

// New creates an Aggregator with default configuration.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{precision: storedPrecision}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute derives per-serving totals from the recipe's current
// ingredient set:
//
//	per_serving = sum(ingredient.Per * ingredient.Servings) / recipe.Servings
//
// A recipe with zero or negative servings resolves to all-zero totals.
// The recipe itself is not mutated; callers publish the result only after
// a nil error, leaving the prior committed totals untouched on failure.
func (a *Aggregator) Recompute(recipe *model.Recipe) (model.Nutrients, error) {
	var sum model.Nutrients
	for _, ing := range recipe.Ingredients {
		if ing.Per == nil {
			// Referential integrity is the store's job; a missing food
			// item here is a data fault, not a transient condition.
			return model.Nutrients{}, fmt.Errorf("%w: recipe %s ingredient %s",
				ErrInconsistentReference, recipe.ID, ing.FoodItemID)
		}
		sum.Calories += ing.Per.Calories * ing.Servings
		sum.ProteinG += ing.Per.ProteinG * ing.Servings
		sum.CarbsG += ing.Per.CarbsG * ing.Servings
		sum.FatG += ing.Per.FatG * ing.Servings
		sum.FiberG += ing.Per.FiberG * ing.Servings
	}

	if recipe.Servings <= 0 {
		return model.Nutrients{}, nil
	}

	return model.Nutrients{
		Calories: a.round(sum.Calories / recipe.Servings),
		ProteinG: a.round(sum.ProteinG / recipe.Servings),
		CarbsG:   a.round(sum.CarbsG / recipe.Servings),
		FatG:     a.round(sum.FatG / recipe.Servings),
		FiberG:   a.round(sum.FiberG / recipe.Servings),
	}, nil
}

func (a *Aggregator) round(v float64) float64 {
	scale := math.Pow(10, float64(a.precision))
	return math.Round(v*scale) / scale
}

// Summary is a read-time fold over one day's measurements for a modality.
// It is computed on demand and never materialized.
type Summary struct {
	Total      float64   `json:"total"`
	EntryCount int       `json:"entry_count"`
	FirstEntry time.Time `json:"first_entry"`
	LastEntry  time.Time `json:"last_entry"`
}

// DailySummary folds already-committed measurements into a Summary.
// The input is assumed to be a consistent snapshot for a single user,
// modality, and day, as returned by the store's range query.
func (a *Aggregator) DailySummary(measurements []model.Measurement) Summary {
	var s Summary
	for _, m := range measurements {
		s.Total += m.Value
		if s.EntryCount == 0 || m.RecordedAt.Before(s.FirstEntry) {
			s.FirstEntry = m.RecordedAt
		}
		if s.EntryCount == 0 || m.RecordedAt.After(s.LastEntry) {
			s.LastEntry = m.RecordedAt
		}
		s.EntryCount++
	}
	s.Total = a.round(s.Total)
	return s
}
