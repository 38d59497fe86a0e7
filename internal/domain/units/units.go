// Package units normalizes arbitrary-unit inputs to canonical SI values
// before they enter the engine. All storage uses canonical units; callers
// convert for display at the API boundary, not here.
package units

import (
	"fmt"
	"strings"
)

// Canonical unit names used for stored values.
const (
	Kilograms      = "kg"
	Milliliters    = "ml"
	Minutes        = "min"
	Kilocalories   = "kcal"
	Grams          = "g"
	BeatsPerMinute = "bpm"
	Milliseconds   = "ms"
)

// Conversion factors, matching the reference data the stored logs were
// produced with.
const (
	lbsPerKg      = 0.453592
	stonePerKg    = 6.35029
	flOzPerMl     = 29.5735
	kJPerKcal     = 4.184
	ozPerGram     = 28.3495
	cupMl         = 236.588
	litersPerMl   = 1000.0
	hoursPerMin   = 60.0
	secondsPerMin = 60.0
)

// Canonical is a value expressed in its canonical SI unit.
type Canonical struct {
	Value float64
	Unit  string
}

type conversion struct {
	canonical string
	factor    float64
}

// Unit spellings accepted on input. Keys are lowercase; Normalize folds
// case before lookup.
var table = map[string]conversion{
	// mass (body weight)
	"kg":        {Kilograms, 1},
	"kilogram":  {Kilograms, 1},
	"kilograms": {Kilograms, 1},
	"lb":        {Kilograms, lbsPerKg},
	"lbs":       {Kilograms, lbsPerKg},
	"pound":     {Kilograms, lbsPerKg},
	"pounds":    {Kilograms, lbsPerKg},
	"st":        {Kilograms, stonePerKg},
	"stone":     {Kilograms, stonePerKg},
	"stones":    {Kilograms, stonePerKg},

	// volume (hydration)
	"ml":          {Milliliters, 1},
	"milliliter":  {Milliliters, 1},
	"milliliters": {Milliliters, 1},
	"l":           {Milliliters, litersPerMl},
	"liter":       {Milliliters, litersPerMl},
	"liters":      {Milliliters, litersPerMl},
	"fl_oz":       {Milliliters, flOzPerMl},
	"floz":        {Milliliters, flOzPerMl},
	"cup":         {Milliliters, cupMl},
	"cups":        {Milliliters, cupMl},

	// duration (sleep, exercise)
	"min":     {Minutes, 1},
	"minute":  {Minutes, 1},
	"minutes": {Minutes, 1},
	"h":       {Minutes, hoursPerMin},
	"hr":      {Minutes, hoursPerMin},
	"hour":    {Minutes, hoursPerMin},
	"hours":   {Minutes, hoursPerMin},
	"s":       {Minutes, 1.0 / secondsPerMin},
	"sec":     {Minutes, 1.0 / secondsPerMin},
	"seconds": {Minutes, 1.0 / secondsPerMin},

	// energy
	"kcal":     {Kilocalories, 1},
	"calorie":  {Kilocalories, 1},
	"calories": {Kilocalories, 1},
	"kj":       {Kilocalories, 1.0 / kJPerKcal},

	// nutrient mass
	"g":     {Grams, 1},
	"gram":  {Grams, 1},
	"grams": {Grams, 1},
	"mg":    {Grams, 0.001},
	"oz":    {Grams, ozPerGram},
	"ounce": {Grams, ozPerGram},

	// heart rate
	"bpm": {BeatsPerMinute, 1},

	// HRV intervals
	"ms":           {Milliseconds, 1},
	"millisecond":  {Milliseconds, 1},
	"milliseconds": {Milliseconds, 1},
	"s_interval":   {Milliseconds, 1000},
}

// Normalize converts value from the declared unit to its canonical form.
// Unknown units fail with ErrUnsupportedUnit.
func Normalize(value float64, unit string) (Canonical, error) {
	conv, ok := table[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return Canonical{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return Canonical{Value: value * conv.factor, Unit: conv.canonical}, nil
}

// CanonicalFor reports the canonical unit a given input unit maps to.
func CanonicalFor(unit string) (string, error) {
	conv, ok := table[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return conv.canonical, nil
}
