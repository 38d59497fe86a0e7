package classify

import (
	"fmt"
	"sync"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

func f(v float64) *float64 { return &v }

// catalog is the seeded biomarker reference data: process-wide, loaded
// once, no runtime mutation path. Thresholds are directional per marker,
// so nil entries are deliberate (HDL has no high boundary, cholesterol
// has no low one).
var (
	catalogOnce sync.Once
	catalog     []model.BiomarkerRange
	catalogIdx  map[string]model.BiomarkerRange
)

func seed() {
	catalog = []model.BiomarkerRange{
		{Name: "glucose_fasting", DisplayName: "Fasting Glucose", Category: "metabolic", Unit: "mg/dL",
			LowThreshold: f(54), OptimalMin: f(70), OptimalMax: f(99), HighThreshold: f(126)},
		{Name: "hba1c", DisplayName: "HbA1c", Category: "metabolic", Unit: "%",
			OptimalMax: f(5.6), HighThreshold: f(6.5)},
		{Name: "total_cholesterol", DisplayName: "Total Cholesterol", Category: "lipids", Unit: "mg/dL",
			OptimalMax: f(200), HighThreshold: f(240)},
		{Name: "ldl_cholesterol", DisplayName: "LDL Cholesterol", Category: "lipids", Unit: "mg/dL",
			OptimalMax: f(100), HighThreshold: f(160)},
		{Name: "hdl_cholesterol", DisplayName: "HDL Cholesterol", Category: "lipids", Unit: "mg/dL",
			LowThreshold: f(40), OptimalMin: f(60)},
		{Name: "triglycerides", DisplayName: "Triglycerides", Category: "lipids", Unit: "mg/dL",
			OptimalMax: f(150), HighThreshold: f(200)},
		{Name: "vitamin_d", DisplayName: "Vitamin D (25-OH)", Category: "vitamins", Unit: "ng/mL",
			LowThreshold: f(12), OptimalMin: f(30), OptimalMax: f(80), HighThreshold: f(150)},
		{Name: "ferritin", DisplayName: "Ferritin", Category: "minerals", Unit: "ng/mL",
			LowThreshold: f(12), OptimalMin: f(30), OptimalMax: f(300), HighThreshold: f(1000)},
		{Name: "tsh", DisplayName: "TSH", Category: "hormones", Unit: "mIU/L",
			LowThreshold: f(0.1), OptimalMin: f(0.4), OptimalMax: f(4.0), HighThreshold: f(10)},
		{Name: "crp", DisplayName: "C-Reactive Protein", Category: "inflammation", Unit: "mg/L",
			OptimalMax: f(3.0), HighThreshold: f(10)},
	}
	catalogIdx = make(map[string]model.BiomarkerRange, len(catalog))
	for _, r := range catalog {
		catalogIdx[r.Name] = r
	}
}

// Ranges returns the seeded reference catalog. Callers must treat the
// slice as read-only.
func Ranges() []model.BiomarkerRange {
	catalogOnce.Do(seed)
	return catalog
}

// RangeFor looks a biomarker up by name.
func RangeFor(name string) (model.BiomarkerRange, error) {
	catalogOnce.Do(seed)
	r, ok := catalogIdx[name]
	if !ok {
		return model.BiomarkerRange{}, fmt.Errorf("%w: %q", ErrUnknownBiomarker, name)
	}
	return r, nil
}
