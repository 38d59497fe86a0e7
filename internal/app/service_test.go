package app_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Fai/poc-fitness-assistant-ai/internal/adapters/repository"
	app "github.com/Fai/poc-fitness-assistant-ai/internal/app"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/goals"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/nutrition"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/units"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/validate"
	"github.com/Fai/poc-fitness-assistant-ai/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newEngine(opts ...app.Option) *app.Engine {
	return app.New(opts...)
}

func TestLogMeasurement(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()
		at := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)

		Convey("When logging a weight in pounds", func() {
			m, updated, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityWeight,
				RecordedAt: at,
				Value:      176.37,
				Unit:       "lbs",
			})
			So(err, ShouldBeNil)

			Convey("Then the stored value is canonical kilograms", func() {
				So(m.Unit, ShouldEqual, units.Kilograms)
				So(m.Value, ShouldAlmostEqual, 80.0, 0.01)
				So(m.ID, ShouldNotEqual, uuid.Nil)
				So(m.Source, ShouldEqual, model.SourceManual)
				So(updated, ShouldBeEmpty)
			})

			Convey("Then the measurement counts toward the store", func() {
				So(engine.MeasurementCount(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the unit is unknown", func() {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:   userID,
				Modality: model.ModalityWeight,
				Value:    80,
				Unit:     "furlongs",
			})
			So(errors.Is(err, units.ErrUnsupportedUnit), ShouldBeTrue)
			So(engine.MeasurementCount(ctx), ShouldEqual, 0)
		})

		Convey("When the value is out of range", func() {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:   userID,
				Modality: model.ModalityWeight,
				Value:    600,
				Unit:     "kg",
			})

			Convey("Then nothing is persisted", func() {
				So(errors.Is(err, validate.ErrValidation), ShouldBeTrue)
				So(engine.MeasurementCount(ctx), ShouldEqual, 0)
			})
		})

		Convey("When an explicit id is reused", func() {
			id := uuid.New()
			in := app.LogInput{
				ID:         id,
				UserID:     userID,
				Modality:   model.ModalityWeight,
				RecordedAt: at,
				Value:      80,
				Unit:       "kg",
			}
			_, _, err := engine.LogMeasurement(ctx, in)
			So(err, ShouldBeNil)

			_, _, err = engine.LogMeasurement(ctx, in)
			So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
			So(engine.MeasurementCount(ctx), ShouldEqual, 1)
		})
	})
}

func TestLogMeasurementGoalUpdates(t *testing.T) {
	Convey("Given an engine with an active weight-loss goal", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()
		at := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)

		g, err := engine.CreateGoal(ctx, goals.NewGoalInput{
			UserID:      userID,
			GoalType:    model.GoalWeight,
			Metric:      string(model.ModalityWeight),
			StartValue:  90,
			TargetValue: 80,
		})
		So(err, ShouldBeNil)

		Convey("When a measurement halfway to target arrives", func() {
			_, updated, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityWeight,
				RecordedAt: at,
				Value:      85,
				Unit:       "kg",
			})
			So(err, ShouldBeNil)

			Convey("Then the goal snapshot reflects the crossing", func() {
				So(len(updated), ShouldEqual, 1)
				So(updated[0].ID, ShouldEqual, g.ID)
				So(updated[0].CurrentValue, ShouldEqual, 85)
				So(updated[0].Milestones[0].AchievedAt, ShouldNotBeNil)
				So(updated[0].Milestones[1].AchievedAt, ShouldNotBeNil)
				So(updated[0].Milestones[2].AchievedAt, ShouldBeNil)
				So(updated[0].Status, ShouldEqual, model.StatusActive)
			})

			Convey("And the target arrives next", func() {
				_, updated, err := engine.LogMeasurement(ctx, app.LogInput{
					UserID:     userID,
					Modality:   model.ModalityWeight,
					RecordedAt: at.Add(time.Hour),
					Value:      80,
					Unit:       "kg",
				})
				So(err, ShouldBeNil)

				Convey("Then the goal completes", func() {
					So(len(updated), ShouldEqual, 1)
					So(updated[0].Status, ShouldEqual, model.StatusCompleted)
				})

				Convey("Then the stored goal matches the snapshot", func() {
					stored := engine.Goals(ctx, userID)
					So(len(stored), ShouldEqual, 1)
					So(stored[0].Status, ShouldEqual, model.StatusCompleted)
				})
			})
		})

		Convey("When the goal is paused first", func() {
			So(engine.PauseGoal(ctx, userID, g.ID), ShouldBeNil)

			_, updated, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityWeight,
				RecordedAt: at,
				Value:      85,
				Unit:       "kg",
			})
			So(err, ShouldBeNil)

			Convey("Then the measurement persists but the goal stays put", func() {
				So(updated, ShouldBeEmpty)
				So(engine.MeasurementCount(ctx), ShouldEqual, 1)
				stored := engine.Goals(ctx, userID)
				So(stored[0].CurrentValue, ShouldEqual, 90)
			})
		})
	})
}

// failingQueryStore wraps a working store but fails range queries, to
// force the derive step after a successful append to error.
type failingQueryStore struct {
	repository.Store
}

func (f *failingQueryStore) QueryRange(context.Context, uuid.UUID, model.Modality, time.Time, time.Time) ([]model.Measurement, error) {
	return nil, errors.New("storage offline")
}

func TestLogMeasurementRollback(t *testing.T) {
	Convey("Given a store whose reads fail after the append", t, func() {
		ctx := context.Background()
		inner := repository.NewMemStore()
		engine := newEngine(app.WithStore(&failingQueryStore{Store: inner}))
		userID := uuid.New()

		Convey("When logging a heart-rate reading", func() {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityHeartRate,
				RecordedAt: time.Now(),
				Value:      60,
				Unit:       "bpm",
			})

			Convey("Then the write is unwound with the failed derive", func() {
				So(err, ShouldNotBeNil)
				So(inner.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestRestingAnomalyFlagging(t *testing.T) {
	Convey("Given a week of steady resting heart-rate readings", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		engine := newEngine(app.WithStore(store))
		userID := uuid.New()
		base := time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC)

		for i := 0; i < 6; i++ {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityHeartRate,
				RecordedAt: base.AddDate(0, 0, i),
				Value:      60,
				Unit:       "bpm",
			})
			So(err, ShouldBeNil)
		}

		Convey("When a reading deviates more than 10% from baseline", func() {
			m, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityHeartRate,
				RecordedAt: base.AddDate(0, 0, 6),
				Value:      75,
				Unit:       "bpm",
			})
			So(err, ShouldBeNil)

			Convey("Then the stored row is flagged", func() {
				got, err := store.ByID(ctx, userID, m.ID)
				So(err, ShouldBeNil)
				So(got.IsAnomaly, ShouldBeTrue)
			})
		})

		Convey("When a reading stays near baseline", func() {
			m, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityHeartRate,
				RecordedAt: base.AddDate(0, 0, 6),
				Value:      62,
				Unit:       "bpm",
			})
			So(err, ShouldBeNil)

			got, err := store.ByID(ctx, userID, m.ID)
			So(err, ShouldBeNil)
			So(got.IsAnomaly, ShouldBeFalse)
		})
	})
}

func TestRecoveryScore(t *testing.T) {
	Convey("Given a week of HRV readings", t, func() {
		ctx := context.Background()
		base := time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC)
		engine := newEngine(app.WithClock(func() time.Time { return base.AddDate(0, 0, 6).Add(time.Hour) }))
		userID := uuid.New()

		for i, ms := range []float64{50, 50, 50, 50, 50, 50, 38} {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityHRV,
				RecordedAt: base.AddDate(0, 0, i),
				Value:      ms,
				Unit:       "ms",
			})
			So(err, ShouldBeNil)
		}

		Convey("When deriving the recovery score", func() {
			rec, err := engine.RecoveryScore(ctx, userID)
			So(err, ShouldBeNil)

			Convey("Then the latest reading is scored against the window average", func() {
				So(rec.Current, ShouldEqual, 38)
				So(rec.Baseline, ShouldAlmostEqual, 48.29, 0.01)
				So(rec.Score, ShouldAlmostEqual, 78.7, 0.1)
				So(rec.Status, ShouldEqual, "good")
			})
		})

		Convey("When the user has no HRV data", func() {
			_, err := engine.RecoveryScore(ctx, uuid.New())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestDailySummary(t *testing.T) {
	Convey("Given calories logged across two days", t, func() {
		ctx := context.Background()
		day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
		engine := newEngine(app.WithClock(func() time.Time { return day.AddDate(0, 0, 8) }))
		userID := uuid.New()

		for _, in := range []struct {
			at   time.Time
			kcal float64
		}{
			{day.Add(8 * time.Hour), 450},
			{day.Add(13 * time.Hour), 700},
			{day.Add(19 * time.Hour), 600},
			{day.AddDate(0, 0, 1).Add(8 * time.Hour), 500},
		} {
			_, _, err := engine.LogMeasurement(ctx, app.LogInput{
				UserID:     userID,
				Modality:   model.ModalityNutrition,
				RecordedAt: in.at,
				Value:      in.kcal,
				Unit:       "kcal",
			})
			So(err, ShouldBeNil)
		}

		Convey("When summarizing the first day", func() {
			s, err := engine.DailySummary(ctx, userID, model.ModalityNutrition, day.Add(10*time.Hour))
			So(err, ShouldBeNil)

			Convey("Then only that day's entries fold in", func() {
				So(s.Total, ShouldEqual, 1750)
				So(s.EntryCount, ShouldEqual, 3)
				So(s.FirstEntry, ShouldEqual, day.Add(8*time.Hour))
				So(s.LastEntry, ShouldEqual, day.Add(19*time.Hour))
			})

			Convey("Then re-deriving yields the same summary", func() {
				again, err := engine.DailySummary(ctx, userID, model.ModalityNutrition, day)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, s)
			})
		})

		Convey("When summarizing a day with no entries", func() {
			s, err := engine.DailySummary(ctx, userID, model.ModalityNutrition, day.AddDate(0, 0, 7))
			So(err, ShouldBeNil)
			So(s.EntryCount, ShouldEqual, 0)
			So(s.Total, ShouldEqual, 0)
		})
	})

	Convey("Given a capped summary age", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		engine := newEngine(
			app.WithSummaryMaxAge(30),
			app.WithClock(func() time.Time { return now }),
		)
		userID := uuid.New()

		Convey("Then dates past the cap are rejected", func() {
			_, err := engine.DailySummary(ctx, userID, model.ModalityNutrition, now.AddDate(0, 0, -31))
			So(errors.Is(err, validate.ErrValidation), ShouldBeTrue)
		})

		Convey("Then dates inside the cap are served", func() {
			_, err := engine.DailySummary(ctx, userID, model.ModalityNutrition, now.AddDate(0, 0, -29))
			So(err, ShouldBeNil)
		})
	})
}

func TestRecipes(t *testing.T) {
	Convey("Given an engine and a recipe", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()
		per := func(n model.Nutrients) *model.Nutrients { return &n }

		recipe := model.Recipe{
			UserID:   userID,
			Name:     "overnight oats",
			Servings: 2,
			Ingredients: []model.RecipeIngredient{
				{FoodItemID: uuid.New(), Servings: 1, Per: per(model.Nutrients{Calories: 300, ProteinG: 10})},
				{FoodItemID: uuid.New(), Servings: 2, Per: per(model.Nutrients{Calories: 50, ProteinG: 5})},
			},
		}

		Convey("When registering it", func() {
			stored, err := engine.PutRecipe(ctx, recipe)
			So(err, ShouldBeNil)

			Convey("Then per-serving totals are derived immediately", func() {
				So(stored.PerServing.Calories, ShouldEqual, 200) // (300 + 100) / 2
				So(stored.PerServing.ProteinG, ShouldEqual, 10)
			})

			Convey("And recomputing again is idempotent", func() {
				totals, err := engine.RecomputeRecipe(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(totals, ShouldResemble, stored.PerServing)
			})

			Convey("And mutating the servings recomputes atomically", func() {
				totals, err := engine.MutateRecipe(ctx, stored.ID, func(r *model.Recipe) {
					r.Servings = 4
				})
				So(err, ShouldBeNil)
				So(totals.Calories, ShouldEqual, 100)

				got, err := engine.Recipe(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(got.Servings, ShouldEqual, 4)
				So(got.PerServing.Calories, ShouldEqual, 100)
			})

			Convey("And a mutation that breaks an ingredient reference is discarded whole", func() {
				_, err := engine.MutateRecipe(ctx, stored.ID, func(r *model.Recipe) {
					r.Servings = 8
					r.Ingredients = append(r.Ingredients, model.RecipeIngredient{
						FoodItemID: uuid.New(),
					})
				})
				So(errors.Is(err, nutrition.ErrInconsistentReference), ShouldBeTrue)

				got, err := engine.Recipe(ctx, stored.ID)
				So(err, ShouldBeNil)

				Convey("Then neither the membership change nor totals moved", func() {
					So(got.Servings, ShouldEqual, 2)
					So(len(got.Ingredients), ShouldEqual, 2)
					So(got.PerServing.Calories, ShouldEqual, 200)
				})
			})
		})

		Convey("When recomputing an unknown recipe", func() {
			_, err := engine.RecomputeRecipe(ctx, uuid.New())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestGoalLifecycleThroughEngine(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()

		g, err := engine.CreateGoal(ctx, goals.NewGoalInput{
			UserID:      userID,
			GoalType:    model.GoalWeight,
			Metric:      string(model.ModalityWeight),
			StartValue:  90,
			TargetValue: 80,
		})
		So(err, ShouldBeNil)

		Convey("Then a second active weight goal conflicts", func() {
			_, err := engine.CreateGoal(ctx, goals.NewGoalInput{
				UserID:      userID,
				GoalType:    model.GoalWeight,
				Metric:      string(model.ModalityWeight),
				StartValue:  90,
				TargetValue: 85,
			})
			So(errors.Is(err, goals.ErrConflict), ShouldBeTrue)
		})

		Convey("Then abandoning the first unblocks a replacement", func() {
			So(engine.AbandonGoal(ctx, userID, g.ID), ShouldBeNil)

			replacement, err := engine.CreateGoal(ctx, goals.NewGoalInput{
				UserID:      userID,
				GoalType:    model.GoalWeight,
				Metric:      string(model.ModalityWeight),
				StartValue:  90,
				TargetValue: 85,
			})
			So(err, ShouldBeNil)
			So(replacement.Status, ShouldEqual, model.StatusActive)
			So(len(engine.Goals(ctx, userID)), ShouldEqual, 2)
		})

		Convey("Then transitions on unknown goals fail with not-found", func() {
			err := engine.PauseGoal(ctx, userID, uuid.New())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestBiomarkers(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()
		testDate := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

		Convey("When classifying a value directly", func() {
			band, err := engine.Classify(ctx, "glucose_fasting", 110)
			So(err, ShouldBeNil)
			So(band, ShouldEqual, model.BandHigh)
		})

		Convey("When logging a lab result", func() {
			entry, err := engine.LogBiomarker(ctx, userID, "hdl_cholesterol", 45, testDate)
			So(err, ShouldBeNil)

			Convey("Then the classification is derived, not supplied", func() {
				So(entry.Classification, ShouldEqual, model.BandLow)
				So(entry.Biomarker, ShouldEqual, "hdl_cholesterol")
			})

			Convey("Then history returns it", func() {
				history := engine.BiomarkerHistory(ctx, userID)
				So(len(history), ShouldEqual, 1)
				So(history[0].Value, ShouldEqual, 45)
			})
		})

		Convey("When the biomarker is unknown", func() {
			_, err := engine.LogBiomarker(ctx, userID, "midichlorians", 1, testDate)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestZoneProfiles(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()

		Convey("When setting a karvonen profile", func() {
			resting := 60
			p, err := engine.SetZoneProfile(ctx, userID, 190, &resting, model.MethodKarvonen)
			So(err, ShouldBeNil)

			Convey("Then all five zones come back computed", func() {
				So(p.Zones[0].MinBPM, ShouldEqual, 125)
				So(p.Zones[0].MaxBPM, ShouldEqual, 138)
				So(p.Zones[4].MaxBPM, ShouldEqual, 190)
			})

			Convey("Then the stored profile matches", func() {
				got, err := engine.ZoneProfile(ctx, userID)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, p)
			})

			Convey("And a failed recomputation keeps the prior profile", func() {
				_, err := engine.SetZoneProfile(ctx, userID, 185, nil, model.MethodKarvonen)
				So(err, ShouldNotBeNil)

				got, err := engine.ZoneProfile(ctx, userID)
				So(err, ShouldBeNil)
				So(got.MaxHeartRate, ShouldEqual, 190)
			})
		})

		Convey("When no method is specified", func() {
			p, err := engine.SetZoneProfile(ctx, userID, 190, nil, "")

			Convey("Then the configured default applies", func() {
				So(err, ShouldBeNil)
				So(p.Method, ShouldEqual, model.MethodPercentage)
				So(p.Zones[0].MinBPM, ShouldEqual, 95)
			})
		})

		Convey("When no profile exists", func() {
			_, err := engine.ZoneProfile(ctx, uuid.New())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestDeleteUser(t *testing.T) {
	Convey("Given a user with data across every registry", t, func() {
		ctx := context.Background()
		engine := newEngine()
		userID := uuid.New()
		other := uuid.New()

		_, _, err := engine.LogMeasurement(ctx, app.LogInput{
			UserID:     userID,
			Modality:   model.ModalityWeight,
			RecordedAt: time.Now(),
			Value:      80,
			Unit:       "kg",
		})
		So(err, ShouldBeNil)

		_, err = engine.CreateGoal(ctx, goals.NewGoalInput{
			UserID:      userID,
			GoalType:    model.GoalWeight,
			Metric:      string(model.ModalityWeight),
			StartValue:  80,
			TargetValue: 75,
		})
		So(err, ShouldBeNil)

		_, err = engine.LogBiomarker(ctx, userID, "crp", 1.0, time.Now())
		So(err, ShouldBeNil)

		_, _, err = engine.LogMeasurement(ctx, app.LogInput{
			UserID:     other,
			Modality:   model.ModalityWeight,
			RecordedAt: time.Now(),
			Value:      70,
			Unit:       "kg",
		})
		So(err, ShouldBeNil)

		Convey("When deleting the user", func() {
			So(engine.DeleteUser(ctx, userID), ShouldBeNil)

			Convey("Then all their data cascades away", func() {
				So(engine.MeasurementCount(ctx), ShouldEqual, 1)
				So(engine.Goals(ctx, userID), ShouldBeEmpty)
				So(engine.BiomarkerHistory(ctx, userID), ShouldBeEmpty)
			})
		})
	})
}
