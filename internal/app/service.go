// Package app provides the engine facade that composes the unit
// normalizer, measurement store, aggregation engine, goal tracker, and
// classification engine into a single request surface for the API layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fai/poc-fitness-assistant-ai/internal/adapters/repository"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/classify"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/goals"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/nutrition"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/units"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/validate"
	"github.com/Fai/poc-fitness-assistant-ai/pkg/logger"
	"github.com/Fai/poc-fitness-assistant-ai/pkg/metrics"
)

// anomalyBaselineDays is the lookback window for the resting heart-rate
// baseline used to flag anomalous readings.
const anomalyBaselineDays = 7

// defaultSummaryMaxAgeDays caps how far back daily summary queries reach.
const defaultSummaryMaxAgeDays = 366

// Engine is the request-driven facade. Every operation is synchronous;
// the engine owns no background goroutines. Derived aggregates (recipe
// totals, goal progress, zone profiles) are serialized per owning entity
// through striped key locks so independent users never block each other.
//
// Lock order, where more than one is held: user write lock, then goal
// lock, then the registry mutex. Each lock family is a separate stripe
// set, so keys from different families can never share a mutex.
type Engine struct {
	store      repository.Store
	aggregator *nutrition.Aggregator
	tracker    *goals.Tracker

	userLocks    *keyLock // serializes a user's measurement writes
	goalLocks    *keyLock // serializes a user's goal set
	recipeLocks  *keyLock // serializes one recipe's derived totals
	profileLocks *keyLock // serializes one user's zone profile

	// Derived-aggregate registries. The registry mutex guards only map
	// access; entity mutation happens under the per-entity locks above.
	mu       sync.RWMutex
	recipes  map[uuid.UUID]*model.Recipe
	goals    map[uuid.UUID][]*model.Goal // keyed by user
	profiles map[uuid.UUID]*model.ZoneProfile
	labs     map[uuid.UUID][]model.BiomarkerLog

	summaryMaxAgeDays int
	defaultZoneMethod model.ZoneMethod

	now     func() time.Time
	log     logger.Logger
	logOnce sync.Once
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStore sets the measurement store.
func WithStore(s repository.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithTracker sets a configured goal tracker.
func WithTracker(t *goals.Tracker) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithAggregator sets a configured aggregation engine.
func WithAggregator(a *nutrition.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.aggregator = a
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSummaryMaxAge caps how many days back daily summaries may reach.
func WithSummaryMaxAge(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.summaryMaxAgeDays = days
		}
	}
}

// WithDefaultZoneMethod sets the zone formula used when a profile does
// not pick one.
func WithDefaultZoneMethod(m model.ZoneMethod) Option {
	return func(e *Engine) {
		if m != "" {
			e.defaultZoneMethod = m
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Engine with default collaborators.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:        repository.NewMemStore(),
		aggregator:   nutrition.New(),
		tracker:      goals.New(),
		userLocks:    newKeyLock(defaultStripes),
		goalLocks:    newKeyLock(defaultStripes),
		recipeLocks:  newKeyLock(defaultStripes),
		profileLocks: newKeyLock(defaultStripes),
		recipes:      make(map[uuid.UUID]*model.Recipe),
		goals:        make(map[uuid.UUID][]*model.Goal),
		profiles:     make(map[uuid.UUID]*model.ZoneProfile),
		labs:         make(map[uuid.UUID][]model.BiomarkerLog),

		summaryMaxAgeDays: defaultSummaryMaxAgeDays,
		defaultZoneMethod: model.MethodPercentage,

		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() logger.Logger {
	e.logOnce.Do(func() {
		if e.log == nil {
			e.log = logger.Get().Named("engine")
		}
	})
	return e.log
}

// LogInput carries one raw measurement in caller units.
type LogInput struct {
	ID         uuid.UUID // zero = generated
	UserID     uuid.UUID
	Modality   model.Modality
	RecordedAt time.Time
	Value      float64
	Unit       string
	Source     model.Source
}

// LogMeasurement runs the full write path: normalize, validate, append,
// re-evaluate the user's goals, and flag heart-rate anomalies. The raw
// log and its derived updates commit together: any failure after the
// append unwinds it, so no committed measurement is ever unreflected.
// Returns the stored measurement and snapshots of the goals it changed.
func (e *Engine) LogMeasurement(ctx context.Context, in LogInput) (model.Measurement, []model.Goal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	canonical, err := units.Normalize(in.Value, in.Unit)
	if err != nil {
		return model.Measurement{}, nil, err
	}
	if err := validateValue(in.Modality, canonical.Value); err != nil {
		metrics.RecordValidationRejection()
		return model.Measurement{}, nil, err
	}

	m := model.Measurement{
		ID:         in.ID,
		UserID:     in.UserID,
		Modality:   in.Modality,
		RecordedAt: in.RecordedAt,
		Value:      canonical.Value,
		Unit:       canonical.Unit,
		Source:     in.Source,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = e.now()
	}
	if m.Source == "" {
		m.Source = model.SourceManual
	}

	// Writes for one user are serialized; other users' writes land on
	// different stripes and different store shards.
	unlockUser := e.userLocks.lock(m.UserID.String())
	defer unlockUser()

	if err := e.store.Append(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			metrics.RecordDuplicateWrite()
		}
		return model.Measurement{}, nil, fmt.Errorf("append measurement: %w", err)
	}

	updated, err := e.deriveAfterWrite(ctx, m)
	if err != nil {
		// Unwind the append so the raw log and the derived state stay
		// consistent with each other.
		if delErr := e.store.Delete(ctx, m.UserID, m.ID); delErr != nil {
			e.logger().Error(ctx, "rollback failed; measurement left unreflected",
				logger.String("measurement", m.ID.String()),
				logger.Error(delErr),
			)
		}
		return model.Measurement{}, nil, err
	}

	metrics.RecordMeasurementLogged(string(m.Modality))
	metrics.UpdateStoreSize(e.store.Count(ctx))
	return m, updated, nil
}

// deriveAfterWrite applies every derived update that hangs off a new
// measurement. Called with the user's write lock held.
func (e *Engine) deriveAfterWrite(ctx context.Context, m model.Measurement) ([]model.Goal, error) {
	unlockGoals := e.goalLocks.lock(m.UserID.String())
	defer unlockGoals()

	e.mu.RLock()
	userGoals := e.goals[m.UserID]
	e.mu.RUnlock()

	var updated []model.Goal
	for _, g := range userGoals {
		wasComplete := g.Status == model.StatusCompleted
		before := unachievedCount(g)
		if e.tracker.ApplyMeasurement(g, m) {
			for i := 0; i < before-unachievedCount(g); i++ {
				metrics.RecordMilestoneCrossing()
			}
			if !wasComplete && g.Status == model.StatusCompleted {
				metrics.RecordGoalCompletion()
				e.logger().Info(ctx, "goal completed",
					logger.String("goal", g.ID.String()),
					logger.Float64("value", g.CurrentValue),
				)
			}
			snap := *g
			snap.Milestones = append([]model.Milestone(nil), g.Milestones...)
			updated = append(updated, snap)
		}
	}

	if m.Modality == model.ModalityHeartRate {
		if err := e.flagRestingAnomaly(ctx, m); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func unachievedCount(g *model.Goal) int {
	n := 0
	for _, ms := range g.Milestones {
		if ms.AchievedAt == nil {
			n++
		}
	}
	return n
}

// flagRestingAnomaly compares the reading against the user's recent
// baseline and marks the stored row when it deviates past the threshold.
func (e *Engine) flagRestingAnomaly(ctx context.Context, m model.Measurement) error {
	from := m.RecordedAt.AddDate(0, 0, -anomalyBaselineDays)
	history, err := e.store.QueryRange(ctx, m.UserID, model.ModalityHeartRate, from, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("query heart-rate baseline: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.Value
	}
	baseline := sum / float64(len(history))

	if _, anomaly := classify.DetectRestingAnomaly(m.Value, baseline); anomaly {
		if err := e.store.MarkAnomaly(ctx, m.UserID, m.ID, true); err != nil {
			return fmt.Errorf("mark anomaly: %w", err)
		}
		e.logger().Warn(ctx, "heart-rate reading flagged as anomaly",
			logger.String("measurement", m.ID.String()),
			logger.Float64("bpm", m.Value),
			logger.Float64("baseline", baseline),
		)
	}
	return nil
}

func validateValue(modality model.Modality, canonical float64) error {
	switch modality {
	case model.ModalityWeight:
		return validate.WeightKg(canonical)
	case model.ModalityHeartRate:
		return validate.HeartRate(canonical)
	case model.ModalityNutrition:
		return validate.Calories(canonical)
	case model.ModalityHydration:
		return validate.HydrationMl(canonical)
	case model.ModalitySleep, model.ModalityExercise:
		return validate.DurationMinutes(canonical)
	case model.ModalityHRV:
		return validate.HRVMs(canonical)
	default:
		return nil
	}
}

// DailySummary folds one day's committed measurements on demand. Nothing
// is materialized; repeated calls re-derive from the store.
func (e *Engine) DailySummary(ctx context.Context, userID uuid.UUID, modality model.Modality, date time.Time) (nutrition.Summary, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if e.now().Sub(dayStart) > time.Duration(e.summaryMaxAgeDays)*24*time.Hour {
		return nutrition.Summary{}, fmt.Errorf("%w: date %s older than %d days",
			validate.ErrValidation, dayStart.Format("2006-01-02"), e.summaryMaxAgeDays)
	}
	rows, err := e.store.QueryRange(ctx, userID, modality, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nutrition.Summary{}, fmt.Errorf("query day: %w", err)
	}
	metrics.RecordSummaryQuery()
	return e.aggregator.DailySummary(rows), nil
}

// PutRecipe registers a recipe and computes its initial totals.
func (e *Engine) PutRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	unlock := e.recipeLocks.lock(r.ID.String())
	defer unlock()

	totals, err := e.recompute(ctx, &r)
	if err != nil {
		return model.Recipe{}, err
	}
	r.PerServing = totals
	r.UpdatedAt = e.now()

	e.mu.Lock()
	e.recipes[r.ID] = &r
	e.mu.Unlock()
	return r, nil
}

// RecomputeRecipe re-derives per-serving totals from the current
// ingredient set. Idempotent; failure leaves the prior totals untouched.
func (e *Engine) RecomputeRecipe(ctx context.Context, recipeID uuid.UUID) (model.Nutrients, error) {
	unlock := e.recipeLocks.lock(recipeID.String())
	defer unlock()

	r, err := e.recipe(recipeID)
	if err != nil {
		return model.Nutrients{}, err
	}

	totals, err := e.recompute(ctx, r)
	if err != nil {
		return model.Nutrients{}, err
	}
	r.PerServing = totals
	r.UpdatedAt = e.now()
	return totals, nil
}

// MutateRecipe applies an ingredient or servings change and recomputes.
// The change and the new totals commit together: if recomputation fails,
// the membership change is discarded along with it.
func (e *Engine) MutateRecipe(ctx context.Context, recipeID uuid.UUID, mutate func(*model.Recipe)) (model.Nutrients, error) {
	unlock := e.recipeLocks.lock(recipeID.String())
	defer unlock()

	r, err := e.recipe(recipeID)
	if err != nil {
		return model.Nutrients{}, err
	}

	draft := *r
	draft.Ingredients = append([]model.RecipeIngredient(nil), r.Ingredients...)
	mutate(&draft)

	totals, err := e.recompute(ctx, &draft)
	if err != nil {
		return model.Nutrients{}, err
	}
	draft.PerServing = totals
	draft.UpdatedAt = e.now()

	e.mu.Lock()
	e.recipes[recipeID] = &draft
	e.mu.Unlock()
	return totals, nil
}

// Recipe returns a snapshot of a registered recipe.
func (e *Engine) Recipe(_ context.Context, recipeID uuid.UUID) (model.Recipe, error) {
	unlock := e.recipeLocks.lock(recipeID.String())
	defer unlock()

	r, err := e.recipe(recipeID)
	if err != nil {
		return model.Recipe{}, err
	}
	snap := *r
	snap.Ingredients = append([]model.RecipeIngredient(nil), r.Ingredients...)
	return snap, nil
}

func (e *Engine) recipe(id uuid.UUID) (*model.Recipe, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: recipe %s", repository.ErrNotFound, id)
	}
	return r, nil
}

func (e *Engine) recompute(ctx context.Context, r *model.Recipe) (model.Nutrients, error) {
	start := time.Now()
	totals, err := e.aggregator.Recompute(r)
	metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRecomputeError()
		e.logger().Error(ctx, "recipe recompute failed; prior totals kept",
			logger.String("recipe", r.ID.String()),
			logger.Error(err),
		)
		return model.Nutrients{}, err
	}
	metrics.RecordRecipeRecompute()
	return totals, nil
}

// CreateGoal builds an active goal with default milestones, enforcing
// the single-active-goal constraint for uniquely-constrained types.
func (e *Engine) CreateGoal(ctx context.Context, in goals.NewGoalInput) (model.Goal, error) {
	unlock := e.goalLocks.lock(in.UserID.String())
	defer unlock()

	g, err := e.tracker.Create(in, e.goalSnapshots(in.UserID))
	if err != nil {
		if errors.Is(err, goals.ErrConflict) {
			metrics.RecordGoalConflict()
		}
		return model.Goal{}, err
	}

	e.mu.Lock()
	e.goals[in.UserID] = append(e.goals[in.UserID], &g)
	e.mu.Unlock()

	e.logger().Info(ctx, "goal created",
		logger.String("goal", g.ID.String()),
		logger.String("type", string(g.GoalType)),
	)
	snap := g
	snap.Milestones = append([]model.Milestone(nil), g.Milestones...)
	return snap, nil
}

// PauseGoal suspends an active goal.
func (e *Engine) PauseGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	return e.transition(ctx, userID, goalID, e.tracker.Pause)
}

// ResumeGoal reactivates a paused goal.
func (e *Engine) ResumeGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	return e.transition(ctx, userID, goalID, e.tracker.Resume)
}

// AbandonGoal terminally retires a goal.
func (e *Engine) AbandonGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	return e.transition(ctx, userID, goalID, e.tracker.Abandon)
}

func (e *Engine) transition(_ context.Context, userID, goalID uuid.UUID, apply func(*model.Goal) error) error {
	unlock := e.goalLocks.lock(userID.String())
	defer unlock()

	e.mu.RLock()
	userGoals := e.goals[userID]
	e.mu.RUnlock()

	for _, g := range userGoals {
		if g.ID == goalID {
			return apply(g)
		}
	}
	return fmt.Errorf("%w: goal %s", repository.ErrNotFound, goalID)
}

// Goals returns snapshots of a user's goals.
func (e *Engine) Goals(_ context.Context, userID uuid.UUID) []model.Goal {
	unlock := e.goalLocks.lock(userID.String())
	defer unlock()
	return e.goalSnapshots(userID)
}

// goalSnapshots copies the user's goals. Callers hold the user's goal
// lock so milestone slices are stable while copied.
func (e *Engine) goalSnapshots(userID uuid.UUID) []model.Goal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Goal, 0, len(e.goals[userID]))
	for _, g := range e.goals[userID] {
		snap := *g
		snap.Milestones = append([]model.Milestone(nil), g.Milestones...)
		out = append(out, snap)
	}
	return out
}

// Classify maps a biomarker value onto its reference range band.
func (e *Engine) Classify(_ context.Context, biomarker string, value float64) (model.Band, error) {
	r, err := classify.RangeFor(biomarker)
	if err != nil {
		return "", err
	}
	metrics.RecordClassification()
	return classify.Band(r, value), nil
}

// LogBiomarker records a lab result with its derived classification.
// The classification is re-derivable from the stored value and the range
// definition at any time.
func (e *Engine) LogBiomarker(_ context.Context, userID uuid.UUID, biomarker string, value float64, testDate time.Time) (model.BiomarkerLog, error) {
	r, err := classify.RangeFor(biomarker)
	if err != nil {
		return model.BiomarkerLog{}, err
	}

	entry := model.BiomarkerLog{
		ID:             uuid.New(),
		UserID:         userID,
		Biomarker:      r.Name,
		Value:          value,
		Classification: classify.Band(r, value),
		TestDate:       testDate,
	}

	e.mu.Lock()
	e.labs[userID] = append(e.labs[userID], entry)
	e.mu.Unlock()

	metrics.RecordClassification()
	return entry, nil
}

// BiomarkerHistory returns a user's lab results.
func (e *Engine) BiomarkerHistory(_ context.Context, userID uuid.UUID) []model.BiomarkerLog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.BiomarkerLog(nil), e.labs[userID]...)
}

// SetZoneProfile recomputes and stores a user's training zones. Zones
// are always replaced in full; a failed computation leaves any prior
// profile untouched.
func (e *Engine) SetZoneProfile(ctx context.Context, userID uuid.UUID, maxHR int, restingHR *int, method model.ZoneMethod) (model.ZoneProfile, error) {
	unlock := e.profileLocks.lock(userID.String())
	defer unlock()

	if method == "" {
		method = e.defaultZoneMethod
	}
	p := model.ZoneProfile{
		UserID:           userID,
		MaxHeartRate:     maxHR,
		RestingHeartRate: restingHR,
		Method:           method,
	}
	zones, err := classify.ComputeZones(p)
	if err != nil {
		return model.ZoneProfile{}, err
	}
	p.Zones = zones

	e.mu.Lock()
	e.profiles[userID] = &p
	e.mu.Unlock()

	metrics.RecordZoneComputation()
	e.logger().Info(ctx, "zone profile updated",
		logger.String("user", userID.String()),
		logger.String("method", string(method)),
	)
	return p, nil
}

// ZoneProfile returns the user's current zone profile.
func (e *Engine) ZoneProfile(_ context.Context, userID uuid.UUID) (model.ZoneProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.profiles[userID]
	if !ok {
		return model.ZoneProfile{}, fmt.Errorf("%w: zone profile for %s", repository.ErrNotFound, userID)
	}
	return *p, nil
}

// RecoveryScore derives a readiness estimate from the user's latest HRV
// reading against their recent baseline. Read-only; nothing is stored.
func (e *Engine) RecoveryScore(ctx context.Context, userID uuid.UUID) (classify.Recovery, error) {
	now := e.now()
	rows, err := e.store.QueryRange(ctx, userID, model.ModalityHRV, now.AddDate(0, 0, -anomalyBaselineDays), now)
	if err != nil {
		return classify.Recovery{}, fmt.Errorf("query hrv baseline: %w", err)
	}
	if len(rows) == 0 {
		return classify.Recovery{}, fmt.Errorf("%w: no hrv data for %s", repository.ErrNotFound, userID)
	}

	current := rows[len(rows)-1].Value
	var sum float64
	for _, r := range rows {
		sum += r.Value
	}
	baseline := sum / float64(len(rows))

	score := classify.RecoveryScore(current, baseline)
	return classify.Recovery{
		Score:    score,
		Current:  current,
		Baseline: baseline,
		Status:   classify.RecoveryStatus(score),
	}, nil
}

// MeasurementCount reports the number of stored measurements across all
// users, for readiness and ops surfaces.
func (e *Engine) MeasurementCount(ctx context.Context) int {
	return e.store.Count(ctx)
}

// DeleteUser cascades: the user's measurements and every derived entity
// the engine owns for them are removed together.
func (e *Engine) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	unlockUser := e.userLocks.lock(userID.String())
	defer unlockUser()
	unlockGoals := e.goalLocks.lock(userID.String())
	defer unlockGoals()

	if err := e.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user measurements: %w", err)
	}

	e.mu.Lock()
	delete(e.goals, userID)
	delete(e.profiles, userID)
	delete(e.labs, userID)
	for id, r := range e.recipes {
		if r.UserID == userID {
			delete(e.recipes, id)
		}
	}
	e.mu.Unlock()

	metrics.UpdateStoreSize(e.store.Count(ctx))
	return nil
}
