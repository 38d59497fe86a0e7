// Package goals evaluates goal progress against logged measurements and
// manages milestone crossing and the goal lifecycle state machine.
package goals

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

// Default milestone checkpoints, in percent.
var defaultMilestones = []int{25, 50, 75, 100}

// uniqueTypes lists goal types constrained to one active goal per user.
// Weight goals are unique system-wide per user.
var uniqueTypes = map[model.GoalType]bool{
	model.GoalWeight: true,
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithMilestonePercentages overrides the default milestone checkpoints.
// Values must be ascending and within (0, 100].
func WithMilestonePercentages(pcts []int) Option {
	return func(t *Tracker) {
		if len(pcts) > 0 {
			t.milestonePcts = pcts
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker owns goal lifecycle and milestone evaluation.
type Tracker struct {
	milestonePcts []int
	now           func() time.Time
}

// New creates a Tracker with default configuration.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		milestonePcts: defaultMilestones,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewGoalInput carries the caller-supplied fields for goal creation.
type NewGoalInput struct {
	UserID      uuid.UUID
	GoalType    model.GoalType
	Metric      string
	TargetValue float64
	StartValue  float64
	Direction   model.Direction // empty = derived from goal type
	StartDate   time.Time       // zero = today
	TargetDate  *time.Time
}

// Create validates the input, enforces the single-active-goal constraint
// against the user's existing goals, and builds an active goal with
// default milestones.
func (t *Tracker) Create(in NewGoalInput, existing []model.Goal) (model.Goal, error) {
	switch in.GoalType {
	case model.GoalWeight, model.GoalExercise, model.GoalNutrition,
		model.GoalHydration, model.GoalSleep, model.GoalCustom:
	default:
		return model.Goal{}, fmt.Errorf("%w: goal type %q", ErrInvalidGoal, in.GoalType)
	}

	direction := in.Direction
	if direction == "" {
		// Weight goals default to losing; everything else to gaining.
		if in.GoalType == model.GoalWeight {
			direction = model.Decreasing
		} else {
			direction = model.Increasing
		}
	}
	if direction != model.Increasing && direction != model.Decreasing {
		return model.Goal{}, fmt.Errorf("%w: direction %q", ErrInvalidGoal, direction)
	}

	if err := t.CheckConflict(existing, in.GoalType); err != nil {
		return model.Goal{}, err
	}

	startDate := in.StartDate
	if startDate.IsZero() {
		startDate = t.now()
	}

	g := model.Goal{
		ID:           uuid.New(),
		UserID:       in.UserID,
		GoalType:     in.GoalType,
		Metric:       in.Metric,
		TargetValue:  in.TargetValue,
		StartValue:   in.StartValue,
		CurrentValue: in.StartValue,
		Direction:    direction,
		StartDate:    startDate,
		TargetDate:   in.TargetDate,
		Status:       model.StatusActive,
	}

	diff := in.TargetValue - in.StartValue
	for _, pct := range t.milestonePcts {
		g.Milestones = append(g.Milestones, model.Milestone{
			TargetValue: in.StartValue + diff*float64(pct)/100,
			Percentage:  pct,
		})
	}
	return g, nil
}

// CheckConflict fails with ErrConflict when the user already holds an
// active goal of a uniquely-constrained type. The caller must complete,
// abandon, or pause the existing goal first.
func (t *Tracker) CheckConflict(existing []model.Goal, goalType model.GoalType) error {
	if !uniqueTypes[goalType] {
		return nil
	}
	for _, g := range existing {
		if g.GoalType == goalType && g.Status == model.StatusActive {
			return fmt.Errorf("%w: active %s goal %s already exists", ErrConflict, goalType, g.ID)
		}
	}
	return nil
}

// ApplyMeasurement refreshes the goal from a normalized measurement and
// re-evaluates milestones. It is a no-op when the goal is not active or
// the measurement's modality does not match the goal's metric. Returns
// true when the goal changed.
func (t *Tracker) ApplyMeasurement(g *model.Goal, m model.Measurement) bool {
	if g.Status != model.StatusActive {
		return false
	}
	if string(m.Modality) != g.Metric {
		return false
	}

	g.CurrentValue = m.Value
	progress := Progress(*g)
	now := t.now()

	// Milestones record first crossings only: once stamped, a later
	// regression never clears them.
	for i := range g.Milestones {
		ms := &g.Milestones[i]
		if ms.AchievedAt != nil {
			continue
		}
		if progress >= float64(ms.Percentage) {
			achieved := now
			actual := g.CurrentValue
			ms.AchievedAt = &achieved
			ms.ActualValue = &actual
			if ms.Percentage >= 100 {
				t.complete(g, now)
			}
		}
	}

	// A goal without a 100% milestone still completes when the target is
	// reached in the goal's direction.
	if g.Status == model.StatusActive && reached(*g) {
		t.complete(g, now)
	}
	return true
}

func (t *Tracker) complete(g *model.Goal, now time.Time) {
	g.Status = model.StatusCompleted
	g.CompletedAt = &now
}

func reached(g model.Goal) bool {
	if g.Direction == model.Decreasing {
		return g.CurrentValue <= g.TargetValue
	}
	return g.CurrentValue >= g.TargetValue
}

// Pause suspends an active goal. Measurements have no effect while paused.
func (t *Tracker) Pause(g *model.Goal) error {
	if g.Status != model.StatusActive {
		return fmt.Errorf("%w: cannot pause %s goal", ErrInvalidTransition, g.Status)
	}
	g.Status = model.StatusPaused
	return nil
}

// Resume reactivates a paused goal.
func (t *Tracker) Resume(g *model.Goal) error {
	if g.Status != model.StatusPaused {
		return fmt.Errorf("%w: cannot resume %s goal", ErrInvalidTransition, g.Status)
	}
	g.Status = model.StatusActive
	return nil
}

// Abandon terminally retires an active or paused goal.
func (t *Tracker) Abandon(g *model.Goal) error {
	if g.Status.Terminal() {
		return fmt.Errorf("%w: cannot abandon %s goal", ErrInvalidTransition, g.Status)
	}
	g.Status = model.StatusAbandoned
	return nil
}

// Progress returns percent progress toward the target, clamped to
// [0, 100]. Movement against the goal's direction counts as zero, so a
// regression lowers progress rather than raising it. A degenerate goal
// with start == target is complete from the first evaluation.
func Progress(g model.Goal) float64 {
	total := g.TargetValue - g.StartValue
	if total == 0 {
		return 100
	}

	var actual float64
	if g.Direction == model.Increasing {
		actual = g.CurrentValue - g.StartValue
	} else {
		actual = g.StartValue - g.CurrentValue
	}
	if total < 0 {
		total = -total
	}

	p := actual / total * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Remaining returns the distance still to cover toward the target,
// floored at zero.
func Remaining(g model.Goal) float64 {
	if g.Direction == model.Increasing {
		if r := g.TargetValue - g.CurrentValue; r > 0 {
			return r
		}
		return 0
	}
	if r := g.CurrentValue - g.TargetValue; r > 0 {
		return r
	}
	return 0
}

// OnTrack compares progress against the elapsed share of the start to
// target-date window. Goals without a target date are always on track.
func OnTrack(g model.Goal, today time.Time) bool {
	if g.TargetDate == nil {
		return true
	}
	progress := Progress(g)
	totalDays := g.TargetDate.Sub(g.StartDate).Hours() / 24
	if totalDays <= 0 {
		return progress >= 100
	}
	elapsedDays := today.Sub(g.StartDate).Hours() / 24
	expected := elapsedDays / totalDays * 100
	return progress >= expected
}
