// Package completion is the completion driver (C10): an explicit state
// machine tracking an autonomous agent's progress toward a set of goals,
// deciding at each step whether to keep working, stop for user input,
// check in, or declare completion.
//
// Grounded on
// original_source/crates/commander-agent/src/user_agent/autonomous.rs and
// its companion completion_driver module (goal list, blocker list,
// iteration cap, the ContinueDecision state machine).
package completion

import (
	"fmt"
	"strings"
)

// GoalStatus is a goal's lifecycle state.
type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
)

// Goal is one actionable item extracted from a user request.
type Goal struct {
	Description string
	Status      GoalStatus
}

// NewGoal returns a Pending goal with the given description.
func NewGoal(description string) Goal {
	return Goal{Description: description, Status: GoalPending}
}

// BlockerType classifies why an autonomous action stopped.
type BlockerType string

const (
	DecisionNeeded        BlockerType = "decision_needed"
	ExternalDependency    BlockerType = "external_dependency"
	ErrorRequiresJudgment BlockerType = "error_requires_judgment"
	AmbiguousRequirements BlockerType = "ambiguous_requirements"
	InformationNeeded     BlockerType = "information_needed"
)

// Blocker is a reason the autonomous loop cannot proceed without the user.
type Blocker struct {
	Reason  string
	Type    BlockerType
	Options []string
}

// NewBlocker returns a Blocker with no options.
func NewBlocker(reason string, t BlockerType) Blocker {
	return Blocker{Reason: reason, Type: t}
}

// WithOptions returns a Blocker carrying a list of choices the user can
// pick from.
func WithOptions(reason string, t BlockerType, options []string) Blocker {
	return Blocker{Reason: reason, Type: t, Options: options}
}

// DecisionKind names the variant of a ContinueDecision.
type DecisionKind string

const (
	DecisionContinue    DecisionKind = "continue"
	DecisionStopForUser DecisionKind = "stop_for_user"
	DecisionCheckIn     DecisionKind = "check_in"
	DecisionComplete    DecisionKind = "complete"
)

// ContinueDecision is the result of ShouldContinue: exactly one of
// Continue, StopForUser{reason, blockers}, CheckIn{reason, progress}, or
// Complete{summary} is populated, selected by Kind.
type ContinueDecision struct {
	Kind     DecisionKind
	Reason   string    // StopForUser, CheckIn
	Blockers []Blocker // StopForUser
	Progress string    // CheckIn
	Summary  string    // Complete
}

// defaultMaxIterations is the hard safety cap named in spec.md §5 (≈50).
const defaultMaxIterations = 50

// Driver is the completion driver's mutable state: the goal list, any
// outstanding blockers, and the iteration counter.
type Driver struct {
	goals         []Goal
	blockers      []Blocker
	iteration     int
	maxIterations int
}

// New returns a Driver with no goals and the default iteration cap.
func New() *Driver {
	return &Driver{maxIterations: defaultMaxIterations}
}

// SetGoals replaces the goal list.
func (d *Driver) SetGoals(goals []Goal) { d.goals = goals }

// Goals returns the current goal list.
func (d *Driver) Goals() []Goal { return d.goals }

// AddBlocker records a new blocker.
func (d *Driver) AddBlocker(b Blocker) { d.blockers = append(d.blockers, b) }

// ClearBlockers discards all outstanding blockers, e.g. after the user
// supplies the input a blocker was waiting on.
func (d *Driver) ClearBlockers() { d.blockers = nil }

// IncrementIteration advances the iteration counter by one.
func (d *Driver) IncrementIteration() { d.iteration++ }

// ResetIterations zeroes the iteration counter, e.g. when resuming after
// a check-in or a resolved blocker.
func (d *Driver) ResetIterations() { d.iteration = 0 }

// CurrentGoal returns the first InProgress goal, if any.
func (d *Driver) CurrentGoal() *Goal {
	for i := range d.goals {
		if d.goals[i].Status == GoalInProgress {
			return &d.goals[i]
		}
	}
	return nil
}

// NextPendingGoal returns the first Pending goal, if any.
func (d *Driver) NextPendingGoal() *Goal {
	for i := range d.goals {
		if d.goals[i].Status == GoalPending {
			return &d.goals[i]
		}
	}
	return nil
}

// UpdateGoalStatus sets the status of the goal matching description, if
// found.
func (d *Driver) UpdateGoalStatus(description string, status GoalStatus) {
	for i := range d.goals {
		if d.goals[i].Description == description {
			d.goals[i].Status = status
			return
		}
	}
}

// CompleteGoal marks the goal matching description as Completed.
func (d *Driver) CompleteGoal(description string) {
	d.UpdateGoalStatus(description, GoalCompleted)
}

// AllCompleted reports whether every goal is Completed. An empty goal
// list counts as complete.
func (d *Driver) AllCompleted() bool {
	for _, g := range d.goals {
		if g.Status != GoalCompleted {
			return false
		}
	}
	return true
}

// FormatProgress renders the goal list as a human-readable checklist,
// e.g. for a CheckIn or StopForUser report.
func (d *Driver) FormatProgress() string {
	var b strings.Builder
	for _, g := range d.goals {
		mark := " "
		switch g.Status {
		case GoalCompleted:
			mark = "x"
		case GoalInProgress:
			mark = "~"
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, g.Description)
	}
	return b.String()
}

// ShouldContinue evaluates the driver's current state and returns the
// next decision, per spec.md §4.10: any blocker stops for the user
// regardless of iteration count; otherwise hitting the iteration cap
// without completion triggers a check-in; otherwise every goal being
// Completed ends the loop; otherwise the loop continues.
func (d *Driver) ShouldContinue() ContinueDecision {
	if len(d.blockers) > 0 {
		reasons := make([]string, len(d.blockers))
		for i, b := range d.blockers {
			reasons[i] = b.Reason
		}
		return ContinueDecision{
			Kind:     DecisionStopForUser,
			Reason:   strings.Join(reasons, "; "),
			Blockers: d.blockers,
		}
	}

	if d.AllCompleted() {
		return ContinueDecision{Kind: DecisionComplete, Summary: d.FormatProgress()}
	}

	if d.iteration >= d.maxIterations {
		return ContinueDecision{
			Kind:     DecisionCheckIn,
			Reason:   fmt.Sprintf("reached the %d-iteration safety limit without completing all goals", d.maxIterations),
			Progress: d.FormatProgress(),
		}
	}

	return ContinueDecision{Kind: DecisionContinue}
}
