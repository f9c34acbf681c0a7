package agent

import (
	"context"
	"fmt"

	"github.com/bobmatnyc/ai-commander-sub001/internal/completion"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// ProcessAutonomous drives initialRequest to completion or a blocker,
// "Ralph"-style: parse it into goals, then repeatedly execute the next
// action until the completion driver says to stop.
//
// Grounded on
// original_source/crates/commander-agent/src/user_agent/autonomous.rs::
// process_autonomous, trimmed to this runtime's single-agent, no-resume-
// API shape (callers resume by calling ProcessAutonomous again after
// clearing blockers via the returned driver, rather than a separate
// resume method, since there is only ever one live driver per goal).
func (u *UserAgent) ProcessAutonomous(ctx context.Context, initialRequest string) (*completion.AutonomousResult, error) {
	driver := completion.New()
	goals, err := u.parseGoals(ctx, initialRequest)
	if err != nil {
		return nil, err
	}
	driver.SetGoals(goals)

	turnCtx := NewContext()

	for {
		decision := driver.ShouldContinue()
		switch decision.Kind {
		case completion.DecisionContinue:
			blocker, actionErr := u.executeNextAction(ctx, driver, turnCtx)
			if actionErr != nil {
				if b := completion.ClassifyErrorAsBlocker(actionErr); b != nil {
					driver.AddBlocker(*b)
				}
			} else if blocker != nil {
				driver.AddBlocker(*blocker)
			}
			driver.IncrementIteration()

		case completion.DecisionStopForUser:
			return &completion.AutonomousResult{
				Kind:     decision.Kind,
				Reason:   decision.Reason,
				Blockers: decision.Blockers,
				Progress: driver.FormatProgress(),
			}, nil

		case completion.DecisionCheckIn:
			return &completion.AutonomousResult{
				Kind:     decision.Kind,
				Reason:   decision.Reason,
				Progress: decision.Progress,
			}, nil

		case completion.DecisionComplete:
			return &completion.AutonomousResult{
				Kind:          decision.Kind,
				Summary:       decision.Summary,
				GoalsAchieved: driver.Goals(),
			}, nil
		}
	}
}

// parseGoals asks the model to decompose request into a numbered goal
// list, falling back to a single goal wrapping the raw request if the
// model call fails or its reply doesn't parse into anything.
func (u *UserAgent) parseGoals(ctx context.Context, request string) ([]completion.Goal, error) {
	resp, err := u.modelConfig.Provider.Chat(ctx, providers.ChatRequest{
		Model: u.modelConfig.Model,
		Messages: []providers.Message{
			{Role: "system", Content: "You are a task decomposition assistant. Extract clear, actionable goals from user requests."},
			{Role: "user", Content: fmt.Sprintf(
				"Analyze this request and extract actionable goals.\n"+
					"Return goals as a simple numbered list, one goal per line.\n"+
					"Keep goals specific and actionable.\n\nRequest: %s\n\nGoals:", request)},
		},
	})
	if err != nil {
		return []completion.Goal{completion.NewGoal(request)}, nil
	}

	goals := completion.ParseGoalLines(resp.Content)
	if len(goals) == 0 {
		return []completion.Goal{completion.NewGoal(request)}, nil
	}
	return goals, nil
}

// executeNextAction runs one LLM turn toward the driver's current (or
// next pending) goal and interprets the reply as goal-complete, blocked,
// or still-in-progress.
func (u *UserAgent) executeNextAction(ctx context.Context, driver *completion.Driver, c *Context) (*completion.Blocker, error) {
	var goalDesc string
	if cur := driver.CurrentGoal(); cur != nil {
		goalDesc = cur.Description
	} else if next := driver.NextPendingGoal(); next != nil {
		goalDesc = next.Description
		driver.UpdateGoalStatus(goalDesc, completion.GoalInProgress)
	} else {
		return nil, nil
	}

	prompt := fmt.Sprintf(
		"You are working on this goal: %s\n\n"+
			"Current progress:\n%s\n\n"+
			"Determine the next concrete action to take. If you need to use a tool, use it.\n"+
			`If this goal is complete, say "[GOAL COMPLETE]".`+"\n"+
			`If you're blocked and need user input, say "[BLOCKED]" followed by what you need.`+"\n\n"+
			"What is your next action?", goalDesc, driver.FormatProgress())

	resp, err := u.Process(ctx, prompt, c)
	if err != nil {
		return nil, err
	}

	if completion.IsGoalComplete(resp.Content) {
		driver.CompleteGoal(goalDesc)
		return nil, nil
	}
	if completion.IsBlocked(resp.Content) {
		b := completion.BlockerFromResponse(resp.Content)
		return &b, nil
	}
	return nil, nil
}
