package openai

import (
	"context"
	"fmt"
	"time"
)

// OutcomeKind tags how a run poll ended.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeTimedOut
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// RunOutcome is the result of PollRun. Status is the last status seen and
// Reason explains a failed or timed out outcome.
type RunOutcome struct {
	Kind   OutcomeKind
	Status string
	Reason string
}

// RunFetcher returns the current status of a run.
type RunFetcher func(ctx context.Context) (string, error)

// PollRun waits interval, fetches the run status, and repeats until the run
// reaches a terminal status or maxAttempts fetches have been made.
func PollRun(ctx context.Context, fetch RunFetcher, interval time.Duration, maxAttempts int, sleep SleepFunc) RunOutcome {
	if sleep == nil {
		sleep = sleepContext
	}

	var status string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleep(ctx, interval); err != nil {
			return RunOutcome{Kind: OutcomeFailed, Status: status, Reason: err.Error()}
		}

		var err error
		status, err = fetch(ctx)
		if err != nil {
			return RunOutcome{Kind: OutcomeFailed, Status: status, Reason: err.Error()}
		}

		switch status {
		case "completed":
			return RunOutcome{Kind: OutcomeCompleted, Status: status}
		case "queued", "in_progress", "cancelling":
			continue
		default:
			return RunOutcome{Kind: OutcomeFailed, Status: status, Reason: "run ended with status " + status}
		}
	}

	return RunOutcome{
		Kind:   OutcomeTimedOut,
		Status: status,
		Reason: fmt.Sprintf("run not completed after %d attempts", maxAttempts),
	}
}
