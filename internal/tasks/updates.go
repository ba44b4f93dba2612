package tasks

import (
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CheckConnection Phase = iota
	LoadQueue
	ReplayMutations
	ReplayDone
)

func (p Phase) String() string {
	switch p {
	case CheckConnection:
		return "check_connection"
	case LoadQueue:
		return "load_queue"
	case ReplayMutations:
		return "replay_mutations"
	case ReplayDone:
		return "replay_done"
	default:
		return ""
	}
}

func checkConnectionUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckConnection,
		Step:    1,
		Total:   1,
		Message: "Checking connection to server...",
	}
}

func loadQueueUpdate(total, targets int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadQueue,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d queued mutations across %d items", total, targets),
	}
}

func mutationReplayedUpdate(step, total int, m models.OfflineMutation) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplayMutations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s %s %s = %d", step, total, m.Kind, m.Type, m.TargetID, m.Value),
		Data:    m,
	}
}

func mutationFailedUpdate(step, total int, m models.OfflineMutation, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplayMutations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s %s %s: %v", step, total, m.Kind, m.Type, m.TargetID, err),
		Data:    m,
	}
}

func mutationSkippedUpdate(step, total int, m models.OfflineMutation) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplayMutations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s %s %s held back after earlier failure", step, total, m.Kind, m.Type, m.TargetID),
		Data:    m,
	}
}

func replayDoneUpdate(result *ReplayResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplayDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Replayed %d, failed %d, held back %d", result.Replayed, result.Failed, result.Skipped),
		Data:    result,
	}
}
