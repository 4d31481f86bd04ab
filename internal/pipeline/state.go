package pipeline

import "time"

// GateInterval is the minimum time between two scans of the same game.
const GateInterval = time.Hour

// State is the final state of one game's run.
type State int

const (
	Idle State = iota
	Gated
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gated:
		return "gated"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ShouldRun reports whether a game last checked at last may be scanned at now.
func ShouldRun(last, now time.Time) bool {
	return now.Sub(last) >= GateInterval
}
