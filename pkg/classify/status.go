package classify

// Status is the inferred activity state of an agent session. It is a
// heuristic verdict derived from output text, never reported by the
// agent itself.
type Status string

const (
	// StatusStarting marks a session created moments ago whose first
	// capture has not happened yet. Inserted by the engine, never
	// returned by the classifier.
	StatusStarting Status = "starting"

	// StatusRunning means the agent produced output recently or shows
	// an active-work marker.
	StatusRunning Status = "running"

	// StatusNeedsInput means the agent is blocked on a human reply.
	StatusNeedsInput Status = "needs_input"

	// StatusIdle means output has been quiet past the idle threshold.
	StatusIdle Status = "idle"

	// StatusDone means the output carries an explicit completion marker.
	StatusDone Status = "done"

	// StatusUnknown means no evidence either way, typically before the
	// first successful capture.
	StatusUnknown Status = "unknown"
)

// Label returns a short human-readable form for display.
func (s Status) Label() string {
	switch s {
	case StatusStarting:
		return "Starting"
	case StatusRunning:
		return "Running"
	case StatusNeedsInput:
		return "Needs Input"
	case StatusIdle:
		return "Idle"
	case StatusDone:
		return "Done"
	default:
		return "Unknown"
	}
}
