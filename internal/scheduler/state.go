package scheduler

// State is the scheduler's position in the update cycle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateComputing
	StateSummarizing
	StateFormatting
	StatePublishing
	StateSleeping
	StateErrorHandling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateComputing:
		return "computing"
	case StateSummarizing:
		return "summarizing"
	case StateFormatting:
		return "formatting"
	case StatePublishing:
		return "publishing"
	case StateSleeping:
		return "sleeping"
	case StateErrorHandling:
		return "error_handling"
	default:
		return "unknown"
	}
}
