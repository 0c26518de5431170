package shared

// State represents the data state of a chart controller.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
