package session

// State is the pipeline stage of the current turn.
type State int32

const (
	StateIdle State = iota
	StateClassifying
	StateRetrieving
	StateAssembling
	StateGenerating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClassifying:
		return "classifying"
	case StateRetrieving:
		return "retrieving"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	default:
		return "unknown"
	}
}
