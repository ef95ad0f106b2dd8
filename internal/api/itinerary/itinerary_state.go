package itinerary

// State is a step of the generation pipeline. Generation walks
// Validating -> Fetching -> Merging -> Prompting -> ValidatingOutput and ends in
// Done, or passes through Repairing exactly once before ending in Done or Failed.
type State int

const (
	StateValidating State = iota
	StateFetching
	StateMerging
	StatePrompting
	StateValidatingOutput
	StateRepairing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateFetching:
		return "fetching"
	case StateMerging:
		return "merging"
	case StatePrompting:
		return "prompting"
	case StateValidatingOutput:
		return "validating_output"
	case StateRepairing:
		return "repairing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
