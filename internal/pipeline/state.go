package pipeline

// State tracks pipeline progress. Transitions are strictly ordered; any
// fatal step failure moves to Aborted and a re-run starts over from Start,
// relying on each component's presence checks to skip finished work.
type State int

const (
	Start State = iota
	SourceSynced
	ToolchainReady
	EnvReady
	Built
	BindingsGenerated
	Exported
	Aborted
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case SourceSynced:
		return "source-synced"
	case ToolchainReady:
		return "toolchain-ready"
	case EnvReady:
		return "env-ready"
	case Built:
		return "built"
	case BindingsGenerated:
		return "bindings-generated"
	case Exported:
		return "exported"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Exported || s == Aborted
}
