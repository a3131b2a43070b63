package pipeline

// State is a step of a crawl pass.
type State int

const (
	Idle State = iota
	Fetching
	Filtering
	Publishing
	Committing
	Done
	// Failed ends a run aborted by an error.
	Failed
)

var stateNames = [...]string{
	Idle:       "idle",
	Fetching:   "fetching",
	Filtering:  "filtering",
	Publishing: "publishing",
	Committing: "committing",
	Done:       "done",
	Failed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether a run in this state has finished.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
