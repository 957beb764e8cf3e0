package scenario

import "fmt"

// State is a point the scenario has reached
type State int

const (
	Init State = iota
	SessionAcquired
	Navigated
	Ready
	TierSelected
	GeneratorRevealed
	PersonaFilled
	Submitted
	LoadingAsserted
	Captured
	Torndown
)

var stateNames = [...]string{
	Init:              "Init",
	SessionAcquired:   "SessionAcquired",
	Navigated:         "Navigated",
	Ready:             "Ready",
	TierSelected:      "TierSelected",
	GeneratorRevealed: "GeneratorRevealed",
	PersonaFilled:     "PersonaFilled",
	Submitted:         "Submitted",
	LoadingAsserted:   "LoadingAsserted",
	Captured:          "Captured",
	Torndown:          "Torndown",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
