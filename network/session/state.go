package session

type State int32

const (
	Connecting State = iota
	Active
	Closing
	Closed
)

var stateNames = [...]string{"Connecting", "Active", "Closing", "Closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
