package core

// SimState gates the compute stages; rendering runs in either state.
type SimState int

const (
	Playing SimState = iota
	Paused
)

func (s SimState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}
