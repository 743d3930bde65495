package term

// Status is the lifecycle of a console. Input is only accepted while Active.
type Status int

const (
	StatusActive Status = iota
	StatusStopped
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusStopped:
		return "stopped"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Snapshot is a render-ready view of a console: completed scrollback lines
// plus the live input line. The UI layer styles it; the console never embeds
// escape sequences in its lines.
type Snapshot struct {
	Lines     []string
	Input     string
	CursorCol int
	Busy      bool
	Status    Status
}
