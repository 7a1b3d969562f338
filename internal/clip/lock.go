package clip

import "fmt"

// ClipDuration is the fixed clip window length in seconds.
const ClipDuration = 10.0

// State of the clip lock.
type State int

const (
	Unselected State = iota
	Locked
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Window is the closed playback range [Start, End].
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// WindowAt returns the clip window starting at start.
func WindowAt(start float64) Window {
	return Window{Start: start, End: start + ClipDuration}
}

func (w Window) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// Lock is the clip-lock state machine. The zero value is Unselected.
type Lock struct {
	state State
	start float64
}

// Toggle captures current as the window start and flips the state.
func (l *Lock) Toggle(current float64) State {
	l.start = current
	if l.state == Locked {
		l.state = Unselected
	} else {
		l.state = Locked
	}
	return l.state
}

// Release returns to Unselected without touching the captured start.
func (l *Lock) Release() {
	l.state = Unselected
}

func (l Lock) State() State {
	return l.state
}

func (l Lock) IsLocked() bool {
	return l.state == Locked
}

// Start is only meaningful while locked.
func (l Lock) Start() float64 {
	return l.start
}

// Window returns the enforced window and whether one is in force.
func (l Lock) Window() (Window, bool) {
	if l.state != Locked {
		return Window{}, false
	}
	return WindowAt(l.start), true
}

// Check reports the seek target when t falls outside the locked window.
// Playback may overshoot by up to one poll interval before this runs.
func (l Lock) Check(t float64) (float64, bool) {
	w, ok := l.Window()
	if !ok || w.Contains(t) {
		return 0, false
	}
	return w.Start, true
}
