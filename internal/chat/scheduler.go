package chat

import "fmt"

// TimerClass identifies the single live repeating timer.
type TimerClass int

const (
	TimerNone TimerClass = iota
	TimerForeground
	TimerBackground
)

func (t TimerClass) String() string {
	switch t {
	case TimerForeground:
		return "foreground"
	case TimerBackground:
		return "background"
	default:
		return "none"
	}
}

// Mode is the scheduler mode derived from a State.
type Mode int

const (
	ModeNoReport Mode = iota
	ModeClosed
	ModeOpen
)

func (m Mode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeOpen:
		return "open"
	default:
		return "no-report"
	}
}

// Action is a side effect requested by a transition.
type Action int

const (
	ActionStopTimer Action = iota
	ActionArmForeground
	ActionArmBackground
	ActionFetch
	ActionForceFetch
	ActionRefreshUnread
)

func (a Action) String() string {
	switch a {
	case ActionStopTimer:
		return "stop-timer"
	case ActionArmForeground:
		return "arm-foreground"
	case ActionArmBackground:
		return "arm-background"
	case ActionFetch:
		return "fetch"
	case ActionForceFetch:
		return "force-fetch"
	case ActionRefreshUnread:
		return "refresh-unread"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// State is the session record. Transitions are pure: they return the next
// state and the actions the runtime must perform, in order.
type State struct {
	ReportID int64
	Open     bool
	Timer    TimerClass
	Snapshot Snapshot
	Unread   int
}

// Mode derives the scheduler mode.
func (s State) Mode() Mode {
	switch {
	case s.ReportID <= 0:
		return ModeNoReport
	case s.Open:
		return ModeOpen
	default:
		return ModeClosed
	}
}

// Check verifies the timer invariant: no timer without a report, the
// foreground timer exactly while open, the background timer exactly while
// closed.
func (s State) Check() error {
	want := TimerNone
	switch s.Mode() {
	case ModeOpen:
		want = TimerForeground
	case ModeClosed:
		want = TimerBackground
	}
	if s.Timer != want {
		return fmt.Errorf("mode %s has %s timer, want %s", s.Mode(), s.Timer, want)
	}
	return nil
}

// Start arms the timer for the initial state.
func Start(s State) (State, []Action) {
	switch s.Mode() {
	case ModeOpen:
		s.Timer = TimerForeground
		s.Snapshot = Snapshot{}
		return s, []Action{ActionStopTimer, ActionForceFetch, ActionArmForeground}
	case ModeClosed:
		s.Timer = TimerBackground
		return s, []Action{ActionStopTimer, ActionArmBackground, ActionRefreshUnread}
	default:
		s.Timer = TimerNone
		return s, []Action{ActionStopTimer}
	}
}

// OpenPanel cancels background polling, resets the detector, fetches at once
// and arms the foreground timer. Opening an open panel is a no-op.
func OpenPanel(s State) (State, []Action) {
	if s.Open {
		return s, nil
	}
	s.Open = true
	s.Snapshot = Snapshot{}
	if s.ReportID <= 0 {
		s.Timer = TimerNone
		return s, []Action{ActionStopTimer}
	}
	s.Timer = TimerForeground
	return s, []Action{ActionStopTimer, ActionForceFetch, ActionArmForeground}
}

// ClosePanel cancels foreground polling and arms the background timer.
func ClosePanel(s State) (State, []Action) {
	if !s.Open {
		return s, nil
	}
	s.Open = false
	if s.ReportID <= 0 {
		s.Timer = TimerNone
		return s, []Action{ActionStopTimer}
	}
	s.Timer = TimerBackground
	return s, []Action{ActionStopTimer, ActionArmBackground}
}

// TogglePanel flips the panel.
func TogglePanel(s State) (State, []Action) {
	if s.Open {
		return ClosePanel(s)
	}
	return OpenPanel(s)
}

// SwitchReport moves the session to another report. Everything derived from
// the previous report is dropped.
func SwitchReport(s State, reportID int64) (State, []Action) {
	if reportID < 0 {
		reportID = 0
	}
	if reportID == s.ReportID {
		return s, nil
	}
	s.ReportID = reportID
	s.Snapshot = Snapshot{}
	s.Unread = 0
	return Start(s)
}

// Tick handles a fire of the timer of class fired. Fires of a timer that is no
// longer current are ignored.
func Tick(s State, fired TimerClass) (State, []Action) {
	if fired == TimerNone || fired != s.Timer {
		return s, nil
	}
	switch fired {
	case TimerForeground:
		return s, []Action{ActionFetch}
	default:
		return s, []Action{ActionRefreshUnread}
	}
}

// Invalidate resets the detector and forces one fetch, used after a send.
func Invalidate(s State) (State, []Action) {
	if s.ReportID <= 0 {
		return s, nil
	}
	s.Snapshot = Snapshot{}
	return s, []Action{ActionForceFetch}
}
