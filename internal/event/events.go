package event

import "time"

// Type identifies a control event.
type Type int

const (
	EvSelectPair Type = iota + 1
	EvReset
	EvPause
	EvResume
	EvSetInterval
)

// String returns the string representation of Type
func (t Type) String() string {
	switch t {
	case EvSelectPair:
		return "select_pair"
	case EvReset:
		return "reset"
	case EvPause:
		return "pause"
	case EvResume:
		return "resume"
	case EvSetInterval:
		return "set_interval"
	default:
		return "unknown"
	}
}

// Event is a control message processed by the Sequencer loop.
type Event interface {
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	Ts time.Time `json:"ts"`
}

func (e BaseEvent) GetTs() time.Time { return e.Ts }

// SelectPairEvent switches the pair the Sequencer quotes.
type SelectPairEvent struct {
	BaseEvent
	Pair string `json:"pair"`
}

func (e *SelectPairEvent) GetType() Type { return EvSelectPair }

// ResetEvent restores one pair, or every pair when Pair is empty.
type ResetEvent struct {
	BaseEvent
	Pair string `json:"pair,omitempty"`
}

func (e *ResetEvent) GetType() Type { return EvReset }

// PauseEvent stops tick generation without stopping the loop.
type PauseEvent struct {
	BaseEvent
}

func (e *PauseEvent) GetType() Type { return EvPause }

// ResumeEvent restarts tick generation.
type ResumeEvent struct {
	BaseEvent
}

func (e *ResumeEvent) GetType() Type { return EvResume }

// SetIntervalEvent changes the tick period.
type SetIntervalEvent struct {
	BaseEvent
	Interval time.Duration `json:"interval"`
}

func (e *SetIntervalEvent) GetType() Type { return EvSetInterval }
