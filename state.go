package bankloader

import (
	"context"
	"fmt"
)

// State is a stage of a pipeline run.
type State int

const (
	StateStart State = iota
	StateFetched
	StateValidated
	StatePrepared
	StateLoaded
	StatePreviewed
	StateDone

	// StateFailed is absorbing: no transition leaves it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateFetched:
		return "FETCHED"
	case StateValidated:
		return "VALIDATED"
	case StatePrepared:
		return "PREPARED"
	case StateLoaded:
		return "LOADED"
	case StatePreviewed:
		return "PREVIEWED"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateStart:     {StateFetched},
	StateFetched:   {StateValidated},
	StateValidated: {StatePrepared},
	StatePrepared:  {StateLoaded, StatePreviewed},
	StateLoaded:    {StateDone},
	StatePreviewed: {StateDone},
}

// CanTransition reports whether from → to is an edge of the run state
// machine. Every non-terminal state may fail.
func CanTransition(from, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine drives one run through its states and reports every step.
// A state is entered only once its stage succeeded, so the state before
// FAILED in a trail is the last completed stage: a rejected dataset fails
// from FETCHED and a failed load job fails from PREPARED, never from LOADED.
type machine struct {
	current  State
	trail    []State
	observer Observer
}

func newMachine(o Observer) *machine {
	return &machine{current: StateStart, trail: []State{StateStart}, observer: o}
}

func (m *machine) advance(ctx context.Context, to State) {
	m.move(ctx, to, nil)
}

func (m *machine) fail(ctx context.Context, err error) {
	m.move(ctx, StateFailed, err)
}

func (m *machine) move(ctx context.Context, to State, err error) {
	if !CanTransition(m.current, to) {
		panic(fmt.Sprintf("bankloader: illegal transition %s -> %s", m.current, to))
	}
	from := m.current
	m.current = to
	m.trail = append(m.trail, to)
	m.observer.Transition(ctx, from, to, err)
}
