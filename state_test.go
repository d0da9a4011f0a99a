package bankloader

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]State{
		{StateStart, StateFetched},
		{StateFetched, StateValidated},
		{StateValidated, StatePrepared},
		{StatePrepared, StateLoaded},
		{StatePrepared, StatePreviewed},
		{StateLoaded, StateDone},
		{StatePreviewed, StateDone},
		{StateStart, StateFailed},
		{StateFetched, StateFailed},
		{StatePrepared, StateFailed},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	denied := [][2]State{
		{StateStart, StateValidated},
		{StateFetched, StatePrepared},
		{StateValidated, StateLoaded},
		{StatePreviewed, StateLoaded},
		{StateLoaded, StatePrepared},
		{StateFailed, StateDone},
		{StateFailed, StateFailed},
		{StateDone, StateFailed},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be denied", tr[0], tr[1])
		}
	}
}
