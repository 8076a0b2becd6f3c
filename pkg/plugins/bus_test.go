package plugins

import (
	"reflect"
	"testing"
)

func TestBusEmitsInRegistrationOrder(t *testing.T) {
	bus := New[string]()
	var got []string
	bus.On(PhaseLoad, func(evt string) { got = append(got, "first:"+evt) })
	bus.On(PhaseLoad, func(evt string) { got = append(got, "second:"+evt) })
	bus.On(PhaseError, func(evt string) { got = append(got, "wrong-phase") })

	bus.Emit(PhaseLoad, "x")

	want := []string{"first:x", "second:x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBusEmitWithoutListeners(t *testing.T) {
	bus := New[int]()
	bus.Emit(PhaseBefore, 1)

	var nilBus *Bus[int]
	nilBus.Emit(PhaseBefore, 1)
	nilBus.On(PhaseBefore, func(int) {})
	if nilBus.Len(PhaseBefore) != 0 {
		t.Fatalf("nil bus should report no listeners")
	}
}

func TestBusListenerPanicPropagates(t *testing.T) {
	bus := New[int]()
	bus.On(PhaseRequest, func(int) { panic("listener failed") })

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to reach the emitter")
		}
	}()
	bus.Emit(PhaseRequest, 0)
}

func TestBusListenerMayRegisterDuringEmit(t *testing.T) {
	bus := New[int]()
	calls := 0
	bus.On(PhaseBefore, func(int) {
		calls++
		bus.On(PhaseBefore, func(int) { calls++ })
	})

	bus.Emit(PhaseBefore, 0)
	if calls != 1 {
		t.Fatalf("listener added during emit must not run in the same emission, calls=%d", calls)
	}
	if bus.Len(PhaseBefore) != 2 {
		t.Fatalf("expected 2 listeners after emit, got %d", bus.Len(PhaseBefore))
	}
}

func TestParsePhase(t *testing.T) {
	if p, ok := ParsePhase(" LOAD "); !ok || p != PhaseLoad {
		t.Fatalf("ParsePhase returned %q %v", p, ok)
	}
	if _, ok := ParsePhase("teardown"); ok {
		t.Fatalf("expected unknown phase to be rejected")
	}
}
