package plugins

import (
	"strings"
	"sync"
)

// Phase names a point in the request lifecycle.
type Phase string

// Lifecycle phases, in the order the engine fires them for one request.
// A request ends with either PhaseLoad or PhaseError, always preceded by PhaseResponse.
const (
	PhaseBefore   Phase = "before"
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
	PhaseLoad     Phase = "load"
	PhaseError    Phase = "error"
)

// Phases lists every phase the engine emits.
func Phases() []Phase {
	return []Phase{PhaseBefore, PhaseRequest, PhaseResponse, PhaseLoad, PhaseError}
}

// ParsePhase maps a configured phase name onto a Phase.
func ParsePhase(name string) (Phase, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Phases() {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// Listener observes one phase of a request.
type Listener[E any] func(evt E)

// Bus is an ordered-listener event emitter keyed by phase. Listeners run
// synchronously on the emitting goroutine, in registration order. A panicking
// listener is not recovered: the panic surfaces at the Emit call site.
type Bus[E any] struct {
	mu        sync.RWMutex
	listeners map[Phase][]Listener[E]
}

// New returns an empty bus.
func New[E any]() *Bus[E] {
	return &Bus[E]{}
}

// On registers listener for phase. Registration is additive and permanent.
func (b *Bus[E]) On(phase Phase, listener Listener[E]) {
	if b == nil || listener == nil {
		return
	}

	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[Phase][]Listener[E])
	}
	b.listeners[phase] = append(b.listeners[phase], listener)
	b.mu.Unlock()
}

// Emit invokes every listener registered for phase with evt.
func (b *Bus[E]) Emit(phase Phase, evt E) {
	if b == nil {
		return
	}

	b.mu.RLock()
	registered := b.listeners[phase]
	// listeners may register more listeners; run a stable snapshot outside the lock
	snapshot := make([]Listener[E], len(registered))
	copy(snapshot, registered)
	b.mu.RUnlock()

	for _, l := range snapshot {
		l(evt)
	}
}

// Len returns the number of listeners registered for phase.
func (b *Bus[E]) Len(phase Phase) int {
	if b == nil {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[phase])
}
