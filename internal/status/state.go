package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/metrics"
)

// State is the lifecycle state of the real-time connection.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
)

var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Disconnected},
	Connected:    {Disconnected},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	metrics.ConnectionTransitions.WithLabelValues(string(from), string(to)).Inc()
	m.bus.Emit(bus.KindConnStatus, StatusChange{From: from, To: to})
	return nil
}

// Reset forces the machine back to Disconnected from any state. It is used
// on teardown, where the previous state does not matter.
func (m *Machine) Reset() {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current != Disconnected {
		_ = m.Transition(Disconnected)
	}
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
