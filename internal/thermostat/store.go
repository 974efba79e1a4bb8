package thermostat

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the controller, safe to use after the
// lock is released.
type Snapshot struct {
	State    State
	Outputs  Outputs
	LastPoll time.Time
}

// Temperature returns the last reading and whether there is one.
func (s Snapshot) Temperature() (float64, bool) {
	if s.State.LastTemperature == nil {
		return 0, false
	}
	return *s.State.LastTemperature, true
}

func (s Snapshot) Humidity() (float64, bool) {
	if s.State.LastHumidity == nil {
		return 0, false
	}
	return *s.State.LastHumidity, true
}

// Store holds the latest published Snapshot for readers outside the loop.
type Store struct {
	mu sync.RWMutex
	s  Snapshot
}

func NewStore(initial Snapshot) *Store {
	return &Store{s: initial}
}

func (st *Store) Get() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *Store) Set(s Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
}
