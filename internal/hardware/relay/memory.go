package relay

import "sync"

// Memory is an in-process relay, used with the simulated sensor.
type Memory struct {
	mu sync.Mutex
	on bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Set(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = on
	return nil
}

func (m *Memory) IsOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on
}

func (m *Memory) Close() error { return nil }
