package relay

import "sync"

// sharedMapping reference-counts a process-wide resource such as the mapped
// GPIO memory: open runs on the first acquire and close on the last release.
type sharedMapping struct {
	mu    sync.Mutex
	refs  int
	open  func() error
	close func() error
}

func (m *sharedMapping) acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		if err := m.open(); err != nil {
			return err
		}
	}
	m.refs++
	return nil
}

func (m *sharedMapping) release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return nil
	}
	m.refs--
	if m.refs == 0 {
		return m.close()
	}
	return nil
}
