package relay

import (
	"errors"
	"testing"
)

func TestMemory(t *testing.T) {
	m := NewMemory()
	if m.IsOn() {
		t.Fatal("new relay must start off")
	}
	if err := m.Set(true); err != nil || !m.IsOn() {
		t.Fatalf("Set(true): err=%v on=%v", err, m.IsOn())
	}
	if err := m.Set(false); err != nil || m.IsOn() {
		t.Fatalf("Set(false): err=%v on=%v", err, m.IsOn())
	}
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(Config{Driver: DriverMemory, Pins: Pins{Heat: 33, Cool: 25, Fan: 26}})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	for name, o := range map[string]Output{"heat": b.Heat, "cool": b.Cool, "fan": b.Fan} {
		if o == nil {
			t.Fatalf("%s output missing", name)
		}
		if o.IsOn() {
			t.Fatalf("%s output starts on", name)
		}
	}
	_ = b.Heat.Set(true)
	if b.Cool.IsOn() || b.Fan.IsOn() {
		t.Fatal("outputs share state")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "relayboard9000"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err=%v want ErrUnknownDriver", err)
	}
}

func TestBankClose_Partial(t *testing.T) {
	b := &Bank{Heat: NewMemory()}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSharedMapping(t *testing.T) {
	var opens, closes int
	m := &sharedMapping{
		open:  func() error { opens++; return nil },
		close: func() error { closes++; return nil },
	}

	for range 2 {
		if err := m.acquire(); err != nil {
			t.Fatal(err)
		}
	}
	if opens != 1 {
		t.Fatalf("opened %d times, want 1", opens)
	}

	// two pins, three releases: the extra one must not drive the count
	// negative and strand the mapping
	for range 3 {
		if err := m.release(); err != nil {
			t.Fatal(err)
		}
	}
	if closes != 1 || m.refs != 0 {
		t.Fatalf("closes=%d refs=%d, want 1 and 0", closes, m.refs)
	}

	if err := m.acquire(); err != nil {
		t.Fatal(err)
	}
	if err := m.release(); err != nil {
		t.Fatal(err)
	}
	if opens != 2 || closes != 2 {
		t.Fatalf("opens=%d closes=%d after remap, want 2 and 2", opens, closes)
	}
}

func TestSharedMapping_OpenFailure(t *testing.T) {
	boom := errors.New("no gpiomem")
	m := &sharedMapping{
		open:  func() error { return boom },
		close: func() error { t.Fatal("close without open"); return nil },
	}
	if err := m.acquire(); !errors.Is(err, boom) {
		t.Fatalf("acquire err=%v want %v", err, boom)
	}
	if m.refs != 0 {
		t.Fatalf("refs=%d after failed open", m.refs)
	}
	if err := m.release(); err != nil {
		t.Fatal(err)
	}
}
