package loop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	httpctrl "github.com/Agrid-Dev/thermorelay/internal/controllers/http"
	"github.com/Agrid-Dev/thermorelay/internal/device"
	"github.com/Agrid-Dev/thermorelay/internal/ports"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// ErrRestartRequested is returned by Run after a restart command. Relays are
// already off when it is returned.
var ErrRestartRequested = errors.New("restart requested")

// Listener is a net.Listener whose Accept can be bounded by a deadline.
// *net.TCPListener satisfies it.
type Listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type Config struct {
	PollInterval time.Duration
	// AcceptSlice bounds a single Accept so queued commands and context
	// cancellation are noticed.
	AcceptSlice time.Duration
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		AcceptSlice:  250 * time.Millisecond,
		ReadTimeout:  5 * time.Second,
	}
}

type request struct {
	cmd   command.Command
	reply chan command.Response
}

// Loop is the single goroutine that owns the thermostat state. Everything that
// touches the state (polls, socket requests, submitted commands) runs on it.
type Loop struct {
	cfg    Config
	state  thermostat.State
	sensor ports.Sensor
	dev    *device.Device
	disp   *command.Dispatcher
	store  *thermostat.Store
	log    *zap.Logger
	obs    Observer
	now    func() time.Time

	reqs chan request
	done chan struct{}

	polled   bool
	lastPoll time.Time
}

type Option func(*Loop)

func WithObserver(o Observer) Option {
	return func(l *Loop) { l.obs = o }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func New(cfg Config, initial thermostat.State, sensor ports.Sensor, dev *device.Device,
	disp *command.Dispatcher, store *thermostat.Store, log *zap.Logger, opts ...Option,
) *Loop {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.AcceptSlice <= 0 {
		cfg.AcceptSlice = def.AcceptSlice
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	l := &Loop{
		cfg:    cfg,
		state:  initial,
		sensor: sensor,
		dev:    dev,
		disp:   disp,
		store:  store,
		log:    log,
		obs:    nopObserver{},
		now:    time.Now,
		reqs:   make(chan request, 16),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.publish()
	return l
}

// Get returns the last published snapshot.
func (l *Loop) Get() thermostat.Snapshot {
	return l.store.Get()
}

// Submit queues cmd to the loop and waits for its response. Latency is bounded
// by the accept slice plus whatever the loop is busy with.
func (l *Loop) Submit(ctx context.Context, cmd command.Command) (command.Response, error) {
	req := request{cmd: cmd, reply: make(chan command.Response, 1)}
	select {
	case l.reqs <- req:
	case <-l.done:
		return command.Response{}, command.ErrQueueClosed
	case <-ctx.Done():
		return command.Response{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r, nil
	case <-l.done:
		return command.Response{}, command.ErrQueueClosed
	case <-ctx.Done():
		return command.Response{}, ctx.Err()
	}
}

// Run drives the loop until ctx is cancelled, a restart is requested or
// Accept fails. It forces the relays off before returning. Run must be called
// at most once.
func (l *Loop) Run(ctx context.Context, ln Listener) error {
	defer close(l.done)
	l.log.Info("control loop started",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("poll_interval", l.cfg.PollInterval))

	for {
		if err := ctx.Err(); err != nil {
			l.stop("context cancelled")
			return err
		}

		if l.pollDue(l.now()) {
			l.poll()
		}

		if l.drain() {
			l.stop("restart requested")
			return ErrRestartRequested
		}

		if err := ln.SetDeadline(l.acceptDeadline()); err != nil {
			l.stop("listener failure")
			return fmt.Errorf("set accept deadline: %w", err)
		}
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				l.stop("context cancelled")
				return ctx.Err()
			}
			l.stop("accept failure")
			return fmt.Errorf("accept: %w", err)
		}

		if l.serve(conn) {
			l.stop("restart requested")
			return ErrRestartRequested
		}
	}
}

func (l *Loop) pollDue(now time.Time) bool {
	return !l.polled || now.Sub(l.lastPoll) >= l.cfg.PollInterval
}

func (l *Loop) acceptDeadline() time.Time {
	now := l.now()
	deadline := now.Add(l.cfg.AcceptSlice)
	if next := l.lastPoll.Add(l.cfg.PollInterval); next.Before(deadline) {
		deadline = next
	}
	// the listener deadline is wall-clock; an injected clock only shapes the
	// slice length
	return time.Now().Add(deadline.Sub(now))
}

// poll reads the sensor, decides and drives the relays. The interval is
// measured from the end of the poll, so slow sensor reads do not shorten it.
func (l *Loop) poll() {
	tempErr := l.readTemperature()
	humErr := l.readHumidity()

	out := thermostat.Decide(l.state)
	if err := l.dev.Apply(out); err != nil {
		l.log.Warn("relay fault", zap.Error(err))
		l.obs.RelayFault(err)
	}

	l.polled = true
	l.lastPoll = l.now()
	snap := l.publish()
	l.obs.Polled(snap, tempErr, humErr)

	if t, ok := snap.Temperature(); ok {
		l.log.Debug("poll",
			zap.Float64("temperature", t),
			zap.Stringer("unit", l.state.Unit),
			zap.Bool("heat", out.Heat),
			zap.Bool("cool", out.Cool),
			zap.Bool("fan", out.Fan))
	}
}

func (l *Loop) readTemperature() error {
	c, err := l.sensor.ReadTemperature()
	if err != nil {
		l.state.ClearTemperature()
		l.log.Warn("sensor fault, relays forced off", zap.String("reading", "temperature"), zap.Error(err))
		return err
	}
	l.state.RecordTemperature(c)
	return nil
}

func (l *Loop) readHumidity() error {
	h, err := l.sensor.ReadHumidity()
	if err != nil {
		l.state.ClearHumidity()
		l.log.Warn("sensor fault", zap.String("reading", "humidity"), zap.Error(err))
		return err
	}
	l.state.RecordHumidity(h)
	return nil
}

// drain dispatches every queued command in arrival order. It reports whether
// one of them asked for a restart.
func (l *Loop) drain() bool {
	for {
		select {
		case req := <-l.reqs:
			resp := l.disp.Dispatch(&l.state, req.cmd)
			if req.cmd.Mutates() {
				l.publish()
			}
			l.obs.Command(req.cmd.Kind, resp.Status)
			req.reply <- resp
			if resp.Restart {
				return true
			}
		default:
			return false
		}
	}
}

// serve answers one connection and closes it. It reports whether the request
// asked for a restart, in which case nothing is written back.
func (l *Loop) serve(conn net.Conn) bool {
	defer conn.Close()
	log := l.log.With(zap.String("remote", conn.RemoteAddr().String()))

	req, err := httpctrl.ReadRequest(conn, l.cfg.ReadTimeout)
	if err != nil {
		log.Debug("read request", zap.Error(err))
		return false
	}
	if len(req) == 0 {
		log.Debug("empty request")
		return false
	}

	var (
		cmd  command.Command
		resp command.Response
	)
	target, err := httpctrl.Target(req)
	if err != nil {
		resp = command.ErrorResponse(err)
	} else {
		cmd, resp = l.disp.Handle(&l.state, target)
	}
	if cmd.Mutates() {
		l.publish()
	}
	l.obs.Command(cmd.Kind, resp.Status)
	log.Debug("request", zap.String("target", target), zap.Int("status", resp.Status))

	if resp.Restart {
		return true
	}
	if err := httpctrl.WriteResponse(conn, resp); err != nil {
		log.Warn("write response", zap.Error(err))
	}
	return false
}

func (l *Loop) stop(reason string) {
	if err := l.dev.AllOff(); err != nil {
		l.log.Warn("relay fault while stopping", zap.Error(err))
		l.obs.RelayFault(err)
	}
	l.publish()
	l.log.Info("control loop stopped", zap.String("reason", reason))
}

func (l *Loop) publish() thermostat.Snapshot {
	s := thermostat.Snapshot{
		State:    l.state,
		Outputs:  l.dev.State(),
		LastPoll: l.lastPoll,
	}
	l.store.Set(s)
	return s
}
