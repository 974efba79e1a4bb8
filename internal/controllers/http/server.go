package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Server is the side HTTP API: a JSON view of the thermostat, health and
// metrics, plus per-field writes that go through the control loop. It is
// separate from the command socket.
type Server struct {
	svc      command.Service
	srv      *http.Server
	deviceID string
}

// New returns a runnable server. metrics may be nil.
func New(svc command.Service, addr string, deviceID string, metrics http.Handler) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/mode", s.handlePostMode)
	mux.HandleFunc("POST /v1/setpoint", s.handlePostSetpoint)
	mux.HandleFunc("POST /v1/unit", s.handlePostUnit)
	mux.HandleFunc("POST /v1/offset", s.handlePostOffset)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID     string   `json:"device_id"`
	Mode         string   `json:"mode"`
	Unit         string   `json:"unit"`
	Setpoint     int      `json:"setpoint"`
	SensorOffset int      `json:"sensor_offset"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	Heat         bool     `json:"heat"`
	Cool         bool     `json:"cool"`
	Fan          bool     `json:"fan"`
	LastPoll     string   `json:"last_poll,omitempty"`
}

func toDTO(s thermostat.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		Mode:         s.State.Mode.String(),
		Unit:         s.State.Unit.String(),
		Setpoint:     s.State.Setpoint,
		SensorOffset: s.State.SensorOffset,
		Temperature:  s.State.LastTemperature,
		Humidity:     s.State.LastHumidity,
		Heat:         s.Outputs.Heat,
		Cool:         s.Outputs.Cool,
		Fan:          s.Outputs.Fan,
	}
	if !s.LastPoll.IsZero() {
		dto.LastPoll = s.LastPoll.UTC().Format(time.RFC3339)
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostMode(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "heat"}
	postValue(s, w, r, func(v string) (command.Command, error) {
		m, err := thermostat.ParseMode(v)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetMode(m), nil
	})
}

func (s *Server) handlePostSetpoint(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v int) (command.Command, error) {
		return command.SetDefaultTemperature(v), nil
	})
}

func (s *Server) handlePostUnit(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "c"}
	postValue(s, w, r, func(v string) (command.Command, error) {
		u, err := thermostat.ParseUnit(v)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetUnit(u), nil
	})
}

func (s *Server) handlePostOffset(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v int) (command.Command, error) {
		return command.SetOffset(v), nil
	})
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, build func(T) (command.Command, error)) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	cmd, err := build(*req.Value)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.svc.Submit(r.Context(), cmd)
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !resp.OK() {
		writeJSON(w, resp.Status, resp.Payload)
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
