package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration
	// CommandTimeout bounds how long a message handler waits for the loop.
	CommandTimeout time.Duration

	Username string
	Password string
}

type Controller struct {
	svc command.Service
	cfg Config
	log *zap.Logger

	client mqtt.Client
	ctx    context.Context
}

func New(svc command.Service, cfg Config, log *zap.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "thermorelay/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "thermorelay-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: log.Named("mqtt"),
		ctx: context.Background(),
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Subscribe to all set commands under BaseTopic.
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Warn("subscribe failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		c.log.Info("subscribed", zap.String("topic", topic))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.log.Warn("connection lost", zap.Error(err))
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	// publish immediately once
	last := c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				last = c.publishSnapshot()
			}
		}
	}
}

func (c *Controller) publishSnapshot() thermostat.Snapshot {
	s := c.svc.Get()
	dto := snapshotDTO{
		DeviceID:     c.cfg.DeviceID,
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
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
	return s
}

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
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	cmd, err := c.parse(field, msg.Payload())
	if err != nil {
		c.log.Debug("rejected message", zap.String("field", field), zap.Error(err))
		c.publishResponse(field, command.ErrorResponse(&command.Error{Status: http.StatusBadRequest, Msg: err.Error()}))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CommandTimeout)
	defer cancel()
	resp, err := c.svc.Submit(ctx, cmd)
	if err != nil {
		c.log.Warn("command not executed", zap.String("field", field), zap.Error(err))
		return
	}
	c.publishResponse(field, resp)
}

// parse maps a set/<field> message to a command.
func (c *Controller) parse(field string, payload []byte) (command.Command, error) {
	switch field {
	case "mode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return command.Command{}, err
		}
		m, err := thermostat.ParseMode(s)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetMode(m), nil

	case "heat":
		v, err := decodeValueStrict[int](payload)
		if err != nil {
			return command.Command{}, err
		}
		return command.Heat(v), nil

	case "cool":
		v, err := decodeValueStrict[int](payload)
		if err != nil {
			return command.Command{}, err
		}
		return command.Cool(v), nil

	case "setpoint":
		v, err := decodeValueStrict[int](payload)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetDefaultTemperature(v), nil

	case "unit":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return command.Command{}, err
		}
		u, err := thermostat.ParseUnit(s)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetUnit(u), nil

	case "offset":
		v, err := decodeValueStrict[int](payload)
		if err != nil {
			return command.Command{}, err
		}
		return command.SetOffset(v), nil

	default:
		return command.Command{}, fmt.Errorf("unknown field %q", field)
	}
}

func (c *Controller) publishResponse(field string, resp command.Response) {
	payload := make(map[string]any, len(resp.Payload)+1)
	for k, v := range resp.Payload {
		payload[k] = v
	}
	payload["field"] = field
	b, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("encode response", zap.Error(err))
		return
	}
	c.client.Publish(c.topic("response"), c.cfg.QoS, false, b)
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
