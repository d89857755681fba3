package listener

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"vidria/internal/config"
	"vidria/internal/logger"
	"vidria/pkg/metrics"
)

const (
	connectTimeout    = 10 * time.Second
	reconnectInterval = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho API
)

// Subscriber bridges the local Frigate MQTT broker to the cloud ingest API.
// It subscribes to the detection topic, normalizes every payload and hands
// it to the forwarder. The paho client reconnects on its own; a lost broker
// only pauses the stream.
type Subscriber struct {
	cfg       config.MQTTConfig
	forwarder *Forwarder
	logger    logger.Logger
	client    mqtt.Client
}

func NewSubscriber(cfg config.MQTTConfig, forwarder *Forwarder, log logger.Logger) *Subscriber {
	return &Subscriber{
		cfg:       cfg,
		forwarder: forwarder,
		logger:    log,
	}
}

// Run connects to the broker and blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", s.cfg.Host, s.cfg.Port)).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval).
		SetMaxReconnectInterval(reconnectInterval).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	s.client = mqtt.NewClient(opts)

	s.logger.Infow("Connecting to MQTT broker",
		"host", s.cfg.Host,
		"port", s.cfg.Port,
		"topic", s.cfg.Topic,
	)

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		s.logger.Warnw("MQTT connect still pending, retrying in background",
			"host", s.cfg.Host,
		)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	<-ctx.Done()

	s.client.Disconnect(disconnectQuiesce)
	s.logger.Infow("MQTT subscriber stopped")
	return ctx.Err()
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	s.logger.Infow("Connected to MQTT broker", "topic", s.cfg.Topic)

	token := client.Subscribe(s.cfg.Topic, 0, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Errorw("Failed to subscribe to topic",
			"error", err,
			"topic", s.cfg.Topic,
		)
	}
}

func (s *Subscriber) onConnectionLost(client mqtt.Client, err error) {
	s.logger.Warnw("MQTT connection lost, reconnecting", "error", err)
}

func (s *Subscriber) handleMessage(client mqtt.Client, msg mqtt.Message) {
	event, err := Normalize(msg.Payload())
	if err != nil {
		metrics.ListenerMessagesTotal.WithLabelValues("parse_error").Inc()
		s.logger.Errorw("Failed to normalize frigate payload",
			"error", err,
			"topic", msg.Topic(),
		)
		return
	}

	s.logger.Infow("Detection received",
		"camera", event.Camera,
		"label", event.Label,
		"frigate_type", event.FrigateType,
		"frigate_event_id", event.EventID,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.forwarder.Forward(ctx, event); err != nil {
		metrics.ListenerMessagesTotal.WithLabelValues("forward_error").Inc()
		s.logger.Errorw("Failed to forward event",
			"error", err,
			"frigate_event_id", event.EventID,
		)
		return
	}

	metrics.ListenerMessagesTotal.WithLabelValues("forwarded").Inc()
}
