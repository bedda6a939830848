package mqttbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const qos = 1

// QRForwarder hands a scanned payload to the backend.
type QRForwarder interface {
	Forward(ctx context.Context, qrText string) (IntakeResult, error)
}

// Listener subscribes to the QR topic and keeps a retained presence message fresh.
type Listener struct {
	cfg       Config
	clientID  string
	forwarder QRForwarder
	logger    *slog.Logger
	now       func() time.Time
}

// NewListener constructs a Listener with a fresh client id.
func NewListener(cfg Config, forwarder QRForwarder, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	clientID := NewClientID()
	return &Listener{
		cfg:       cfg,
		clientID:  clientID,
		forwarder: forwarder,
		logger:    logger.With(slog.String("client_id", clientID)),
		now:       time.Now,
	}
}

// ClientID returns the MQTT client id.
func (l *Listener) ClientID() string { return l.clientID }

func (l *Listener) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.Broker).
		SetClientID(l.clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetWill(l.cfg.PresenceTopic, string(PresencePayload(l.clientID, StatusOffline, l.now())), qos, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		l.logger.Info("connected to broker", slog.String("broker", l.cfg.Broker))
		if tok := c.Subscribe(l.cfg.QRTopic, qos, l.onMessage); tok.Wait() && tok.Error() != nil {
			l.logger.Error("subscribe", slog.String("topic", l.cfg.QRTopic), slog.Any("error", tok.Error()))
		}
		l.publishPresence(c, StatusOnline)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		l.logger.Warn("connection lost", slog.Any("error", err))
	})
	return opts
}

// Run connects and blocks until ctx is cancelled, publishing presence on every tick.
func (l *Listener) Run(ctx context.Context) error {
	client := mqtt.NewClient(l.options())
	tok := client.Connect()
	if !tok.WaitTimeout(l.cfg.ConnectTimeout) {
		return errors.New("mqtt connect timed out")
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	l.logger.Info("mqtt listener started", slog.String("qr_topic", l.cfg.QRTopic))

	ticker := time.NewTicker(l.cfg.PresenceEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.publishPresence(client, StatusOffline)
			client.Disconnect(250)
			l.logger.Info("mqtt listener stopped")
			return nil
		case <-ticker.C:
			l.publishPresence(client, StatusOnline)
		}
	}
}

func (l *Listener) publishPresence(c mqtt.Client, status string) {
	payload := PresencePayload(l.clientID, status, l.now())
	tok := c.Publish(l.cfg.PresenceTopic, qos, true, payload)
	if tok.WaitTimeout(5*time.Second) && tok.Error() != nil {
		l.logger.Warn("publish presence", slog.String("status", status), slog.Any("error", tok.Error()))
		return
	}
	l.logger.Debug("presence published", slog.String("status", status))
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	l.handle(context.Background(), msg.Topic(), msg.Payload())
}

// handle forwards one payload. Failures are logged and never stop the listener.
func (l *Listener) handle(ctx context.Context, topic string, payload []byte) {
	if topic != l.cfg.QRTopic {
		return
	}
	text := string(payload)
	l.logger.Info("qr payload received", slog.String("payload", text))
	timeout := l.cfg.RequestLimit
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := l.forwarder.Forward(ctx, text)
	if err != nil {
		l.logger.Error("forward qr payload", slog.Any("error", err))
		return
	}
	l.logger.Info("qr payload stored",
		slog.Int64("product_id", res.ProductID),
		slog.String("name", res.Name),
		slog.Bool("created", res.Created),
		slog.Int64("available", res.Available),
		slog.String("status", res.StockState))
}
