// Package mqtt connects to the broker, listens for sensor readings and
// publishes device commands.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fireguard/internal/models"
)

const (
	TopicSensorResponse = "sensor/response"
	TopicSensorRequest  = "sensor/request"
	TopicRelay          = "relay"
	TopicBuzzer         = "buzzer"
	TopicLed            = "led"

	// QoS 1: acknowledged, may be delivered more than once.
	qosAtLeastOnce = 1

	requestTrigger = "ON"

	maxSubscribeRetry = 30 * time.Second
)

// Dispatcher receives decoded readings. It is called on the paho callback
// goroutine and must return quickly.
type Dispatcher interface {
	Submit(m models.Measurement)
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// Bridge owns the broker session.
type Bridge struct {
	client         paho.Client
	dispatcher     Dispatcher
	publishTimeout time.Duration
	subscribeRetry time.Duration
	now            func() time.Time
	log            *logrus.Entry
}

func NewBridge(cfg Config, dispatcher Dispatcher, log *logrus.Entry) *Bridge {
	b := &Bridge{
		dispatcher:     dispatcher,
		publishTimeout: 10 * time.Second,
		subscribeRetry: time.Second,
		now:            time.Now,
		log:            log,
	}

	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)).
		SetClientID("fireguard-" + uuid.New().String()[:8]).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetConnectTimeout(10 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.log.Errorf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(b.onConnect)
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	b.client = paho.NewClient(opts)
	return b
}

// Connect opens the first session. Later drops are handled by paho's
// auto-reconnect.
func (b *Bridge) Connect(timeout time.Duration) error {
	token := b.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connect timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	return nil
}

// onConnect runs after every successful (re)connect. The session is clean,
// so the subscription has to be made again each time.
func (b *Bridge) onConnect(c paho.Client) {
	b.log.Infof("MQTT connection established")
	go b.subscribe(c)
}

// subscribe retries until the broker acknowledges the subscription or the
// connection drops. A dropped connection resubscribes from onConnect.
func (b *Bridge) subscribe(c paho.Client) {
	delay := b.subscribeRetry
	for attempt := 1; ; attempt++ {
		err := waitToken(c.Subscribe(TopicSensorResponse, qosAtLeastOnce, b.handleMessage), b.publishTimeout)
		if err == nil {
			b.log.Infof("Subscribed to %s", TopicSensorResponse)
			return
		}
		b.log.Errorf("Subscribe to %s failed (attempt %d): %v", TopicSensorResponse, attempt, err)
		if !c.IsConnectionOpen() {
			return
		}
		time.Sleep(delay)
		delay = min(delay*2, maxSubscribeRetry)
	}
}

func waitToken(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("no acknowledgement after %s", timeout)
	}
	return token.Error()
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	m, err := DecodeReading(msg.Payload(), b.now())
	if err != nil {
		b.log.Warnf("Dropping message on %s: %v", msg.Topic(), err)
		return
	}
	b.log.Debugf("Temperature: %.2f, Gas: %.2f", m.Temperature, m.Gas)
	b.dispatcher.Submit(m)
}

// RequestReading asks the hardware to take a reading now.
func (b *Bridge) RequestReading() error {
	return b.publish(TopicSensorRequest, []byte(requestTrigger))
}

func (b *Bridge) SetRelay(on bool) error {
	return b.publishJSON(TopicRelay, on)
}

func (b *Bridge) SetBuzzer(on bool) error {
	return b.publishJSON(TopicBuzzer, on)
}

func (b *Bridge) SetLed(color models.LedColor) error {
	if !color.Valid() {
		return fmt.Errorf("invalid led color %q", color)
	}
	return b.publishJSON(TopicLed, string(color))
}

func (b *Bridge) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s command: %w", topic, err)
	}
	return b.publish(topic, payload)
}

func (b *Bridge) publish(topic string, payload []byte) error {
	if err := waitToken(b.client.Publish(topic, qosAtLeastOnce, false, payload), b.publishTimeout); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *Bridge) IsConnected() bool {
	return b.client.IsConnected()
}

// Disconnect waits up to quiesce milliseconds for pending work.
func (b *Bridge) Disconnect(quiesce uint) {
	b.client.Disconnect(quiesce)
	b.log.Infof("MQTT client disconnected")
}
