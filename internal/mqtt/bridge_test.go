package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"fireguard/internal/logging"
	"fireguard/internal/models"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return qosAtLeastOnce }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	err     error
	timeout bool
}

func (t fakeToken) Wait() bool                     { return !t.timeout }
func (t fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload string
}

// fakeClient records publishes and subscribes. Methods it does not override
// panic via the nil embedded interface.
type fakeClient struct {
	paho.Client
	mu   sync.Mutex
	sent []published
	err  error

	// subscribeResults are returned in order; the last one repeats.
	subscribeResults []fakeToken
	subscribes       []string
	closed           bool
}

func (c *fakeClient) Subscribe(topic string, _ byte, _ paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribes = append(c.subscribes, topic)
	if len(c.subscribeResults) == 0 {
		return fakeToken{}
	}
	tok := c.subscribeResults[0]
	if len(c.subscribeResults) > 1 {
		c.subscribeResults = c.subscribeResults[1:]
	}
	return tok
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeClient) subscribeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribes)
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: string(payload.([]byte))})
	return fakeToken{err: c.err}
}

type recordingDispatcher struct {
	got []models.Measurement
}

func (d *recordingDispatcher) Submit(m models.Measurement) {
	d.got = append(d.got, m)
}

func newTestBridge(client paho.Client, d Dispatcher, now time.Time) *Bridge {
	return &Bridge{
		client:         client,
		dispatcher:     d,
		publishTimeout: time.Second,
		now:            func() time.Time { return now },
		log:            logging.Discard().Component("mqtt"),
	}
}

func TestHandleMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name    string
		payload string
		want    []models.Measurement
	}{
		{
			name:    "valid",
			payload: `{"temperature": 75.5, "gas": 310.0}`,
			want:    []models.Measurement{{Temperature: 75.5, Gas: 310, ReceivedAt: now}},
		},
		{name: "missing temperature", payload: `{"gas": 300}`},
		{name: "missing gas", payload: `{"temperature": 80}`},
		{name: "null temperature", payload: `{"temperature": null, "gas": 300}`},
		{name: "string temperature", payload: `{"temperature": "75", "gas": 300}`},
		{name: "not json", payload: `ON`},
		{name: "array", payload: `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			b := newTestBridge(nil, d, now)

			b.handleMessage(nil, fakeMessage{topic: TopicSensorResponse, payload: []byte(tt.payload)})

			if len(d.got) != len(tt.want) {
				t.Fatalf("dispatched %v, want %v", d.got, tt.want)
			}
			for i := range tt.want {
				if d.got[i] != tt.want[i] {
					t.Fatalf("dispatched %+v, want %+v", d.got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeReadingError(t *testing.T) {
	_, err := DecodeReading([]byte(`{"gas": 1}`), time.Now())
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestCommands(t *testing.T) {
	client := &fakeClient{}
	b := newTestBridge(client, &recordingDispatcher{}, time.Now())

	if err := b.RequestReading(); err != nil {
		t.Fatal(err)
	}
	if err := b.SetRelay(true); err != nil {
		t.Fatal(err)
	}
	if err := b.SetBuzzer(false); err != nil {
		t.Fatal(err)
	}
	if err := b.SetLed(models.LedYellow); err != nil {
		t.Fatal(err)
	}
	if err := b.SetLed("purple"); err == nil {
		t.Fatal("expected error for invalid color")
	}

	want := []published{
		{topic: TopicSensorRequest, qos: 1, payload: "ON"},
		{topic: TopicRelay, qos: 1, payload: "true"},
		{topic: TopicBuzzer, qos: 1, payload: "false"},
		{topic: TopicLed, qos: 1, payload: `"yellow"`},
	}
	if len(client.sent) != len(want) {
		t.Fatalf("published %v, want %v", client.sent, want)
	}
	for i := range want {
		if client.sent[i] != want[i] {
			t.Errorf("publish %d = %+v, want %+v", i, client.sent[i], want[i])
		}
	}
}

func TestPublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	b := newTestBridge(client, &recordingDispatcher{}, time.Now())

	if err := b.SetRelay(true); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestSubscribeRetriesUntilAcknowledged(t *testing.T) {
	client := &fakeClient{subscribeResults: []fakeToken{
		{timeout: true},
		{err: errors.New("not authorized")},
		{},
	}}
	b := newTestBridge(client, &recordingDispatcher{}, time.Now())
	b.subscribeRetry = time.Millisecond

	b.subscribe(client)

	if got := client.subscribeCount(); got != 3 {
		t.Fatalf("expected 3 subscribe attempts, got %d", got)
	}
	for _, topic := range client.subscribes {
		if topic != TopicSensorResponse {
			t.Fatalf("subscribed to %q", topic)
		}
	}
}

func TestSubscribeStopsWhenConnectionDrops(t *testing.T) {
	client := &fakeClient{
		subscribeResults: []fakeToken{{timeout: true}},
		closed:           true,
	}
	b := newTestBridge(client, &recordingDispatcher{}, time.Now())
	b.subscribeRetry = time.Millisecond

	done := make(chan struct{})
	go func() {
		b.subscribe(client)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribe kept retrying on a closed connection")
	}
	if got := client.subscribeCount(); got != 1 {
		t.Fatalf("expected 1 subscribe attempt, got %d", got)
	}
}
