package websocketPkg

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"trashiq/internal/entity"
	"trashiq/pkg/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConnected = errors.New("not connected to inference service")

type handshakeRequest struct {
	Type string `json:"type"`
}

type inferenceReply struct {
	Classes    []string          `json:"classes,omitempty"`
	Detections []remoteDetection `json:"detections"`
	Error      string            `json:"error,omitempty"`
}

type remoteDetection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

// InferenceClient is a detector.Detector backed by a remote model server.
// Each Detect is one binary frame out and one JSON reply back; round trips
// are serialized on the single connection.
type InferenceClient struct {
	url          string
	conn         *websocket.Conn
	classes      []string
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

type Option func(*InferenceClient)

func WithTimeouts(read, write time.Duration) Option {
	return func(c *InferenceClient) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(c *InferenceClient) {
		c.pingInterval = d
	}
}

// NewInferenceClient dials url and fetches the model's class list. Any
// failure is returned so the caller can mark the model unavailable.
func NewInferenceClient(url string, log *logrus.Logger, opts ...Option) (*InferenceClient, error) {
	if url == "" {
		return nil, fmt.Errorf("inference websocket URL not configured")
	}

	c := &InferenceClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  30 * time.Second,
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	reply, err := c.roundTrip(websocket.TextMessage, mustMarshal(handshakeRequest{Type: "classes"}))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("fetch model classes: %w", err)
	}
	if len(reply.Classes) == 0 {
		c.Close()
		return nil, fmt.Errorf("inference service reported no classes")
	}
	c.classes = reply.Classes

	go c.keepAlive()

	c.log.WithFields(logrus.Fields{
		"url":     url,
		"classes": c.classes,
	}).Info("Connected to remote inference service")

	return c, nil
}

func (c *InferenceClient) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		conn.Close()
		return ErrNotConnected
	default:
	}

	// another caller reconnected first
	if c.conn != nil {
		conn.Close()
		return nil
	}
	c.conn = conn
	return nil
}

func (c *InferenceClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			continue
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping to inference service failed, dropping connection: %v", err)
			conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}
}

func (c *InferenceClient) roundTrip(messageType int, payload []byte) (*inferenceReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conn
	if conn == nil {
		return nil, ErrNotConnected
	}

	drop := func() {
		conn.Close()
		c.conn = nil
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(messageType, payload); err != nil {
		drop()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		drop()
		return nil, fmt.Errorf("error reading reply: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var reply inferenceReply
	if err := json.Unmarshal(message, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling reply: %w", err)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}

	return &reply, nil
}

func (c *InferenceClient) Detect(ctx context.Context, image []byte) ([]entity.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply, err := c.roundTrip(websocket.BinaryMessage, image)
	if errors.Is(err, ErrNotConnected) {
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("cannot reconnect to inference service: %w", err)
		}
		reply, err = c.roundTrip(websocket.BinaryMessage, image)
	}
	if err != nil {
		return nil, err
	}

	detections := make([]entity.RawDetection, 0, len(reply.Detections))
	for _, d := range reply.Detections {
		if len(d.Box) != 4 {
			return nil, fmt.Errorf("detection %q has %d box values, want 4", d.Label, len(d.Box))
		}
		detections = append(detections, entity.RawDetection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box: entity.BoundingBox{
				X1: d.Box[0],
				Y1: d.Box[1],
				X2: d.Box[2],
				Y2: d.Box[3],
			},
		})
	}

	c.log.Debugf("Remote inference returned %d detections", len(detections))
	return detections, nil
}

func (c *InferenceClient) Classes() []string {
	return append([]string(nil), c.classes...)
}

func (c *InferenceClient) Ready() bool {
	return true
}

func (c *InferenceClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var _ detector.Detector = (*InferenceClient)(nil)
