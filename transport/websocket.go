package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"voicebridge/core"
	"voicebridge/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultSendBufferSize    = 256
	writeTimeout             = 10 * time.Second
)

// Config configures the voice websocket client.
type Config struct {
	// Host and Port locate the remote pipeline server.
	Host string
	Port int
	// Secure selects wss:// over ws://.
	Secure bool
	// ClientID is the opaque per-session identifier used as the final URL
	// path segment. Generated when empty.
	ClientID string
	// HeartbeatInterval between ping control messages. Defaults to 30s.
	HeartbeatInterval time.Duration
	// LivenessTimeout, when positive, closes the connection if no pong has
	// arrived within the timeout at ping time. Zero disables the check.
	LivenessTimeout time.Duration
	Logger          *core.Logger
}

type outFrame struct {
	messageType int
	data        []byte
}

// Client is the duplex websocket connection to the remote voice pipeline.
// It interleaves two message classes: binary frames carrying raw PCM audio
// in both directions, and text frames carrying JSON control messages. The
// two are distinguished by websocket frame type only, never by content.
type Client struct {
	config Config
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	logger *core.Logger

	// Callbacks set before Open. Invoked from the read loop in arrival
	// order; OnClose fires once when the underlying channel reports closed.
	OnBinary  func(payload []byte)
	OnControl func(msg protocol.Message)
	OnClose   func(err error)

	sendCh    chan outFrame
	done      chan struct{}
	open      atomic.Bool
	lastPong  atomic.Int64 // unix nanos of the most recent pong
	closeOnce sync.Once
	doneOnce  sync.Once
}

// NewClient creates a client. The connection is not dialed until Open.
func NewClient(cfg Config) *Client {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetLogger()
	}
	return &Client{
		config: cfg,
		logger: cfg.Logger.With(map[string]interface{}{"component": "transport", "client_id": cfg.ClientID}),
		sendCh: make(chan outFrame, defaultSendBufferSize),
		done:   make(chan struct{}),
	}
}

// ClientID returns the per-session identifier.
func (c *Client) ClientID() string { return c.config.ClientID }

// URL builds the connection URI: scheme://host:port/ws/<clientID>.
func (c *Client) URL() string {
	scheme := "ws"
	if c.config.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/ws/%s", scheme, c.config.Host, c.config.Port, c.config.ClientID)
}

// SetHandlers installs the inbound callbacks. Must be called before Open.
func (c *Client) SetHandlers(onBinary func([]byte), onControl func(protocol.Message), onClose func(error)) {
	c.OnBinary = onBinary
	c.OnControl = onControl
	c.OnClose = onClose
}

// Open dials the server, sends the ready control message, and starts the
// read/write/heartbeat loops. It returns a ConnectionError if the
// handshake does not complete.
func (c *Client) Open(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	url := c.URL()
	c.logger.With(map[string]interface{}{"url": url}).Info("connecting to voice pipeline")

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, url, nil)
	if err != nil {
		c.cancel()
		return &core.ConnectionError{URL: url, Err: err}
	}
	c.conn = conn
	c.lastPong.Store(time.Now().UnixNano())

	// Ready goes out immediately, before the loops start, so it is the
	// first frame the server sees.
	data, err := protocol.Marshal(protocol.Ready())
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		conn.Close()
		c.cancel()
		return &core.ConnectionError{URL: url, Err: fmt.Errorf("send ready: %w", err)}
	}

	c.open.Store(true)

	go c.readLoop()
	go c.writeLoop()
	go c.heartbeatLoop()

	return nil
}

// SendAudio queues one binary PCM frame. Fire-and-forget: a no-op when the
// transport is not open, by design, to avoid error storms during teardown
// races.
func (c *Client) SendAudio(payload []byte) {
	if !c.open.Load() {
		return
	}
	c.enqueue(outFrame{messageType: websocket.BinaryMessage, data: payload})
}

// SendControl queues one JSON control message. Same no-op-if-closed rule
// as SendAudio.
func (c *Client) SendControl(msg protocol.Message) {
	if !c.open.Load() {
		return
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err, "type": string(msg.Type)}).Warn("failed to marshal control message, dropping")
		return
	}
	c.enqueue(outFrame{messageType: websocket.TextMessage, data: data})
}

// Close initiates graceful shutdown. Subsequent sends are no-ops. Safe to
// call from any state, multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		if c.cancel != nil {
			c.cancel()
		}
		if c.conn != nil {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.conn.Close()
		} else {
			c.doneOnce.Do(func() { close(c.done) })
		}
	})
	return nil
}

// Wait blocks until the connection has closed.
func (c *Client) Wait() {
	<-c.done
}

func (c *Client) enqueue(frame outFrame) {
	select {
	case c.sendCh <- frame:
	default:
		// Buffer full — drop oldest and push new.
		select {
		case <-c.sendCh:
		default:
		}
		select {
		case c.sendCh <- frame:
		default:
		}
	}
}

func (c *Client) readLoop() {
	var closeErr error
	defer func() {
		c.open.Store(false)
		c.cancel()
		c.doneOnce.Do(func() { close(c.done) })
		if c.OnClose != nil {
			c.OnClose(closeErr)
		}
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.With(map[string]interface{}{"error": err}).Warn("voice pipeline connection lost")
				closeErr = err
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if c.OnBinary != nil {
				c.OnBinary(data)
			}

		case websocket.TextMessage:
			msg, err := protocol.Unmarshal(data)
			if err != nil {
				c.logger.With(map[string]interface{}{"error": err}).Warn("invalid control message from server")
				continue
			}
			if msg.Type == protocol.MsgPong {
				c.lastPong.Store(time.Now().UnixNano())
			}
			if c.OnControl != nil {
				c.OnControl(msg)
			}
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case frame := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				c.logger.With(map[string]interface{}{"error": err}).Warn("write to voice pipeline failed")
				c.conn.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if timeout := c.config.LivenessTimeout; timeout > 0 {
				last := time.Unix(0, c.lastPong.Load())
				if time.Since(last) > timeout {
					c.logger.With(map[string]interface{}{"last_pong": last}).Warn("no pong within liveness timeout, closing connection")
					c.Close()
					return
				}
			}
			c.SendControl(protocol.Ping(float64(time.Now().UnixNano()) / float64(time.Second)))
		case <-c.ctx.Done():
			return
		}
	}
}
