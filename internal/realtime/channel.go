// internal/realtime/channel.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	wstypes "notification-relay/internal/domain/websocket"
	"notification-relay/internal/eventbus"
	xerrors "notification-relay/internal/pkg/errors"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	defaultPath              = "/ws/notifications"
	defaultHeartbeatInterval = 30 * time.Second
	defaultReconnectDelay    = 5 * time.Second
	defaultMaxAttempts       = 5
	defaultHandshakeTimeout  = 10 * time.Second
	defaultWriteWait         = 10 * time.Second
	defaultSendBuffer        = 256
	defaultMaxMessageSize    = 512 * 1024 // 512KB
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// TokenProvider resolves the auth token used to open the connection. An empty
// token is treated as unavailable.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// Dispatcher receives every parsed inbound envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *wstypes.Envelope)
}

type Config struct {
	BaseURL           string
	Path              string
	HeartbeatInterval time.Duration
	MaxAttempts       int
	Backoff           Backoff
	HandshakeTimeout  time.Duration
	WriteWait         time.Duration
	SendBuffer        int
	MaxMessageSize    int64
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Backoff == nil {
		c.Backoff = FixedBackoff{Delay: defaultReconnectDelay}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

type ChannelEventType string

const (
	EventStateChanged       ChannelEventType = "state_changed"
	EventReconnectExhausted ChannelEventType = "reconnect_exhausted"
)

type ChannelEvent struct {
	Type     ChannelEventType `json:"type"`
	State    State            `json:"state"`
	Previous State            `json:"previous,omitempty"`
	Attempt  int              `json:"attempt"`
	At       time.Time        `json:"at"`
}

// Status is a point-in-time view of the channel.
type Status struct {
	State       State  `json:"state"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	ConnID      string `json:"conn_id,omitempty"`
}

// session is one open socket. send is never closed; writers select on ctx.
type session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (s *session) close() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}

// Channel keeps one authenticated socket to the push server open and
// reconnects after transport failures.
type Channel struct {
	cfg        Config
	tokens     TokenProvider
	dispatcher Dispatcher
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu        sync.Mutex
	state     State
	attempts  int
	gen       uint64
	sess      *session
	reconnect *time.Timer
	closed    bool

	events *eventbus.Bus[ChannelEvent]
	raw    *eventbus.Bus[[]byte]
}

func NewChannel(cfg Config, tokens TokenProvider, dispatcher Dispatcher, logger *zap.Logger) *Channel {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		cfg:        cfg,
		tokens:     tokens,
		dispatcher: dispatcher,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.With(zap.String("component", "realtime")),
		state:  StateDisconnected,
		events: eventbus.New[ChannelEvent](),
		raw:    eventbus.New[[]byte](),
	}
}

// BuildURL derives the socket address from the configured base address.
func BuildURL(base, path, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", xerrors.Invalid("base url: %v", err)
	}

	var scheme string
	switch u.Scheme {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", xerrors.Invalid("base url scheme %q not supported", u.Scheme)
	}
	if u.Host == "" {
		return "", xerrors.Invalid("base url has no host")
	}
	if path == "" {
		path = defaultPath
	}

	target := url.URL{
		Scheme:   scheme,
		Host:     u.Host,
		Path:     path,
		RawQuery: url.Values{"token": []string{token}}.Encode(),
	}
	return target.String(), nil
}

// Connect opens the socket. It is a no-op while connecting or connected.
// Missing tokens fail fast with ErrAuthUnavailable and leave the channel
// disconnected. Dial failures schedule a reconnect.
func (c *Channel) Connect(ctx context.Context) error {
	return c.connect(ctx, false)
}

func (c *Channel) connect(ctx context.Context, auto bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.stopReconnectLocked()
	gen := c.gen
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	token, err := c.token(dialCtx)
	if err != nil {
		c.logger.Warn("realtime connect skipped: no auth token", zap.Error(err))
		if auto {
			c.handleFailure(gen, nil)
		} else {
			c.abort(gen)
		}
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	target, err := BuildURL(c.cfg.BaseURL, c.cfg.Path, token)
	if err != nil {
		c.logger.Error("realtime connect skipped: bad base url", zap.Error(err))
		c.abort(gen)
		return err
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.Int("attempt", c.Attempts())}
		if resp != nil {
			fields = append(fields, zap.Int("status", resp.StatusCode))
		}
		c.logger.Warn("realtime dial failed", fields...)
		c.handleFailure(gen, nil)
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &session{
		id:     ulid.Make().String(),
		conn:   conn,
		send:   make(chan []byte, c.cfg.SendBuffer),
		ctx:    sessCtx,
		cancel: sessCancel,
	}

	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		sess.close()
		return ErrClosed
	}
	c.sess = sess
	c.attempts = 0
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.logger.Info("realtime connected", zap.String("conn_id", sess.id))

	go c.writePump(sess)
	go c.readPump(gen, sess)
	return nil
}

func (c *Channel) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", xerrors.ErrUnauthorized
	}
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", xerrors.ErrUnauthorized
	}
	return token, nil
}

// abort returns a connect attempt to disconnected without scheduling a retry.
func (c *Channel) abort(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.setStateLocked(StateDisconnected)
	}
}

// handleFailure moves to disconnected and schedules the next attempt while
// attempts remain. sess is nil for dial failures.
func (c *Channel) handleFailure(gen uint64, sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.closed {
		return
	}
	if sess != nil {
		if c.sess != sess {
			return
		}
		c.sess = nil
		sess.close()
		c.logger.Info("realtime connection lost", zap.String("conn_id", sess.id))
	}

	c.setStateLocked(StateDisconnected)

	if c.attempts >= c.cfg.MaxAttempts {
		c.logger.Warn("realtime reconnect attempts exhausted", zap.Int("attempt", c.attempts))
		c.events.Publish(ChannelEvent{
			Type:    EventReconnectExhausted,
			State:   StateDisconnected,
			Attempt: c.attempts,
			At:      time.Now(),
		})
		return
	}

	c.attempts++
	delay := c.cfg.Backoff.Next(c.attempts)
	c.setStateLocked(StateReconnecting)
	c.logger.Info("realtime reconnect scheduled",
		zap.Int("attempt", c.attempts),
		zap.Duration("delay", delay),
	)
	c.reconnect = time.AfterFunc(delay, func() { c.fireReconnect(gen) })
}

func (c *Channel) fireReconnect(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	c.mu.Unlock()

	_ = c.connect(context.Background(), true)
}

func (c *Channel) readPump(gen uint64, sess *session) {
	defer c.handleFailure(gen, sess)

	liveness := 2 * c.cfg.HeartbeatInterval
	sess.conn.SetReadLimit(c.cfg.MaxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(liveness))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(liveness))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if sess.ctx.Err() == nil {
				c.logger.Warn("realtime read failed", zap.String("conn_id", sess.id), zap.Error(err))
			}
			return
		}

		c.raw.Publish(data)

		env, err := wstypes.ParseEnvelope(data)
		if err != nil {
			c.logger.Warn("malformed frame dropped", zap.String("conn_id", sess.id), zap.Error(err))
			continue
		}
		sess.conn.SetReadDeadline(time.Now().Add(liveness))

		if c.dispatcher != nil {
			c.dispatcher.Dispatch(sess.ctx, env)
		}
	}
}

func (c *Channel) writePump(sess *session) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	ping, _ := wstypes.Ping().ToJSON()

	for {
		var msg []byte
		select {
		case <-sess.ctx.Done():
			return
		case msg = <-sess.send:
		case <-ticker.C:
			msg = ping
		}

		sess.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
		if err := sess.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Warn("realtime write failed", zap.String("conn_id", sess.id), zap.Error(err))
			sess.close()
			return
		}
	}
}

// Send JSON-encodes msg and queues it for the writer. It drops the message and
// reports false when not connected or when the send buffer is full.
func (c *Channel) Send(msg any) bool {
	var data []byte
	switch m := msg.(type) {
	case json.RawMessage:
		data = m
	default:
		encoded, err := json.Marshal(msg)
		if err != nil {
			c.logger.Error("realtime send: encode failed", zap.Error(err))
			return false
		}
		data = encoded
	}

	c.mu.Lock()
	sess := c.sess
	connected := c.state == StateConnected
	c.mu.Unlock()

	if sess == nil || !connected {
		c.logger.Debug("realtime send dropped: not connected")
		return false
	}

	select {
	case sess.send <- data:
		return true
	case <-sess.ctx.Done():
		return false
	default:
		c.logger.Warn("realtime send dropped: buffer full", zap.String("conn_id", sess.id))
		return false
	}
}

// Disconnect cancels any pending reconnect and closes the socket. No further
// reconnects are scheduled until Connect is called again.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.stopReconnectLocked()
	sess := c.sess
	c.sess = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if sess == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = sess.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
	sess.close()
	c.logger.Info("realtime disconnected", zap.String("conn_id", sess.id))
}

// Close disconnects and releases every subscriber stream.
func (c *Channel) Close() {
	c.Disconnect()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.events.Close()
	c.raw.Close()
}

func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{State: c.state, Attempts: c.attempts, MaxAttempts: c.cfg.MaxAttempts}
	if c.sess != nil {
		s.ConnID = c.sess.id
	}
	return s
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Events streams state transitions and the exhaustion signal.
func (c *Channel) Events(buffer int) (<-chan ChannelEvent, func()) {
	return c.events.Subscribe(buffer)
}

// Raw streams every inbound frame as received, malformed ones included.
func (c *Channel) Raw(buffer int) (<-chan []byte, func()) {
	return c.raw.Subscribe(buffer)
}

func (c *Channel) stopReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Channel) setStateLocked(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Debug("realtime state changed",
		zap.String("state", string(next)),
		zap.String("previous", string(prev)),
	)
	c.events.Publish(ChannelEvent{
		Type:     EventStateChanged,
		State:    next,
		Previous: prev,
		Attempt:  c.attempts,
		At:       time.Now(),
	})
}
