package livesync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Send throttle: the minimum gap between location frames, by current speed.
const (
	fastSendInterval = 500 * time.Millisecond
	slowSendInterval = 1500 * time.Millisecond
	fastSpeedKmh     = 2.0
)

// Reconnect backoff defaults: 1s doubling per attempt, capped at 30s.
const (
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
	dialTimeout        = 10 * time.Second
)

// Phase is the synchronizer's connection lifecycle position.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseJoined
	PhaseReconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseJoined:
		return "joined"
	case PhaseReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// State is a snapshot of the synchronizer's lifecycle.
type State struct {
	Phase       Phase
	GroupID     string
	UserID      string
	Attempt     int
	NextRetryAt time.Time
}

// TokenProvider hands out the opaque credential sent with join_group. The
// synchronizer never inspects it.
type TokenProvider func(ctx context.Context) (string, error)

// Config wires a Client. URL and Token are required; zero values elsewhere
// select the production defaults.
type Config struct {
	URL         string
	Token       TokenProvider
	Dial        Dialer
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Client keeps one rider in sync with a group session: it joins over a duplex
// channel, throttles outbound location updates with last-value-wins
// coalescing, dispatches the inbound message union to callbacks and reconnects
// with exponential backoff when the channel drops unexpectedly.
//
// All state lives behind one mutex; one reader goroutine runs per connection.
type Client struct {
	url         string
	token       TokenProvider
	dial        Dialer
	backoffBase time.Duration
	backoffMax  time.Duration
	now         func() time.Time

	// muW serializes writes; the transport allows one concurrent writer.
	muW sync.Mutex

	mu          sync.Mutex
	phase       Phase
	groupID     string
	userID      string
	conn        Conn
	members     []Member
	intentional bool
	closed      bool
	attempt     int
	nextRetryAt time.Time

	pending       *LocationUpdate
	throttleTimer *time.Timer
	lastSendAt    time.Time
	reconnTimer   *time.Timer

	onMembers func([]Member)
	onChat    func(ChatBroadcast)
	onError   func(error)
	onState   func(State)
}

func NewClient(cfg Config) *Client {
	c := &Client{
		url:         cfg.URL,
		token:       cfg.Token,
		dial:        cfg.Dial,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		now:         time.Now,
	}
	if c.dial == nil {
		c.dial = DialWebsocket
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffMax <= 0 {
		c.backoffMax = defaultBackoffMax
	}
	return c
}

// Callback setters may be called at any time, including mid-session; dispatch
// always goes through the currently registered function.

func (c *Client) SetOnMembers(fn func([]Member)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMembers = fn
}

func (c *Client) SetOnChat(fn func(ChatBroadcast)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChat = fn
}

func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

func (c *Client) SetOnState(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// Connect starts a session with the group. It returns an error for immediate
// preconditions (already active, closed, no credential); transport faults
// after that surface through the error callback and self-heal via reconnect.
// Joined status is reached only on the server's ack.
func (c *Client) Connect(ctx context.Context, groupID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("livesync: client closed")
	}
	if c.phase != PhaseDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("livesync: connect while %s", c.phase)
	}
	c.phase = PhaseConnecting
	c.groupID = groupID
	c.intentional = false
	c.attempt = 0
	c.mu.Unlock()
	c.notifyState()

	token, err := c.fetchToken(ctx)
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseDisconnected
		c.mu.Unlock()
		c.notifyState()
		c.reportError(fmt.Errorf("credential unavailable: %w", err))
		return err
	}
	c.establish(ctx, token)
	return nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	if c.token == nil {
		return "", errors.New("livesync: no token provider")
	}
	return c.token(ctx)
}

// establish dials and sends join_group. Failures count as transport faults
// and schedule a reconnect.
func (c *Client) establish(ctx context.Context, token string) {
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		c.reportError(fmt.Errorf("dial: %w", err))
		c.mu.Lock()
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.notifyState()
		return
	}

	c.mu.Lock()
	if c.closed || c.intentional {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	join := JoinGroup{Type: TypeJoinGroup, GroupID: c.groupID, Token: token}
	c.mu.Unlock()

	if err := c.write(conn, join); err != nil {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		conn.Close()
		c.reportError(fmt.Errorf("join: %w", err))
		c.notifyState()
		return
	}

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(conn, err)
			return
		}
		c.handleInbound(conn, data)
	}
}

func (c *Client) handleReadError(conn Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// A stale reader from a connection already replaced or torn down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.intentional || c.closed {
		c.mu.Unlock()
		return
	}
	if isExpectedClose(err) {
		c.phase = PhaseDisconnected
		c.stopTimersLocked()
		c.mu.Unlock()
		c.notifyState()
		return
	}
	c.scheduleReconnectLocked()
	c.mu.Unlock()
	conn.Close()
	c.reportError(fmt.Errorf("connection lost: %w", err))
	c.notifyState()
}

// handleInbound is the single dispatch point for the server message union.
// Malformed or unknown frames are logged and dropped, as is anything arriving
// on a connection that has already been replaced.
func (c *Client) handleInbound(conn Conn, data []byte) {
	c.mu.Lock()
	stale := c.conn != conn
	c.mu.Unlock()
	if stale {
		return
	}

	msg, err := ParseServerMessage(data)
	if err != nil {
		log.Printf("livesync: dropping inbound frame: %v", err)
		return
	}

	switch m := msg.(type) {
	case Joined:
		c.mu.Lock()
		c.phase = PhaseJoined
		c.userID = m.UserID
		c.attempt = 0
		c.nextRetryAt = time.Time{}
		c.mu.Unlock()
		c.notifyState()
	case GroupMemberUpdate:
		c.mu.Lock()
		c.members = append([]Member(nil), m.Members...)
		cb := c.onMembers
		members := append([]Member(nil), m.Members...)
		c.mu.Unlock()
		if cb != nil {
			cb(members)
		}
	case ChatBroadcast:
		c.mu.Lock()
		cb := c.onChat
		c.mu.Unlock()
		if cb != nil {
			cb(m)
		}
	case ServerError:
		c.reportError(fmt.Errorf("server: %s", m.Message))
	default:
		log.Printf("livesync: no handler for %T", m)
	}
}

// SendLocation queues one location frame. Outside a joined session it is a
// logged no-op. Within the throttle window the frame lands in the single
// pending slot (last value wins) and one timer flushes it when the window
// reopens.
func (c *Client) SendLocation(upd LocationUpdate) {
	c.mu.Lock()
	if c.phase != PhaseJoined {
		phase := c.phase
		c.mu.Unlock()
		log.Printf("livesync: dropping location update while %s", phase)
		return
	}
	upd.Type = TypeLocationUpdate
	upd.GroupID = c.groupID
	if upd.Timestamp == 0 {
		upd.Timestamp = c.now().UnixMilli()
	}

	interval := slowSendInterval
	if upd.SpeedKmh > fastSpeedKmh {
		interval = fastSendInterval
	}
	now := c.now()
	elapsed := now.Sub(c.lastSendAt)
	if c.lastSendAt.IsZero() || elapsed >= interval {
		if c.throttleTimer != nil {
			c.throttleTimer.Stop()
			c.throttleTimer = nil
		}
		c.pending = nil
		conn := c.conn
		c.lastSendAt = now
		c.mu.Unlock()
		c.writeLogged(conn, upd)
		return
	}

	c.pending = &upd
	if c.throttleTimer == nil {
		c.throttleTimer = time.AfterFunc(interval-elapsed, c.flushPending)
	}
	c.mu.Unlock()
}

func (c *Client) flushPending() {
	c.mu.Lock()
	c.throttleTimer = nil
	if c.phase != PhaseJoined || c.pending == nil {
		c.pending = nil
		c.mu.Unlock()
		return
	}
	upd := *c.pending
	c.pending = nil
	c.lastSendAt = c.now()
	conn := c.conn
	c.mu.Unlock()
	c.writeLogged(conn, upd)
}

// SendChat sends a chat frame immediately; chat is not throttled. Outside a
// joined session it is a logged no-op.
func (c *Client) SendChat(message, messageType string) {
	c.mu.Lock()
	if c.phase != PhaseJoined {
		phase := c.phase
		c.mu.Unlock()
		log.Printf("livesync: dropping chat message while %s", phase)
		return
	}
	msg := ChatMessage{
		Type:        TypeChatMessage,
		GroupID:     c.groupID,
		Message:     message,
		MessageType: messageType,
	}
	conn := c.conn
	c.mu.Unlock()
	c.writeLogged(conn, msg)
}

func (c *Client) write(conn Conn, v any) error {
	if conn == nil {
		return nil
	}
	c.muW.Lock()
	defer c.muW.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) writeLogged(conn Conn, v any) {
	if err := c.write(conn, v); err != nil {
		log.Printf("livesync: write failed: %v", err)
	}
}

// Leave deliberately ends the session: it tells the server, closes with the
// normal-closure code so no reconnect fires, clears timers and resets the
// backoff counter.
func (c *Client) Leave() {
	c.mu.Lock()
	c.intentional = true
	c.stopTimersLocked()
	conn := c.conn
	c.conn = nil
	wasJoined := c.phase == PhaseJoined
	groupID := c.groupID
	c.phase = PhaseDisconnected
	c.attempt = 0
	c.nextRetryAt = time.Time{}
	c.members = nil
	c.mu.Unlock()

	if conn != nil {
		if wasJoined {
			c.writeLogged(conn, LeaveGroup{Type: TypeLeaveGroup, GroupID: groupID})
		}
		conn.CloseNormal()
	}
	c.notifyState()
}

// Close leaves the session and makes the client unusable for new connects.
func (c *Client) Close() {
	c.Leave()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// State returns a snapshot of the lifecycle.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:       c.phase,
		GroupID:     c.groupID,
		UserID:      c.userID,
		Attempt:     c.attempt,
		NextRetryAt: c.nextRetryAt,
	}
}

// Members returns the latest group snapshot.
func (c *Client) Members() []Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Member(nil), c.members...)
}

// scheduleReconnectLocked arms the single reconnect timer with the next
// backoff delay. Callers hold c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.closed || c.intentional {
		return
	}
	if c.throttleTimer != nil {
		c.throttleTimer.Stop()
		c.throttleTimer = nil
	}
	c.pending = nil
	c.attempt++
	delay := c.backoffFor(c.attempt)
	c.phase = PhaseReconnecting
	c.nextRetryAt = c.now().Add(delay)
	if c.reconnTimer != nil {
		c.reconnTimer.Stop()
	}
	c.reconnTimer = time.AfterFunc(delay, c.redial)
}

func (c *Client) redial() {
	c.mu.Lock()
	if c.closed || c.intentional || c.phase != PhaseReconnecting {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseConnecting
	c.mu.Unlock()
	c.notifyState()

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	token, err := c.fetchToken(ctx)
	if err != nil {
		c.reportError(fmt.Errorf("credential unavailable: %w", err))
		c.mu.Lock()
		c.phase = PhaseDisconnected
		c.mu.Unlock()
		c.notifyState()
		return
	}
	c.establish(ctx, token)
}

func (c *Client) backoffFor(attempt int) time.Duration {
	if attempt > 30 {
		return c.backoffMax
	}
	d := c.backoffBase * time.Duration(1<<uint(attempt-1))
	if d <= 0 || d > c.backoffMax {
		d = c.backoffMax
	}
	return d
}

func (c *Client) stopTimersLocked() {
	if c.throttleTimer != nil {
		c.throttleTimer.Stop()
		c.throttleTimer = nil
	}
	if c.reconnTimer != nil {
		c.reconnTimer.Stop()
		c.reconnTimer = nil
	}
	c.pending = nil
}

func (c *Client) reportError(err error) {
	c.mu.Lock()
	cb := c.onError
	c.mu.Unlock()
	if cb != nil {
		cb(err)
	} else {
		log.Printf("livesync: %v", err)
	}
}

func (c *Client) notifyState() {
	c.mu.Lock()
	cb := c.onState
	st := State{
		Phase:       c.phase,
		GroupID:     c.groupID,
		UserID:      c.userID,
		Attempt:     c.attempt,
		NextRetryAt: c.nextRetryAt,
	}
	c.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}
