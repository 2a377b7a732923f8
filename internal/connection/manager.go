package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/wsconn/internal/buffer"
)

// Manager owns one WebSocket session at a time and keeps it alive: it
// buffers outbound messages while disconnected, probes liveness with an
// application heartbeat, and reconnects after unintended closes.
//
// All methods are safe for concurrent use. Callbacks run sequentially on a
// dedicated goroutine and may call back into the Manager.
type Manager struct {
	url      string
	cfg      options
	logger   *slog.Logger
	dispatch *dispatcher
	outbound *buffer.Queue[Message]

	// Lock-free reads for status accessors
	state   atomic.Uint32
	retries atomic.Int64
	lastMsg atomic.Pointer[Message]

	// Counters
	sent         atomic.Int64
	received     atomic.Int64
	heartbeats   atomic.Int64
	pongTimeouts atomic.Int64
	attempts     atomic.Int64
	giveUps      atomic.Int64

	mu          sync.Mutex
	sess        *session
	gen         uint64 // Generation of the newest session
	explicit    bool   // Close/Destroy requested; never reconnect
	destroyed   bool
	connectedAt time.Time

	hbTimer    *time.Timer
	pongTimer  *time.Timer
	pongSeq    uint64
	retryTimer *time.Timer
}

// session is one connection attempt. conn is nil while dialing.
type session struct {
	gen    uint64
	info   SessionInfo
	conn   Conn
	cancel context.CancelFunc
	logger *slog.Logger
}

// New creates a Manager for rawURL (ws:// or wss://). Unless
// WithImmediate(false) is given, the connection is opened right away.
func New(rawURL string, opts ...Option) (*Manager, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("url", rawURL)

	m := &Manager{
		url:      rawURL,
		cfg:      cfg,
		logger:   logger,
		dispatch: newDispatcher(logger),
		outbound: buffer.NewQueue[Message](cfg.maxBufferSize),
	}

	if cfg.immediate {
		m.Open()
	}
	return m, nil
}

// Open starts a new session. Any live session is torn down first without
// counting as an explicit close. The state is Connecting when Open returns.
//
// Open resets RetryCount to zero and cancels a pending reconnect, so a
// manager that gave up starts over with a fresh retry budget.
func (m *Manager) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.explicit = false
	m.destroyed = false
	m.retries.Store(0)
	m.stopRetryLocked()

	if m.sess != nil {
		m.teardownLocked(CloseEvent{
			Code:     CloseNormalClosure,
			Reason:   "reopening",
			Explicit: true,
		})
	}
	m.startSessionLocked()
}

// Close ends the session with the given close code and reason. It never
// triggers a reconnect and is a no-op beyond clearing timers when already
// closed.
func (m *Manager) Close(code int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(code, reason)
}

// CloseNormal is Close(CloseNormalClosure, "").
func (m *Manager) CloseNormal() {
	m.Close(CloseNormalClosure, "")
}

// Destroy closes the connection and discards buffered messages. Send fails
// without buffering until Open is called again.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked(CloseNormalClosure, "")
	m.destroyed = true
	if n := m.outbound.Clear(); n > 0 {
		m.logger.Debug("discarded buffered messages", "count", n)
	}
}

// Send transmits msg if open, flushing any backlog first. Otherwise msg is
// buffered (when buffering is enabled) and false is returned.
func (m *Manager) Send(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLocked(msg, true)
}

// SendUnbuffered is Send without buffering when not open.
func (m *Manager) SendUnbuffered(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLocked(msg, false)
}

// SendText sends a text frame.
func (m *Manager) SendText(s string) bool {
	return m.Send(TextMessage(s))
}

// SendBinary sends a binary frame.
func (m *Manager) SendBinary(b []byte) bool {
	return m.Send(BinaryMessage(b))
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether the state is Open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// RetryCount returns the number of reconnect attempts since the last
// successful open.
func (m *Manager) RetryCount() int {
	return int(m.retries.Load())
}

// LastMessage returns the most recent inbound message forwarded to
// OnMessage, if any.
func (m *Manager) LastMessage() (Message, bool) {
	if p := m.lastMsg.Load(); p != nil {
		return *p, true
	}
	return Message{}, false
}

// Session returns the live session, if any. The session may still be
// connecting.
func (m *Manager) Session() (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return SessionInfo{}, false
	}
	return m.sess.info, true
}

// URL returns the target URL.
func (m *Manager) URL() string {
	return m.url
}

// Stats returns a diagnostics snapshot.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	connectedAt := m.connectedAt
	m.mu.Unlock()

	qs := m.outbound.Stats()
	return Stats{
		State:             m.State(),
		RetryCount:        m.RetryCount(),
		Buffered:          qs.Count,
		Evicted:           qs.TotalEvicted,
		MessagesSent:      m.sent.Load(),
		MessagesReceived:  m.received.Load(),
		HeartbeatsSent:    m.heartbeats.Load(),
		PongTimeouts:      m.pongTimeouts.Load(),
		ReconnectAttempts: m.attempts.Load(),
		GiveUps:           m.giveUps.Load(),
		ConnectedAt:       connectedAt,
	}
}

func (m *Manager) setState(s State) {
	m.state.Store(uint32(s))
}

// currentLocked reports whether s is still the live session.
func (m *Manager) currentLocked(s *session) bool {
	return m.sess == s && m.gen == s.gen
}

func (m *Manager) closeLocked(code int, reason string) {
	m.explicit = true
	m.stopRetryLocked()
	m.stopHeartbeatLocked()

	if m.sess != nil {
		m.teardownLocked(CloseEvent{Code: code, Reason: reason, Explicit: true})
	}
	m.setState(StateClosed)
}

// startSessionLocked creates a session in Connecting and dials in the background.
func (m *Manager) startSessionLocked() {
	m.gen++
	ctx, cancel := context.WithCancel(context.Background())

	s := &session{
		gen: m.gen,
		info: SessionInfo{
			ID:         uuid.New(),
			Generation: m.gen,
			URL:        m.url,
		},
		cancel: cancel,
	}
	s.logger = m.logger.With("session", s.info.ID, "generation", s.gen)

	m.sess = s
	m.setState(StateConnecting)
	s.logger.Debug("connecting")

	go m.dial(ctx, s)
}

func (m *Manager) dial(ctx context.Context, s *session) {
	conn, err := m.cfg.dialer.Dial(ctx, m.url, m.cfg.protocols)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(s) {
		// Superseded while dialing
		if conn != nil {
			go func() { _ = conn.Close(CloseNormalClosure, "") }()
		}
		return
	}

	if err != nil {
		s.logger.Warn("dial failed", "error", err)
		m.emitError(s.info, err)
		m.handleCloseLocked(s, CloseEvent{
			Code:   CloseAbnormalClosure,
			Reason: "dial failed",
			Err:    err,
		})
		return
	}

	s.conn = conn
	s.info.Subprotocol = conn.Subprotocol()
	m.openLocked(s)

	go m.readLoop(s, conn)
}

// openLocked performs the Connecting → Open transition.
func (m *Manager) openLocked(s *session) {
	reconnected := m.retries.Load() > 0

	m.setState(StateOpen)
	m.retries.Store(0)
	m.connectedAt = time.Now()

	s.logger.Info("websocket connected",
		"subprotocol", s.info.Subprotocol,
		"reconnected", reconnected,
	)

	info := s.info
	if cb := m.cfg.onConnected; cb != nil {
		m.dispatch.post(func() { cb(info) })
	}
	if cb := m.cfg.onReconnected; cb != nil && reconnected {
		m.dispatch.post(func() { cb(info) })
	}

	m.startHeartbeatLocked(s)
	m.flushLocked(s)
}

func (m *Manager) readLoop(s *session, conn Conn) {
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(s, err)
			return
		}
		if !m.handleInbound(s, msg) {
			return
		}
	}
}

// handleInbound returns false once s is stale.
func (m *Manager) handleInbound(s *session, msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(s) {
		return false
	}
	if m.isHeartbeatReplyLocked(msg) {
		m.cancelPongLocked()
		return true
	}

	m.received.Add(1)
	m.lastMsg.Store(&msg)

	if cb := m.cfg.onMessage; cb != nil {
		info := s.info
		m.dispatch.post(func() { cb(info, msg) })
	}
	return true
}

func (m *Manager) handleReadError(s *session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(s) {
		return
	}

	if ce, ok := err.(*CloseError); ok {
		s.logger.Info("websocket closed by peer", "code", ce.Code, "reason", ce.Reason)
		m.handleCloseLocked(s, CloseEvent{Code: ce.Code, Reason: ce.Reason})
		return
	}

	s.logger.Warn("websocket read failed", "error", err)
	m.emitError(s.info, err)
	m.handleCloseLocked(s, CloseEvent{Code: CloseAbnormalClosure, Err: err})
}

// handleCloseLocked ends s after a failure and evaluates reconnection.
func (m *Manager) handleCloseLocked(s *session, ev CloseEvent) {
	if !m.currentLocked(s) {
		return
	}
	m.teardownLocked(ev)
	m.maybeReconnectLocked()
}

// teardownLocked stops the live session's timers, releases its transport
// and reports OnDisconnected. The state becomes Closed.
func (m *Manager) teardownLocked(ev CloseEvent) {
	s := m.sess
	if s == nil {
		return
	}

	m.stopHeartbeatLocked()
	s.cancel()
	m.sess = nil
	m.connectedAt = time.Time{}
	m.setState(StateClosed)

	if conn := s.conn; conn != nil {
		code, reason := wireCloseCode(ev.Code), ev.Reason
		go func() {
			if err := conn.Close(code, reason); err != nil {
				s.logger.Debug("close transport", "error", err)
			}
		}()
	}

	s.logger.Debug("session ended",
		"code", ev.Code,
		"reason", ev.Reason,
		"explicit", ev.Explicit,
	)

	if cb := m.cfg.onDisconnected; cb != nil {
		info := s.info
		m.dispatch.post(func() { cb(info, ev) })
	}
}

func (m *Manager) sendLocked(msg Message, useBuffer bool) bool {
	if m.destroyed {
		return false
	}

	s := m.sess
	if s == nil || s.conn == nil || m.State() != StateOpen {
		if useBuffer && m.cfg.buffer {
			m.enqueueLocked(msg)
		}
		return false
	}

	if !m.flushLocked(s) {
		if useBuffer && m.cfg.buffer {
			m.enqueueLocked(msg)
		}
		return false
	}

	if err := s.conn.WriteMessage(msg); err != nil {
		if useBuffer && m.cfg.buffer {
			m.enqueueLocked(msg)
		}
		m.writeFailedLocked(s, err)
		return false
	}
	m.sent.Add(1)
	return true
}

func (m *Manager) enqueueLocked(msg Message) {
	if m.outbound.Push(msg) {
		m.logger.Debug("outbound buffer full, evicted oldest message",
			"limit", m.outbound.Limit(),
		)
	}
}

// flushLocked writes the backlog in FIFO order. A message leaves the buffer
// only after it was written. Returns false if a write failed, in which case
// the session has been closed.
func (m *Manager) flushLocked(s *session) bool {
	for {
		msg, ok := m.outbound.Peek()
		if !ok {
			return true
		}
		if err := s.conn.WriteMessage(msg); err != nil {
			m.writeFailedLocked(s, err)
			return false
		}
		m.outbound.Pop()
		m.sent.Add(1)
	}
}

func (m *Manager) writeFailedLocked(s *session, err error) {
	s.logger.Warn("websocket write failed", "error", err)
	m.emitError(s.info, err)
	m.handleCloseLocked(s, CloseEvent{
		Code:   CloseAbnormalClosure,
		Reason: "write failed",
		Err:    err,
	})
}

func (m *Manager) emitError(info SessionInfo, err error) {
	if cb := m.cfg.onError; cb != nil {
		m.dispatch.post(func() { cb(info, err) })
	}
}

// wireCloseCode maps codes that must not be sent in a close frame to a
// normal closure.
func wireCloseCode(code int) int {
	switch code {
	case 0, CloseNoStatusReceived, CloseAbnormalClosure, 1015:
		return CloseNormalClosure
	}
	return code
}
