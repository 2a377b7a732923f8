package connection

import (
	"bytes"
	"time"
)

// startHeartbeatLocked schedules the first probe for s.
func (m *Manager) startHeartbeatLocked(s *session) {
	hb := m.cfg.heartbeat
	if hb == nil {
		return
	}
	m.stopHeartbeatLocked()
	m.scheduleHeartbeatLocked(s, hb.Interval)
}

func (m *Manager) scheduleHeartbeatLocked(s *session, after time.Duration) {
	m.hbTimer = time.AfterFunc(after, func() { m.heartbeatTick(s) })
}

// heartbeatTick sends a probe and arms the pong timer unless one is already
// pending, so the deadline runs from the oldest unanswered probe.
func (m *Manager) heartbeatTick(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(s) || m.State() != StateOpen {
		return
	}
	hb := m.cfg.heartbeat

	if !m.sendLocked(hb.Message, false) {
		// Write failure already closed the session
		return
	}
	m.heartbeats.Add(1)

	if m.pongTimer == nil {
		m.pongSeq++
		seq := m.pongSeq
		m.pongTimer = time.AfterFunc(hb.PongTimeout, func() { m.pongExpired(s, seq) })
	}
	m.scheduleHeartbeatLocked(s, hb.Interval)
}

func (m *Manager) pongExpired(s *session, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(s) || m.pongTimer == nil || m.pongSeq != seq {
		return
	}
	m.pongTimer = nil
	m.pongTimeouts.Add(1)

	s.logger.Warn("heartbeat reply not received, closing",
		"timeout", m.cfg.heartbeat.PongTimeout,
	)
	m.handleCloseLocked(s, CloseEvent{
		Code:   CloseAbnormalClosure,
		Reason: "pong timeout",
		Err:    ErrPongTimeout,
	})
}

// isHeartbeatReplyLocked compares payload bytes only: a text reply matches a
// binary expectation with the same bytes and vice versa. Text is compared as
// its UTF-8 encoding, so an expectation built from another encoding of the
// same characters will not match.
func (m *Manager) isHeartbeatReplyLocked(msg Message) bool {
	hb := m.cfg.heartbeat
	if hb == nil {
		return false
	}
	return bytes.Equal(msg.Data, hb.ResponseMessage.Data)
}

func (m *Manager) cancelPongLocked() {
	if m.pongTimer != nil {
		m.pongTimer.Stop()
		m.pongTimer = nil
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hbTimer != nil {
		m.hbTimer.Stop()
		m.hbTimer = nil
	}
	m.cancelPongLocked()
}
