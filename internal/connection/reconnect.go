package connection

import "time"

// maybeReconnectLocked runs after a non-explicit close. It either arms the
// reconnect timer or gives up.
func (m *Manager) maybeReconnectLocked() {
	rc := m.cfg.reconnect
	if rc == nil || m.explicit || m.destroyed {
		return
	}

	retries := int(m.retries.Load())
	if !rc.Retries.Allow(retries) {
		m.giveUps.Add(1)
		m.logger.Warn("giving up reconnecting", "attempts", retries)
		if cb := rc.OnFailed; cb != nil {
			m.dispatch.post(cb)
		}
		return
	}

	retries++
	m.retries.Store(int64(retries))
	delay := rc.Delay.Duration(retries)

	m.logger.Info("scheduling reconnection",
		"attempt", retries,
		"delay", delay,
	)
	if cb := m.cfg.onReconnecting; cb != nil {
		m.dispatch.post(func() { cb(retries) })
	}

	m.stopRetryLocked()
	gen := m.gen
	m.retryTimer = time.AfterFunc(delay, func() { m.fireReconnect(gen) })
}

// fireReconnect is the implicit Closed → Connecting path. It does nothing
// if Open, Close or Destroy ran after the timer was armed.
func (m *Manager) fireReconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.sess != nil || m.explicit || m.destroyed {
		return
	}
	m.retryTimer = nil
	m.attempts.Add(1)
	m.startSessionLocked()
}

func (m *Manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}
