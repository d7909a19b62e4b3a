package companion

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const DefaultIdleTimeout = 60 * time.Second

// IdleMsg is the idle timer firing for a given activity epoch.
type IdleMsg struct {
	Epoch uint64
}

// IdleMonitor tracks user activity. Every Touch restarts the countdown from
// zero; timers from earlier epochs are ignored when they fire.
type IdleMonitor struct {
	Timeout time.Duration

	now   func() time.Time
	epoch uint64
	last  time.Time
	armed bool
}

func NewIdleMonitor(timeout time.Duration) *IdleMonitor {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleMonitor{Timeout: timeout, now: time.Now}
}

// Touch records activity. When arm is false the previous timer is cancelled
// and no new one is started.
func (m *IdleMonitor) Touch(arm bool) tea.Cmd {
	m.epoch++
	m.last = m.now()
	m.armed = arm
	if !arm {
		return nil
	}
	epoch := m.epoch
	return tea.Tick(m.Timeout, func(time.Time) tea.Msg {
		return IdleMsg{Epoch: epoch}
	})
}

// Fire reports whether msg should produce an idle remark. It never fires
// for a stale epoch, before Timeout has elapsed, while the panel is closed,
// during a request, or for a persona that doesn't heckle. A fired timer is
// spent until the next Touch.
func (m *IdleMonitor) Fire(msg IdleMsg, panelOpen, busy, hostile bool) bool {
	if !m.armed || msg.Epoch != m.epoch {
		return false
	}
	if m.now().Sub(m.last) < m.Timeout {
		return false
	}
	if !panelOpen || busy || !hostile {
		return false
	}
	m.armed = false
	return true
}

func (m *IdleMonitor) Epoch() uint64 { return m.epoch }
