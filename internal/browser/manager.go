package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the single managed Chrome process, its CDP Session, and
// the Page Manager built on top of it. Charlotte drives
// exactly one browser instance; there is no multi-profile concept.
type Manager struct {
	mu sync.Mutex

	config  *ResolvedConfig
	logger  *slog.Logger
	running *RunningChrome
	session *Session
	pages   *PageManager
	started bool
}

func NewManager(cfg *ResolvedConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{config: cfg, logger: logger}
}

// Start launches the managed Chrome process, attaches a Session to its
// CDP endpoint, and brings up the Page Manager. It does not probe for an
// already reachable endpoint first; a second call after a successful
// start is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	running, err := LaunchChrome(m.config)
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	cdpURL := fmt.Sprintf("http://127.0.0.1:%d", running.CDPPort)
	wsURL, err := GetChromeWebSocketURL(cdpURL, 10*time.Second)
	if err != nil {
		_ = StopChrome(running, 5*time.Second)
		return fmt.Errorf("get cdp websocket url: %w", err)
	}

	session, err := NewRemoteSession(ctx, wsURL, m.logger)
	if err != nil {
		_ = StopChrome(running, 5*time.Second)
		return fmt.Errorf("attach cdp session: %w", err)
	}

	m.running = running
	m.session = session
	m.pages = NewPageManager(session, m.config.DialogAutoDismiss, m.logger)
	m.started = true
	return nil
}

// Stop tears down the Page Manager's tabs, closes the CDP session, and
// kills the managed Chrome process.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	if m.pages != nil {
		for _, id := range m.pages.ListTabs() {
			_ = m.pages.CloseTab(id)
		}
	}
	if m.session != nil {
		m.session.Close()
	}

	var stopErr error
	if m.running != nil {
		stopErr = StopChrome(m.running, 5*time.Second)
	}

	m.running = nil
	m.session = nil
	m.pages = nil
	m.started = false
	return stopErr
}

// Config returns the resolved config this manager was started with.
func (m *Manager) Config() *ResolvedConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Pages returns the Page Manager, relaunching Chrome first if the
// managed process has died since the last call (the engine's
// relaunch-on-next-use disconnect policy).
func (m *Manager) Pages(ctx context.Context) (*PageManager, error) {
	m.mu.Lock()
	needsRelaunch := m.started && m.running != nil && !IsChromeReachable(fmt.Sprintf("http://127.0.0.1:%d", m.running.CDPPort), time.Second)
	started := m.started
	m.mu.Unlock()

	if !started {
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
	} else if needsRelaunch {
		_ = m.Stop()
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages, nil
}

// Session returns the manager's attached CDP session, starting the
// managed Chrome process first if necessary.
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	if !started {
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

// IsRunning reports whether the managed Chrome process is currently
// reachable over CDP.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running == nil {
		return false
	}
	return IsChromeReachable(fmt.Sprintf("http://127.0.0.1:%d", m.running.CDPPort), time.Second)
}
