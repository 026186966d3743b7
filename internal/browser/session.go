package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Session owns the chromedp allocator context connected to one managed
// Chrome process. Every Page (tab) is a chromedp browser context created
// from this allocator.
type Session struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	audit    *cdpAuditLogger
}

// NewRemoteSession attaches to an already-running Chrome via its CDP
// WebSocket URL, the way a managed (not embedded-launch) browser is
// driven: Browser Manager owns process lifecycle, Session only owns the
// protocol connection.
func NewRemoteSession(ctx context.Context, wsURL string, logger *slog.Logger) (*Session, error) {
	allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, wsURL)
	return &Session{
		allocCtx: allocCtx,
		cancel:   cancel,
		logger:   logger,
		audit:    newCDPAuditLogger(logger),
	}, nil
}

// Close tears down the session's allocator. It does not stop the
// underlying Chrome process; that's the Browser Manager's job.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// newTabContext creates a fresh chromedp browser-context for one tab and
// enables the Accessibility/DOM/CSS/Page/Network domains on it.
// Enabling a domain is best-effort: a failure is logged and does not
// abort tab creation.
func (s *Session) newTabContext(tabID string) (context.Context, context.CancelFunc) {
	ctx, cancel := chromedp.NewContext(s.allocCtx)

	type domainEnabler struct {
		method string
		enable chromedp.Action
	}
	domains := []domainEnabler{
		{"Accessibility.enable", accessibility.Enable()},
		{"DOM.enable", dom.Enable()},
		{"CSS.enable", css.Enable()},
		{"Page.enable", page.Enable()},
		{"Network.enable", network.Enable()},
	}

	if err := chromedp.Run(ctx); err != nil {
		// Ensures the target actually exists before domain enabling; a
		// failure here means the tab itself never attached.
		s.logger.Warn("tab attach failed", "tab", tabID, "error", err)
	}

	for _, d := range domains {
		s.audit.logCommand(tabID, d.method)
		if err := chromedp.Run(ctx, d.enable); err != nil {
			s.logger.Warn("domain enable failed", "tab", tabID, "domain", d.method, "error", err)
		}
	}

	return ctx, cancel
}

// dispatch runs a chromedp action chain against a tab, auditing the
// dominant CDP method it represents. Tool verbs send their main action
// through here; rendering, wait_for polling, dialog resolution and
// dev-mode reloads call chromedp directly and are not audited.
func (s *Session) dispatch(ctx context.Context, tabID, method string, actions ...chromedp.Action) error {
	s.audit.logCommand(tabID, method)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
