package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/TickTockBent/charlotte/internal/events"
)

// ringBuffer is a fixed-capacity FIFO; pushing past capacity drops the
// oldest entry.
type ringBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	return &ringBuffer[T]{capacity: capacity}
}

func (r *ringBuffer[T]) push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	if len(r.items) > r.capacity {
		r.items = r.items[len(r.items)-r.capacity:]
	}
}

func (r *ringBuffer[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// dialogStatus is the Dialog State Machine's two states.
type dialogStatus int

const (
	dialogIdle dialogStatus = iota
	dialogBlocked
)

// Tab is one ManagedPage: its own CDP browser-context, console/network
// buffers, dialog slot, element id generator, and an event subject the
// navigation/dialog race helper subscribes to.
type Tab struct {
	ID     string
	ctx    context.Context
	cancel context.CancelFunc

	idGen *idGenerator

	console *ringBuffer[ConsoleMessage]
	network *ringBuffer[NetworkEntry]

	mu            sync.Mutex
	dialogState   dialogStatus
	dialog        *PendingDialog
	dialogHandle  *page.EventJavascriptDialogOpening
	pendingReload *ReloadEvent

	events *events.Subject
}

func newTab(ctx context.Context, cancel context.CancelFunc, id string, logger *slog.Logger) *Tab {
	t := &Tab{
		ID:      id,
		ctx:     ctx,
		cancel:  cancel,
		idGen:   newIDGenerator(),
		console: newRingBuffer[ConsoleMessage](ConsoleBufferSize),
		network: newRingBuffer[NetworkEntry](NetworkBufferSize),
		events:  events.NewSubject(events.WithLogger(logger)),
	}
	t.attachListeners()
	return t
}

// attachListeners wires CDP events into the tab's buffers and the
// navigation/dialog race subject. Best-effort: chromedp.ListenTarget
// itself never errors, individual events are just dropped if malformed.
func (t *Tab) attachListeners() {
	chromedp.ListenTarget(t.ctx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			t.console.push(ConsoleMessage{
				Level:     string(e.Type),
				Text:      consoleArgsText(e.Args),
				Timestamp: time.Now(),
			})
		case *network.EventResponseReceived:
			t.network.push(NetworkEntry{
				URL:       e.Response.URL,
				Status:    int(e.Response.Status),
				Method:    "", // not carried on the response event
				Timestamp: time.Now(),
			})
		case *page.EventJavascriptDialogOpening:
			t.onDialogOpening(e)
		case *page.EventFrameNavigated:
			// Main-frame navigation clears a blocked dialog (the browser
			// resolved it as part of leaving the page); sub-frame
			// navigation leaves dialog state untouched.
			if e.Frame != nil && e.Frame.ParentID == "" {
				t.clearDialog()
				_ = events.Emit(t.events, events.TopicFrameNavigated, e.Frame.URL)
			}
		}
	})
}

func consoleArgsText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if len(a.Value) > 0 {
			parts = append(parts, unquoteJSON(string(a.Value)))
		} else if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return sanitizeText(strings.Join(parts, " "))
}

func (t *Tab) onDialogOpening(e *page.EventJavascriptDialogOpening) {
	t.mu.Lock()
	t.dialogState = dialogBlocked
	t.dialog = &PendingDialog{
		Type:         string(e.Type),
		Message:      sanitizeText(e.Message),
		DefaultValue: e.DefaultPrompt,
		Timestamp:    time.Now(),
	}
	t.dialogHandle = e
	dialog := t.dialog
	t.mu.Unlock()

	_ = events.Emit(t.events, events.TopicDialogAppeared, dialog)
}

// clearDialog drops dialog state without touching the browser, for the
// main-frame-navigation case where the dialog no longer exists.
func (t *Tab) clearDialog() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialogState = dialogIdle
	t.dialog = nil
	t.dialogHandle = nil
}

// pendingDialog returns the currently blocked dialog, if any.
func (t *Tab) pendingDialog() *PendingDialog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dialog
}

// resolveDialog accepts (optionally with text) or dismisses the tab's
// blocked dialog, returning the engine to Idle.
func (t *Tab) resolveDialog(accept bool, text string) error {
	t.mu.Lock()
	if t.dialogState != dialogBlocked {
		t.mu.Unlock()
		return fmt.Errorf("no pending dialog")
	}
	t.dialogState = dialogIdle
	t.dialog = nil
	t.dialogHandle = nil
	t.mu.Unlock()

	action := page.HandleJavaScriptDialog(accept)
	if accept && text != "" {
		action = action.WithPromptText(text)
	}
	return chromedp.Run(t.ctx, action)
}

// autoDismiss resolves a just-opened dialog per the configured policy.
// The handle is claimed after the policy check, inside resolveDialog,
// which re-checks and clears the blocked state under the tab lock; if a
// concurrent caller resolved the dialog first, autoDismiss returns false.
func (t *Tab) autoDismiss(policy DialogAutoDismissPolicy) bool {
	t.mu.Lock()
	if t.dialogState != dialogBlocked || t.dialog == nil {
		t.mu.Unlock()
		return false
	}
	dialogType := t.dialog.Type
	t.mu.Unlock()

	accept := false
	switch policy {
	case DialogAutoDismissAcceptAll:
		accept = true
	case DialogAutoDismissAcceptAlerts:
		accept = dialogType == "alert"
	case DialogAutoDismissDismissAll:
		accept = false
	default:
		return false
	}

	if err := t.resolveDialog(accept, ""); err != nil {
		return false
	}
	return true
}

func (t *Tab) consoleMessages(level string) []ConsoleMessage {
	all := t.console.snapshot()
	if level == "" {
		return all
	}
	out := make([]ConsoleMessage, 0, len(all))
	for _, m := range all {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

func (t *Tab) networkEntries(filter string) []NetworkEntry {
	all := t.network.snapshot()
	if filter == "" {
		return all
	}
	out := make([]NetworkEntry, 0, len(all))
	for _, n := range all {
		if strings.Contains(n.URL, filter) {
			out = append(out, n)
		}
	}
	return out
}

func (t *Tab) takeReloadEvent() *ReloadEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev := t.pendingReload
	t.pendingReload = nil
	return ev
}

func (t *Tab) setReloadEvent(ev *ReloadEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingReload = ev
}

func (t *Tab) close() {
	events.Complete(t.events)
	if t.cancel != nil {
		t.cancel()
	}
}

// PageManager owns the set of tabs for one browser Session.
type PageManager struct {
	mu       sync.Mutex
	session  *Session
	tabs     map[string]*Tab
	activeID string
	nextID   int
	logger   *slog.Logger
	dismiss  DialogAutoDismissPolicy
}

func NewPageManager(session *Session, dismiss DialogAutoDismissPolicy, logger *slog.Logger) *PageManager {
	return &PageManager{
		session: session,
		tabs:    make(map[string]*Tab),
		logger:  logger,
		dismiss: dismiss,
	}
}

// OpenTab creates a new tab, optionally navigating it to url, and makes it
// the active tab.
func (m *PageManager) OpenTab(url string) (*Tab, error) {
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("tab-%d", m.nextID)
	m.mu.Unlock()

	ctx, cancel := m.session.newTabContext(id)
	tab := newTab(ctx, cancel, id, m.logger)

	events.Subscribe(tab.events, events.TopicDialogAppeared, func(_ context.Context, _ any) error {
		if m.dismiss != DialogAutoDismissNone {
			tab.autoDismiss(m.dismiss)
		}
		return nil
	})

	if url != "" {
		if err := m.session.dispatch(ctx, id, "Page.navigate", chromedp.Navigate(url)); err != nil {
			cancel()
			return nil, translate(KindNavigationFailed, "open_tab", err)
		}
	}

	m.mu.Lock()
	m.tabs[id] = tab
	m.activeID = id
	m.mu.Unlock()

	return tab, nil
}

func (m *PageManager) SwitchTab(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[id]; !ok {
		return fmt.Errorf("no such tab: %s", id)
	}
	m.activeID = id
	return nil
}

func (m *PageManager) CloseTab(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab, ok := m.tabs[id]
	if !ok {
		return fmt.Errorf("no such tab: %s", id)
	}
	tab.close()
	delete(m.tabs, id)
	if m.activeID == id {
		m.activeID = ""
		for otherID := range m.tabs {
			m.activeID = otherID
			break
		}
	}
	return nil
}

func (m *PageManager) ListTabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	return ids
}

func (m *PageManager) ActiveTab() (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == "" {
		return nil, fmt.Errorf("no active tab")
	}
	tab, ok := m.tabs[m.activeID]
	if !ok {
		return nil, fmt.Errorf("no active tab")
	}
	return tab, nil
}

// SetDialogAutoDismiss updates the policy applied to future dialogs.
func (m *PageManager) SetDialogAutoDismiss(policy DialogAutoDismissPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismiss = policy
}
