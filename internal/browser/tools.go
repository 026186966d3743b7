package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Engine is the single orchestrator every external tool verb is
// dispatched through. It wires the Browser Manager, Snapshot Store,
// Artifact Store and the per-tab Dev Servers together; no verb reaches
// into CDP except through here.
type Engine struct {
	manager   *Manager
	snapshots *SnapshotStore
	artifacts *ArtifactStore

	mu         sync.Mutex
	devServers map[string]*DevServer // tab id -> dev server
}

// NewEngine builds an Engine from a resolved configuration. The managed
// Chrome process itself is started lazily, on first use, by Manager.Pages.
func NewEngine(cfg *ResolvedConfig, logger *slog.Logger) (*Engine, error) {
	artifacts, err := NewArtifactStore(cfg.ScreenshotDir)
	if err != nil {
		return nil, fmt.Errorf("build artifact store: %w", err)
	}
	return &Engine{
		manager:    NewManager(cfg, logger),
		snapshots:  NewSnapshotStore(cfg.SnapshotDepth),
		artifacts:  artifacts,
		devServers: make(map[string]*DevServer),
	}, nil
}

// Manager returns the engine's browser manager, for callers that need it
// without a tool verb (the CLI's serve command starts the browser
// through it).
func (e *Engine) Manager() *Manager { return e.manager }

// Close tears down every dev server and the managed browser process.
func (e *Engine) Close() error {
	e.mu.Lock()
	for _, d := range e.devServers {
		_ = d.Stop()
	}
	e.devServers = make(map[string]*DevServer)
	e.mu.Unlock()
	return e.manager.Stop()
}

func (e *Engine) activeTab(ctx context.Context) (*Tab, error) {
	pages, err := e.manager.Pages(ctx)
	if err != nil {
		return nil, translate(KindSessionError, "active_tab", err)
	}
	tab, err := pages.ActiveTab()
	if err != nil {
		return nil, NewEngineError(KindSessionError, err.Error(), err)
	}
	return tab, nil
}

func (e *Engine) session(ctx context.Context) (*Session, error) {
	s, err := e.manager.Session(ctx)
	if err != nil {
		return nil, translate(KindSessionError, "session", err)
	}
	return s, nil
}

func (e *Engine) autoSnapshotPolicy() AutoSnapshotPolicy {
	return e.manager.Config().AutoSnapshot
}

func detailOrDefault(d DetailLevel) DetailLevel {
	if d == "" {
		return DetailSummary
	}
	return d
}

// --- navigation verbs: navigate / back / forward / reload ---

// Navigate loads url on the active tab, optionally waiting on a
// composite predicate afterward, and returns the resulting
// representation. The dialog/navigation race governs the load.
func (e *Engine) Navigate(ctx context.Context, url string, wait *WaitForSpec, timeout time.Duration, detail DetailLevel) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}

	navCtx, cancel := context.WithTimeout(tab.ctx, timeout)
	defer cancel()

	_, err = runWithDialogRace(tab, func() error {
		return session.dispatch(navCtx, tab.ID, "Page.navigate", chromedp.Navigate(url))
	})
	if err != nil {
		return nil, translate(KindNavigationFailed, "navigate", err)
	}

	rep, err := renderAfterAction(e.snapshots, tab, RenderOptions{Detail: detailOrDefault(detail)}, e.autoSnapshotPolicy())
	if err != nil {
		return nil, err
	}
	if wait != nil {
		return WaitFor(tab, *wait)
	}
	return rep, nil
}

func (e *Engine) historyNav(ctx context.Context, action, method string, detail DetailLevel) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	var before string
	_ = chromedp.Run(tab.ctx, chromedp.Location(&before))

	navCtx, cancel := context.WithTimeout(tab.ctx, DefaultNavigationTimeout)
	defer cancel()

	var navAction chromedp.Action
	if action == "back" {
		navAction = chromedp.NavigateBack()
	} else {
		navAction = chromedp.NavigateForward()
	}
	if err := session.dispatch(navCtx, tab.ID, method, navAction); err != nil {
		return nil, translate(KindNavigationFailed, action, err)
	}
	_ = waitForLoad(tab.ctx, DefaultLoadTimeout)

	var after string
	_ = chromedp.Run(tab.ctx, chromedp.Location(&after))
	if after == before {
		return nil, NewEngineError(KindNavigationFailed, fmt.Sprintf("%s did not change the URL", action), nil)
	}

	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: detailOrDefault(detail)}, e.autoSnapshotPolicy())
}

// Back steps the active tab's history backward.
func (e *Engine) Back(ctx context.Context, detail DetailLevel) (*PageRepresentation, error) {
	return e.historyNav(ctx, "back", "Page.navigateBack", detail)
}

// Forward steps the active tab's history forward.
func (e *Engine) Forward(ctx context.Context, detail DetailLevel) (*PageRepresentation, error) {
	return e.historyNav(ctx, "forward", "Page.navigateForward", detail)
}

// Reload reloads the active tab, optionally bypassing the cache.
func (e *Engine) Reload(ctx context.Context, hard bool, detail DetailLevel) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	var action chromedp.Action
	if hard {
		action = page.Reload().WithIgnoreCache(true)
	} else {
		action = chromedp.Reload()
	}

	navCtx, cancel := context.WithTimeout(tab.ctx, DefaultNavigationTimeout)
	defer cancel()
	if err := session.dispatch(navCtx, tab.ID, "Page.reload", action); err != nil {
		return nil, translate(KindNavigationFailed, "reload", err)
	}
	_ = waitForLoad(tab.ctx, DefaultLoadTimeout)

	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: detailOrDefault(detail)}, e.autoSnapshotPolicy())
}

// Observe renders the active tab without taking any action.
func (e *Engine) Observe(ctx context.Context, opts RenderOptions) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	opts.Detail = detailOrDefault(opts.Detail)

	rep, err := renderTab(tab, opts)
	if err != nil {
		return nil, err
	}
	if ShouldAutoPush(e.autoSnapshotPolicy(), "observe", opts.ForceSnapshot) {
		e.snapshots.Push(rep)
	}
	return rep, nil
}

// ConsoleMessages returns the active tab's buffered console entries,
// optionally filtered to one level.
func (e *Engine) ConsoleMessages(ctx context.Context, level string) ([]ConsoleMessage, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	return tab.consoleMessages(level), nil
}

// NetworkRequests returns the active tab's buffered network responses,
// optionally filtered by URL substring.
func (e *Engine) NetworkRequests(ctx context.Context, filter string) ([]NetworkEntry, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	return tab.networkEntries(filter), nil
}

// --- find ---

// FindQuery narrows the active tab's current interactive elements by
// any combination of text, type, role, spatial proximity to another
// element, and landmark containment.
type FindQuery struct {
	Text   string
	Role   string
	Type   string
	Near   string
	Within string
}

// findRoleAliases folds the AX role names (and a few colloquial
// spellings) an agent is likely to pass as `role` onto the element
// types the representation retains. Roles are folded into types at
// extraction time, so the alias table is the only role signal left.
var findRoleAliases = map[string]string{
	"button":     "button",
	"link":       "link",
	"anchor":     "link",
	"textbox":    "text_input",
	"searchbox":  "text_input",
	"input":      "text_input",
	"textarea":   "textarea",
	"combobox":   "select",
	"listbox":    "select",
	"dropdown":   "select",
	"checkbox":   "checkbox",
	"radio":      "radio",
	"switch":     "toggle",
	"toggle":     "toggle",
	"slider":     "range",
	"spinbutton": "range",
	"range":      "range",
}

// Find filters the active tab's interactive elements against q. Role
// has no independent AX signal once elements are extracted, so it is
// folded through the alias table onto Type, the closest field the
// representation retains.
func (e *Engine) Find(ctx context.Context, q FindQuery) ([]InteractiveElement, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := renderTab(tab, RenderOptions{Detail: DetailSummary})
	if err != nil {
		return nil, err
	}

	var nearX, nearY float64
	hasNear := false
	if q.Near != "" {
		for _, el := range rep.Interactive {
			if el.ID == q.Near && el.Bounds != nil {
				nearX, nearY = el.Bounds.center()
				hasNear = true
				break
			}
		}
	}

	roleType := q.Role
	if alias, ok := findRoleAliases[strings.ToLower(q.Role)]; ok {
		roleType = alias
	}

	out := make([]InteractiveElement, 0, len(rep.Interactive))
	for _, el := range rep.Interactive {
		if q.Text != "" {
			needle := strings.ToLower(q.Text)
			if !strings.Contains(strings.ToLower(el.Label), needle) &&
				!strings.Contains(strings.ToLower(el.Value), needle) &&
				!strings.Contains(strings.ToLower(el.Placeholder), needle) {
				continue
			}
		}
		if q.Type != "" && el.Type != q.Type {
			continue
		}
		if roleType != "" && el.Type != roleType {
			continue
		}
		if q.Within != "" && landmarkKeyFor(rep.Structure.Landmarks, el.Bounds) != q.Within {
			continue
		}
		if hasNear {
			if el.Bounds == nil {
				continue
			}
			cx, cy := el.Bounds.center()
			if math.Hypot(cx-nearX, cy-nearY) > 200 {
				continue
			}
		}
		out = append(out, el)
	}
	if hasNear {
		// Proximity queries rank by ascending distance to the anchor.
		dist := func(el InteractiveElement) float64 {
			cx, cy := el.Bounds.center()
			return math.Hypot(cx-nearX, cy-nearY)
		}
		sort.Slice(out, func(i, j int) bool { return dist(out[i]) < dist(out[j]) })
	}
	return out, nil
}

// --- screenshot ---

// ScreenshotArgs configures a screenshot tool call.
type ScreenshotArgs struct {
	Selector string
	Format   string // png, jpeg, webp; default png
	Quality  int    // 1-100; only meaningful for jpeg/webp
	Save     bool
}

// ScreenshotResult is the base64 image and, when Save was requested,
// the artifact it was persisted as.
type ScreenshotResult struct {
	Base64   string
	Artifact *Artifact
}

// Screenshot captures the active tab, or the element matched by
// Selector if given, optionally persisting it via the Artifact Store.
func (e *Engine) Screenshot(ctx context.Context, args ScreenshotArgs) (*ScreenshotResult, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	format := args.Format
	if format == "" {
		format = "png"
	}
	quality := args.Quality
	if quality <= 0 {
		quality = 90
	}

	var buf []byte
	capture := func(ctx context.Context) error {
		action := page.CaptureScreenshot().WithFormat(captureFormat(format)).WithQuality(int64(quality))
		if args.Selector != "" {
			clip, err := boundsForSelector(ctx, args.Selector)
			if err != nil {
				return err
			}
			action = action.WithClip(clip)
		}
		shot, err := action.Do(ctx)
		if err != nil {
			return err
		}
		buf = shot
		return nil
	}

	shotCtx, cancel := context.WithTimeout(tab.ctx, DefaultLoadTimeout)
	defer cancel()
	if err := session.dispatch(shotCtx, tab.ID, "Page.captureScreenshot", chromedp.ActionFunc(capture)); err != nil {
		return nil, translate(KindElementNotFound, "screenshot", err)
	}

	result := &ScreenshotResult{Base64: base64.StdEncoding.EncodeToString(buf)}
	if args.Save {
		var url, title string
		_ = chromedp.Run(tab.ctx, chromedp.Location(&url), chromedp.Title(&title))
		a, err := e.artifacts.Save(buf, ArtifactMeta{Format: format, URL: url, Title: title, Selector: args.Selector})
		if err != nil {
			return nil, translate(KindSessionError, "screenshot", err)
		}
		result.Artifact = a
	}
	return result, nil
}

func captureFormat(format string) page.CaptureScreenshotFormat {
	switch format {
	case "jpeg":
		return page.CaptureScreenshotFormatJpeg
	case "webp":
		return page.CaptureScreenshotFormatWebp
	default:
		return page.CaptureScreenshotFormatPng
	}
}

func boundsForSelector(ctx context.Context, selector string) (*page.Viewport, error) {
	root, err := dom.GetDocument().Do(ctx)
	if err != nil || root == nil {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	nodeID, err := dom.QuerySelector(root.NodeID, selector).Do(ctx)
	if err != nil || nodeID == 0 {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	box, err := dom.GetBoxModel().WithNodeID(nodeID).Do(ctx)
	if err != nil || box == nil || len(box.Content) < 8 {
		return nil, fmt.Errorf("failed to get box model for %s", selector)
	}
	b := boundsFromQuad(box.Content)
	if b.isZero() {
		return nil, fmt.Errorf("element %s has no visible area", selector)
	}
	return &page.Viewport{X: b.X, Y: b.Y, Width: b.W, Height: b.H, Scale: 1}, nil
}

// --- diff ---

// Diff computes the structural diff between snapshotID (or the
// previous snapshot, if 0) and a freshly rendered current state.
func (e *Engine) Diff(ctx context.Context, snapshotID int, scope DiffScope) (*SnapshotDiff, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}

	var from *Snapshot
	var ok bool
	if snapshotID == 0 {
		from, ok = e.snapshots.GetPrevious()
	} else {
		from, ok = e.snapshots.Get(snapshotID)
	}
	if !ok {
		oldest := e.snapshots.GetOldestID()
		return nil, NewEngineError(KindSnapshotExpired, fmt.Sprintf("snapshot %d not found", snapshotID), nil).
			WithRecommendation(fmt.Sprintf("oldest retained snapshot is %d", oldest))
	}

	rep, err := renderTab(tab, RenderOptions{Detail: DetailSummary})
	if err != nil {
		return nil, err
	}
	toID := e.snapshots.Push(rep)

	if scope == "" {
		scope = ScopeAll
	}
	return Diff(from.ID, toID, from.Representation, rep, scope), nil
}

// --- element resolution helpers shared by the interaction verbs ---

func frontendNode(ctx context.Context, backendID cdp.BackendNodeID) (cdp.NodeID, error) {
	ids, err := dom.PushNodesByBackendIDsToFrontend([]cdp.BackendNodeID{backendID}).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve node: %w", err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("node not found")
	}
	return ids[0], nil
}

func boxCenter(ctx context.Context, nodeID cdp.NodeID) (float64, float64, error) {
	box, err := dom.GetBoxModel().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get box model: %w", err)
	}
	if box == nil || len(box.Content) < 8 {
		return 0, 0, fmt.Errorf("element has no clickable area")
	}
	b := boundsFromQuad(box.Content)
	if b.isZero() {
		return 0, 0, fmt.Errorf("element has no clickable area")
	}
	x, y := b.center()
	return x, y, nil
}

func resolveObject(ctx context.Context, backendID cdp.BackendNodeID) (*runtime.RemoteObject, error) {
	nodeID, err := frontendNode(ctx, backendID)
	if err != nil {
		return nil, err
	}
	obj, err := dom.ResolveNode().WithNodeID(nodeID).Do(ctx)
	if err != nil || obj == nil {
		return nil, fmt.Errorf("failed to resolve node: %w", err)
	}
	return obj, nil
}

// --- click / type / select / toggle / submit ---

func clickAt(ctx context.Context, x, y float64, clickType string) error {
	switch clickType {
	case "right":
		return chromedp.MouseClickXY(x, y, chromedp.Button("right")).Do(ctx)
	case "double":
		return chromedp.MouseClickXY(x, y, chromedp.ClickCount(2)).Do(ctx)
	default:
		return chromedp.MouseClickXY(x, y).Do(ctx)
	}
}

// Click resolves element_id, scrolls it into view, and synthesizes a
// mouse event at its box center.
func (e *Engine) Click(ctx context.Context, elementID, clickType string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	backendID, err := resolveElement(tab, elementID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	_, err = runWithDialogRace(tab, func() error {
		return session.dispatch(tab.ctx, tab.ID, "Input.dispatchMouseEvent", chromedp.ActionFunc(func(ctx context.Context) error {
			nodeID, err := frontendNode(ctx, backendID)
			if err != nil {
				return err
			}
			_ = dom.ScrollIntoViewIfNeeded().WithNodeID(nodeID).Do(ctx)
			x, y, err := boxCenter(ctx, nodeID)
			if err != nil {
				return err
			}
			return clickAt(ctx, x, y, clickType)
		}))
	})
	if err != nil {
		return nil, translate(KindElementNotFound, "click", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// Type focuses element_id, optionally selecting all existing text
// first (so the subsequent keystrokes replace it), types text, and
// optionally presses Enter.
func (e *Engine) Type(ctx context.Context, elementID, text string, clearFirst, pressEnter bool) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	backendID, err := resolveElement(tab, elementID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	err = session.dispatch(tab.ctx, tab.ID, "Input.dispatchKeyEvent", chromedp.ActionFunc(func(ctx context.Context) error {
		nodeID, err := frontendNode(ctx, backendID)
		if err != nil {
			return err
		}
		if err := dom.Focus().WithNodeID(nodeID).Do(ctx); err != nil {
			return fmt.Errorf("failed to focus element: %w", err)
		}
		if clearFirst {
			if err := chromedp.KeyEvent("a", chromedp.KeyModifiers(2)).Do(ctx); err != nil { // Ctrl+A
				return err
			}
		}
		if err := chromedp.KeyEvent(text).Do(ctx); err != nil {
			return err
		}
		if pressEnter {
			return chromedp.KeyEvent("\r").Do(ctx)
		}
		return nil
	}))
	if err != nil {
		return nil, translate(KindElementNotFound, "type", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// Select matches an option by value then trimmed text, sets it, and
// fires input+change events.
func (e *Engine) Select(ctx context.Context, elementID, value string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	backendID, err := resolveElement(tab, elementID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	setOptionFn := fmt.Sprintf(`function() {
		const value = %s;
		let matched = false;
		for (const opt of this.options || []) {
			if (opt.value === value || opt.text.trim() === value) {
				this.value = opt.value;
				matched = true;
				break;
			}
		}
		if (matched) {
			this.dispatchEvent(new Event('input', {bubbles: true}));
			this.dispatchEvent(new Event('change', {bubbles: true}));
		}
		return matched;
	}`, jsStringLiteral(value))

	var matched bool
	err = session.dispatch(tab.ctx, tab.ID, "Runtime.callFunctionOn", chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := resolveObject(ctx, backendID)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(setOptionFn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("select threw: %s", exc.Text)
		}
		if res != nil && len(res.Value) > 0 {
			_ = json.Unmarshal(res.Value, &matched)
		}
		return nil
	}))
	if err != nil {
		return nil, translate(KindElementNotFound, "select", err)
	}
	if !matched {
		return nil, NewEngineError(KindElementNotFound, fmt.Sprintf("no option matching %q", value), nil)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// Toggle is a plain click, as checkboxes/radios/switches all flip state
// on click.
func (e *Engine) Toggle(ctx context.Context, elementID string) (*PageRepresentation, error) {
	return e.Click(ctx, elementID, "left")
}

// Submit clicks the form's submit child if one was identified, else
// dispatches a submit event directly on the form element.
func (e *Engine) Submit(ctx context.Context, formID string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}

	rep, err := renderTab(tab, RenderOptions{Detail: DetailSummary})
	if err != nil {
		return nil, err
	}
	var form *FormRepresentation
	for i := range rep.Forms {
		if rep.Forms[i].ID == formID {
			form = &rep.Forms[i]
			break
		}
	}
	if form == nil {
		ee := NewEngineError(KindElementNotFound, fmt.Sprintf("form %q not found", formID), nil)
		if similar, ok := tab.idGen.findSimilar(formID); ok {
			ee = ee.WithRecommendation(fmt.Sprintf("did you mean %q?", similar))
		}
		return nil, ee
	}
	if form.Submit != nil {
		return e.Click(ctx, *form.Submit, "left")
	}

	backendID, err := resolveElement(tab, formID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	const submitFn = `function() { this.dispatchEvent(new Event('submit', {bubbles: true, cancelable: true})); }`
	err = session.dispatch(tab.ctx, tab.ID, "Runtime.callFunctionOn", chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := resolveObject(ctx, backendID)
		if err != nil {
			return err
		}
		_, _, err = runtime.CallFunctionOn(submitFn).WithObjectID(obj.ObjectID).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, translate(KindElementNotFound, "submit", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// --- scroll / hover / drag / key ---

func scrollDelta(direction string, amount int) (int, int) {
	switch direction {
	case "up":
		return 0, -amount
	case "left":
		return -amount, 0
	case "right":
		return amount, 0
	default:
		return 0, amount
	}
}

// Scroll scrolls the page, or a specific element's container if
// element_id is given, by amount pixels in direction.
func (e *Engine) Scroll(ctx context.Context, direction string, amount int, elementID string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		amount = 300
	}
	dx, dy := scrollDelta(direction, amount)

	var action chromedp.ActionFunc
	if elementID != "" {
		backendID, rerr := resolveElement(tab, elementID)
		if rerr != nil {
			return nil, rerr
		}
		action = func(ctx context.Context) error {
			obj, err := resolveObject(ctx, backendID)
			if err != nil {
				return err
			}
			fn := fmt.Sprintf(`function() { this.scrollBy(%d, %d); }`, dx, dy)
			_, _, err = runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
			return err
		}
	} else {
		action = func(ctx context.Context) error {
			return chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(%d, %d)`, dx, dy), nil).Do(ctx)
		}
	}

	if err := session.dispatch(tab.ctx, tab.ID, "Runtime.callFunctionOn", action); err != nil {
		return nil, translate(KindElementNotFound, "scroll", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// Hover moves the mouse to element_id's box center without clicking.
func (e *Engine) Hover(ctx context.Context, elementID string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	backendID, err := resolveElement(tab, elementID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	err = session.dispatch(tab.ctx, tab.ID, "Input.dispatchMouseEvent", chromedp.ActionFunc(func(ctx context.Context) error {
		nodeID, err := frontendNode(ctx, backendID)
		if err != nil {
			return err
		}
		x, y, err := boxCenter(ctx, nodeID)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return nil, translate(KindElementNotFound, "hover", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// Drag presses at from_element_id's center, moves to to_element_id's
// center, and releases.
func (e *Engine) Drag(ctx context.Context, fromElementID, toElementID string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	fromID, err := resolveElement(tab, fromElementID)
	if err != nil {
		return nil, err
	}
	toID, err := resolveElement(tab, toElementID)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	err = session.dispatch(tab.ctx, tab.ID, "Input.dispatchMouseEvent", chromedp.ActionFunc(func(ctx context.Context) error {
		fromNode, err := frontendNode(ctx, fromID)
		if err != nil {
			return err
		}
		toNode, err := frontendNode(ctx, toID)
		if err != nil {
			return err
		}
		fx, fy, err := boxCenter(ctx, fromNode)
		if err != nil {
			return err
		}
		tx, ty, err := boxCenter(ctx, toNode)
		if err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MousePressed, fx, fy).WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MouseMoved, tx, ty).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, tx, ty).WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
	if err != nil {
		return nil, translate(KindElementNotFound, "drag", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

func keyModifierMask(mods []string) int64 {
	var m int64
	for _, mod := range mods {
		switch strings.ToLower(mod) {
		case "alt":
			m |= 1
		case "ctrl", "control":
			m |= 2
		case "meta", "cmd", "command":
			m |= 4
		case "shift":
			m |= 8
		}
	}
	return m
}

// Key dispatches a single key event (with optional modifiers) to the
// active tab's currently focused element.
func (e *Engine) Key(ctx context.Context, key string, modifiers []string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	var opts []chromedp.KeyOption
	if mask := keyModifierMask(modifiers); mask != 0 {
		opts = append(opts, chromedp.KeyModifiers(input.Modifier(mask)))
	}
	err = session.dispatch(tab.ctx, tab.ID, "Input.dispatchKeyEvent", chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.KeyEvent(key, opts...).Do(ctx)
	}))
	if err != nil {
		return nil, translate(KindSessionError, "key", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// --- wait_for / evaluate ---

// WaitFor delegates to the standalone waitfor.go poller against the
// active tab.
func (e *Engine) WaitFor(ctx context.Context, spec WaitForSpec) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	return WaitFor(tab, spec)
}

// EvalResult is evaluate's typed envelope: the JS value plus a coarse
// JS type tag.
type EvalResult struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

func jsTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case bool:
		return "boolean"
	case float64, int:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// Evaluate runs expression as JavaScript in the active tab and returns
// its typed result, failing with EVALUATION_ERROR on a thrown exception
// or a timeout.
func (e *Engine) Evaluate(ctx context.Context, expression string, timeout time.Duration, awaitPromise bool) (*EvalResult, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultEvaluateTimeout
	}

	evalCtx, cancel := context.WithTimeout(tab.ctx, timeout)
	defer cancel()

	var raw any
	action := chromedp.Evaluate(expression, &raw)
	if awaitPromise {
		action = chromedp.Evaluate(expression, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		})
	}
	err = session.dispatch(evalCtx, tab.ID, "Runtime.evaluate", action)
	if err != nil {
		return nil, translate(KindEvaluationError, "evaluate", err)
	}
	return &EvalResult{Value: raw, Type: jsTypeOf(raw)}, nil
}

// --- tabs ---

// TabInfo is one entry in the tabs listing.
type TabInfo struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// Tabs lists every open tab, flagging the active one.
func (e *Engine) Tabs(ctx context.Context) ([]TabInfo, error) {
	pages, err := e.manager.Pages(ctx)
	if err != nil {
		return nil, translate(KindSessionError, "tabs", err)
	}
	var activeID string
	if active, aerr := pages.ActiveTab(); aerr == nil {
		activeID = active.ID
	}
	ids := pages.ListTabs()
	out := make([]TabInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, TabInfo{ID: id, Active: id == activeID})
	}
	return out, nil
}

// TabOpen opens a new tab (optionally navigating it) and makes it active.
func (e *Engine) TabOpen(ctx context.Context, url string) (*PageRepresentation, error) {
	pages, err := e.manager.Pages(ctx)
	if err != nil {
		return nil, translate(KindSessionError, "tab_open", err)
	}
	tab, err := pages.OpenTab(url)
	if err != nil {
		return nil, err
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// TabSwitch makes tabID the active tab and renders it.
func (e *Engine) TabSwitch(ctx context.Context, tabID string) (*PageRepresentation, error) {
	pages, err := e.manager.Pages(ctx)
	if err != nil {
		return nil, translate(KindSessionError, "tab_switch", err)
	}
	if err := pages.SwitchTab(tabID); err != nil {
		return nil, NewEngineError(KindSessionError, err.Error(), err)
	}
	tab, err := pages.ActiveTab()
	if err != nil {
		return nil, NewEngineError(KindSessionError, err.Error(), err)
	}
	return renderTab(tab, RenderOptions{Detail: DetailSummary})
}

// TabClose closes tabID, tearing down any dev server bound to it.
func (e *Engine) TabClose(ctx context.Context, tabID string) error {
	pages, err := e.manager.Pages(ctx)
	if err != nil {
		return translate(KindSessionError, "tab_close", err)
	}
	e.mu.Lock()
	if d, ok := e.devServers[tabID]; ok {
		_ = d.Stop()
		delete(e.devServers, tabID)
	}
	e.mu.Unlock()
	if err := pages.CloseTab(tabID); err != nil {
		return NewEngineError(KindSessionError, err.Error(), err)
	}
	return nil
}

// --- viewport ---

func viewportPreset(device string, width, height int) (w, h int, scale float64, mobile bool) {
	switch device {
	case "mobile":
		return 375, 667, 2, true
	case "tablet":
		return 768, 1024, 2, true
	case "desktop":
		return 1280, 720, 1, false
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	return width, height, 1, false
}

// Viewport resizes the active tab, either to an explicit width/height
// or to a named device preset (mobile/tablet/desktop).
func (e *Engine) Viewport(ctx context.Context, width, height int, device string) (*PageRepresentation, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	w, h, scale, mobile := viewportPreset(device, width, height)
	action := emulation.SetDeviceMetricsOverride(int64(w), int64(h), scale, mobile)
	if err := session.dispatch(tab.ctx, tab.ID, "Emulation.setDeviceMetricsOverride", action); err != nil {
		return nil, translate(KindSessionError, "viewport", err)
	}
	return renderAfterAction(e.snapshots, tab, RenderOptions{Detail: DetailSummary}, e.autoSnapshotPolicy())
}

// --- network throttle/block ---

type networkPreset struct {
	downKbps, upKbps float64
	rttMs            int64
	offline          bool
}

// networkPresets mirrors Chrome DevTools' own throttling presets
// (throughput in kbps, round-trip latency in ms).
var networkPresets = map[string]networkPreset{
	"3g":      {downKbps: 750, upKbps: 250, rttMs: 100},
	"4g":      {downKbps: 4000, upKbps: 3000, rttMs: 20},
	"offline": {offline: true},
}

// Network applies a throttle preset and/or a set of URL block patterns
// to the active tab.
func (e *Engine) Network(ctx context.Context, throttle string, block []string) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	session, err := e.session(ctx)
	if err != nil {
		return err
	}

	switch throttle {
	case "", "none":
		if throttle == "none" {
			cond := network.EmulateNetworkConditions(false, 0, -1, -1)
			if err := session.dispatch(tab.ctx, tab.ID, "Network.emulateNetworkConditions", cond); err != nil {
				return translate(KindSessionError, "network", err)
			}
		}
	default:
		p, ok := networkPresets[throttle]
		if !ok {
			return NewEngineError(KindSessionError, fmt.Sprintf("unknown throttle preset %q", throttle), nil)
		}
		cond := network.EmulateNetworkConditions(p.offline, float64(p.rttMs), p.downKbps*1000/8, p.upKbps*1000/8)
		if err := session.dispatch(tab.ctx, tab.ID, "Network.emulateNetworkConditions", cond); err != nil {
			return translate(KindSessionError, "network", err)
		}
	}

	if len(block) > 0 {
		if err := session.dispatch(tab.ctx, tab.ID, "Network.setBlockedURLs", network.SetBlockedURLs(block)); err != nil {
			return translate(KindSessionError, "network", err)
		}
	}
	return nil
}

// --- cookies / headers ---

// GetCookies returns every cookie visible to the active tab.
func (e *Engine) GetCookies(ctx context.Context) ([]Cookie, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	session, err := e.session(ctx)
	if err != nil {
		return nil, err
	}
	return GetCookies(tab, session)
}

// SetCookies installs each cookie on the active tab's browser context.
func (e *Engine) SetCookies(ctx context.Context, cookies []Cookie) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	session, err := e.session(ctx)
	if err != nil {
		return err
	}
	for _, c := range cookies {
		if err := SetCookie(tab, session, c); err != nil {
			return err
		}
	}
	return nil
}

// ClearCookies removes every cookie from the active tab's browser context.
func (e *Engine) ClearCookies(ctx context.Context) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	session, err := e.session(ctx)
	if err != nil {
		return err
	}
	return ClearCookies(tab, session)
}

// SetHeaders installs extra HTTP headers on the active tab.
func (e *Engine) SetHeaders(ctx context.Context, headers map[string]string) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	session, err := e.session(ctx)
	if err != nil {
		return err
	}
	return SetHeaders(tab, session, headers)
}

// --- configure ---

// ConfigureArgs is the set of runtime-reconfigurable engine knobs; a nil
// field leaves the corresponding setting untouched.
type ConfigureArgs struct {
	SnapshotDepth     *int
	AutoSnapshot      *AutoSnapshotPolicy
	ScreenshotDir     *string
	DialogAutoDismiss *DialogAutoDismissPolicy
}

// Configure mutates the engine's in-memory configuration; it never
// rewrites the config file on disk.
func (e *Engine) Configure(ctx context.Context, args ConfigureArgs) error {
	cfg := e.manager.Config()

	if args.SnapshotDepth != nil {
		cfg.SnapshotDepth = clampSnapshotDepth(*args.SnapshotDepth)
		e.snapshots.SetDepth(cfg.SnapshotDepth)
	}
	if args.AutoSnapshot != nil {
		cfg.AutoSnapshot = *args.AutoSnapshot
	}
	if args.ScreenshotDir != nil {
		cfg.ScreenshotDir = *args.ScreenshotDir
		if err := e.artifacts.SetDir(*args.ScreenshotDir); err != nil {
			return translate(KindSessionError, "configure", err)
		}
	}
	if args.DialogAutoDismiss != nil {
		cfg.DialogAutoDismiss = *args.DialogAutoDismiss
		if pages, err := e.manager.Pages(ctx); err == nil {
			pages.SetDialogAutoDismiss(*args.DialogAutoDismiss)
		}
	}
	return nil
}

// --- dialog ---

// Dialog resolves the active tab's blocked dialog, accepting (with
// optional prompt text) or dismissing it.
func (e *Engine) Dialog(ctx context.Context, accept bool, promptText string) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	if err := tab.resolveDialog(accept, promptText); err != nil {
		return NewEngineError(KindSessionError, err.Error(), err)
	}
	return nil
}

// --- dev mode ---

// DevServeResult is dev_serve's return value: the bound address of the
// static file server.
type DevServeResult struct {
	Addr string `json:"addr"`
}

// DevServe starts serving root as a static site over HTTP and watching
// it for changes, reloading the active tab on each debounced change.
// root must fall under the engine's configured workspace root.
func (e *Engine) DevServe(ctx context.Context, root, addr string) (*DevServeResult, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, NewEngineError(KindSessionError, fmt.Sprintf("resolve dev root: %v", err), err)
	}
	absAllowed, err := filepath.Abs(e.manager.Config().AllowedWorkspaceRoot)
	if err != nil {
		return nil, NewEngineError(KindSessionError, fmt.Sprintf("resolve workspace root: %v", err), err)
	}
	rel, err := filepath.Rel(absAllowed, absRoot)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, NewEngineError(KindSessionError, fmt.Sprintf("dev root %s is outside the allowed workspace %s", absRoot, absAllowed), nil)
	}

	if addr == "" {
		addr = "127.0.0.1:0"
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.devServers[tab.ID]; ok {
		_ = existing.Stop()
	}
	dev, err := NewDevServer(tab, absRoot, addr)
	if err != nil {
		return nil, translate(KindSessionError, "dev_serve", err)
	}
	e.devServers[tab.ID] = dev
	return &DevServeResult{Addr: dev.Addr()}, nil
}

// DevInject evaluates script in the active tab without expecting a
// return value, for injecting dev-mode helper code/CSS.
func (e *Engine) DevInject(ctx context.Context, script string) error {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return err
	}
	session, err := e.session(ctx)
	if err != nil {
		return err
	}
	if err := session.dispatch(tab.ctx, tab.ID, "Runtime.evaluate", chromedp.Evaluate(script, nil)); err != nil {
		return translate(KindEvaluationError, "dev_inject", err)
	}
	return nil
}

// DevAuditInfo is dev_audit's boundary contract: enough connection
// information for an external accessibility/SEO/contrast analyzer to
// attach to the same tab, without Charlotte implementing the analysis
// itself.
type DevAuditInfo struct {
	TabID string `json:"tab_id"`
	URL   string `json:"url"`
}

// DevAudit reports the active tab's identity for an external auditor.
func (e *Engine) DevAudit(ctx context.Context) (*DevAuditInfo, error) {
	tab, err := e.activeTab(ctx)
	if err != nil {
		return nil, err
	}
	var url string
	_ = chromedp.Run(tab.ctx, chromedp.Location(&url))
	return &DevAuditInfo{TabID: tab.ID, URL: url}, nil
}
