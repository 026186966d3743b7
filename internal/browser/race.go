package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/TickTockBent/charlotte/internal/events"
)

// renderTab gathers a Tab's current RenderInput and runs the Renderer
// Pipeline against it. Every tool handler that needs a fresh
// PageRepresentation funnels through here so dialog-blocked stubs and
// pending reload events are handled uniformly.
func renderTab(tab *Tab, opts RenderOptions) (*PageRepresentation, error) {
	input := RenderInput{
		Ctx:     tab.ctx,
		TabID:   tab.ID,
		IDGen:   tab.idGen,
		Dialog:  tab.pendingDialog(),
		Console: tab.consoleMessages(""),
		Network: tab.networkEntries(""),
		Reload:  tab.takeReloadEvent(),
	}
	return Render(input, opts)
}

// resolveElement is a three-step cascade: try the live id map, force
// a minimal re-render and retry, then fall back to a did-you-mean
// suggestion. Re-renders triggered here never push a snapshot.
func resolveElement(tab *Tab, elementID string) (cdp.BackendNodeID, error) {
	if backendID, ok := tab.idGen.resolveID(elementID); ok {
		return backendID, nil
	}

	if _, err := renderTab(tab, RenderOptions{Detail: DetailMinimal}); err != nil {
		return 0, translate(KindSessionError, "resolve_element", err)
	}
	if backendID, ok := tab.idGen.resolveID(elementID); ok {
		return backendID, nil
	}

	ee := NewEngineError(KindElementNotFound, fmt.Sprintf("element %q not found", elementID), nil)
	if similar, ok := tab.idGen.findSimilar(elementID); ok {
		ee = ee.WithRecommendation(fmt.Sprintf("did you mean %q?", similar))
	}
	return 0, ee
}

// renderAfterAction captures the latest pushed snapshot as pre-state,
// renders the post-action state, and attaches the structural diff
// between them as the representation's delta.
func renderAfterAction(store *SnapshotStore, tab *Tab, opts RenderOptions, autoSnapshot AutoSnapshotPolicy) (*PageRepresentation, error) {
	pre, havePre := store.GetLatest()

	rep, err := renderTab(tab, opts)
	if err != nil {
		return nil, err
	}

	if ShouldAutoPush(autoSnapshot, "action", opts.ForceSnapshot) {
		id := store.Push(rep)
		if havePre {
			rep.Delta = Diff(pre.ID, id, pre.Representation, rep, ScopeAll)
		}
	} else if havePre {
		rep.Delta = Diff(pre.ID, pre.ID, pre.Representation, rep, ScopeAll)
	}

	return rep, nil
}

// raceOutcome reports which branch of the dialog/navigation race fired.
type raceOutcome struct {
	DialogFired bool
	Navigated   bool
}

// runWithDialogRace starts action and races its
// completion against a one-shot dialog_appeared / frame_navigated
// subscription within a detection window. If a dialog fires first, the
// action is detached (never awaited by the caller) and its eventual
// error is swallowed, so the engine never reports an unhandled
// rejection for a promise it chose not to wait on.
func runWithDialogRace(tab *Tab, action func() error) (raceOutcome, error) {
	dialogCh := make(chan struct{}, 1)
	navCh := make(chan struct{}, 1)

	dialogSub := events.Subscribe(tab.events, events.TopicDialogAppeared, func(_ context.Context, _ *PendingDialog) error {
		select {
		case dialogCh <- struct{}{}:
		default:
		}
		return nil
	})
	defer dialogSub.Unsubscribe()

	navSub := events.Subscribe(tab.events, events.TopicFrameNavigated, func(_ context.Context, _ string) error {
		select {
		case navCh <- struct{}{}:
		default:
		}
		return nil
	})
	defer navSub.Unsubscribe()

	actionDone := make(chan error, 1)
	go func() {
		actionDone <- action()
	}()

	window := time.NewTimer(DialogDetectionWindow)
	defer window.Stop()

	select {
	case <-dialogCh:
		// Detach the action: don't await it, and swallow whatever it
		// eventually resolves with.
		go func() { <-actionDone }()
		return raceOutcome{DialogFired: true}, nil

	case err := <-actionDone:
		// The action resolved before any dialog appeared. Give a short
		// grace period for a navigation event that was already racing
		// it to land, then decide whether to wait for "load" or just
		// settle.
		select {
		case <-navCh:
			loadErr := waitForLoad(tab.ctx, DefaultLoadTimeout)
			if err == nil {
				err = loadErr
			}
			return raceOutcome{Navigated: true}, err
		case <-time.After(SettlePause):
			return raceOutcome{}, err
		}

	case <-window.C:
		// Neither fired within the detection window; fall through to
		// waiting on the action directly (it may simply be slow).
		select {
		case <-dialogCh:
			go func() { <-actionDone }()
			return raceOutcome{DialogFired: true}, nil
		case err := <-actionDone:
			return raceOutcome{}, err
		}
	}
}

// waitForLoad blocks until the page's document reaches a ready state,
// bounded by timeout.
func waitForLoad(ctx context.Context, timeout time.Duration) error {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(loadCtx, chromedp.WaitReady("body", chromedp.ByQuery))
}
