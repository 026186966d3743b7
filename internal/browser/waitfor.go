package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ElementWaitState is one of the states a wait_for(element_id=...) call
// can poll for.
type ElementWaitState string

const (
	WaitExists   ElementWaitState = "exists"
	WaitRemoved  ElementWaitState = "removed"
	WaitVisible  ElementWaitState = "visible"
	WaitHidden   ElementWaitState = "hidden"
	WaitEnabled  ElementWaitState = "enabled"
	WaitDisabled ElementWaitState = "disabled"
)

// WaitForSpec composes the predicates a single wait_for call polls on.
// Any non-empty/non-zero field is ANDed with the others.
type WaitForSpec struct {
	ElementID string
	State     ElementWaitState
	Text      string
	Selector  string
	JS        string
	Timeout   time.Duration
}

// WaitFor polls every 100ms until all supplied predicates hold or the
// timeout expires. Each iteration re-renders the tab (no snapshot push)
// at summary detail, or at full detail when a text predicate is set,
// which refreshes the id map so an element that was just inserted
// becomes resolvable.
func WaitFor(tab *Tab, spec WaitForSpec) (*PageRepresentation, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitForTimeout
	}
	deadline := time.Now().Add(timeout)

	// The text predicate matches plain page text, which only the full
	// detail level carries; the other predicates get by on summary.
	detail := DetailSummary
	if spec.Text != "" {
		detail = DetailFull
	}

	var last *PageRepresentation
	for {
		rep, err := renderTab(tab, RenderOptions{Detail: detail})
		if err != nil {
			return nil, err
		}
		last = rep

		ok, err := evalWaitPredicates(tab, rep, spec)
		if err != nil {
			return nil, err
		}
		if ok {
			return rep, nil
		}

		if time.Now().After(deadline) {
			return last, NewEngineError(KindTimeout, "wait_for timed out before predicates were satisfied", nil).
				WithRepresentation(last)
		}
		time.Sleep(WaitForPollInterval)
	}
}

func evalWaitPredicates(tab *Tab, rep *PageRepresentation, spec WaitForSpec) (bool, error) {
	if spec.ElementID != "" && spec.State != "" {
		ok, err := evalElementState(tab, rep, spec.ElementID, spec.State)
		if err != nil || !ok {
			return false, err
		}
	}
	if spec.Text != "" {
		if !containsText(rep, spec.Text) {
			return false, nil
		}
	}
	if spec.Selector != "" {
		ok, err := evalSelectorExists(tab, spec.Selector)
		if err != nil || !ok {
			return false, err
		}
	}
	if spec.JS != "" {
		ok, err := evalJSTruthy(tab, spec.JS)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// evalElementState checks one element-identity predicate against the
// representation rendered at the top of the current poll iteration;
// that render already refreshed the id map, so existence checks fall
// back to a lookup in the live id map only for ids the render didn't
// list as interactive (headings, forms).
func evalElementState(tab *Tab, rep *PageRepresentation, elementID string, state ElementWaitState) (bool, error) {
	var found *InteractiveElement
	for i := range rep.Interactive {
		if rep.Interactive[i].ID == elementID {
			found = &rep.Interactive[i]
			break
		}
	}

	switch state {
	case WaitRemoved:
		if found != nil {
			return false, nil
		}
		_, ok := tab.idGen.resolveID(elementID)
		return !ok, nil
	case WaitExists:
		if found != nil {
			return true, nil
		}
		_, ok := tab.idGen.resolveID(elementID)
		return ok, nil
	}

	if found == nil {
		return false, nil
	}
	switch state {
	case WaitVisible:
		return found.State.Visible, nil
	case WaitHidden:
		return !found.State.Visible, nil
	case WaitEnabled:
		return found.State.Enabled, nil
	case WaitDisabled:
		return !found.State.Enabled, nil
	}
	return false, nil
}

func containsText(rep *PageRepresentation, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(rep.Structure.FullContent), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(rep.Structure.ContentSummary), needle) {
		return true
	}
	for _, h := range rep.Structure.Headings {
		if strings.Contains(strings.ToLower(h.Text), needle) {
			return true
		}
	}
	for _, el := range rep.Interactive {
		if strings.Contains(strings.ToLower(el.Label), needle) || strings.Contains(strings.ToLower(el.Value), needle) {
			return true
		}
	}
	return false
}

func evalSelectorExists(tab *Tab, selector string) (bool, error) {
	var count int
	err := chromedp.Run(tab.ctx, chromedp.EvaluateAsDevTools(
		`document.querySelectorAll(`+jsStringLiteral(selector)+`).length`, &count,
	))
	if err != nil {
		return false, translate(KindSessionError, "wait_for", err)
	}
	return count > 0, nil
}

func evalJSTruthy(tab *Tab, expr string) (bool, error) {
	var result bool
	err := chromedp.Run(tab.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate("!!("+expr+")", &result).Do(ctx)
	}))
	if err != nil {
		return false, translate(KindEvaluationError, "wait_for", err)
	}
	return result, nil
}

// jsStringLiteral renders s as a double-quoted JS string literal, used to
// splice a CSS selector into an Evaluate call.
func jsStringLiteral(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + replacer.Replace(s) + `"`
}
