package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// extractLayout maps each node's backend-node-id to its absolute page
// bounds. A node whose box model can't be resolved (detached,
// zero-sized, off-page) maps to ZeroBounds; callers treat that as not
// visible.
func extractLayout(ctx context.Context, forest *axForest) map[cdp.BackendNodeID]Bounds {
	out := make(map[cdp.BackendNodeID]Bounds, len(forest.nodes))

	backendIDs := make([]cdp.BackendNodeID, 0, len(forest.nodes))
	for _, n := range forest.nodes {
		if n.backendID != 0 {
			backendIDs = append(backendIDs, n.backendID)
		}
	}
	if len(backendIDs) == 0 {
		return out
	}

	var frontendIDs []cdp.NodeID
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		frontendIDs, err = dom.PushNodesByBackendIDsToFrontend(backendIDs).Do(ctx)
		return err
	}))
	if err != nil || len(frontendIDs) != len(backendIDs) {
		return out
	}

	for i, backendID := range backendIDs {
		frontendID := frontendIDs[i]
		var box *dom.BoxModel
		boxErr := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			box, err = dom.GetBoxModel().WithNodeID(frontendID).Do(ctx)
			return err
		}))
		if boxErr != nil || box == nil || len(box.Content) < 8 {
			out[backendID] = ZeroBounds
			continue
		}
		b := boundsFromQuad(box.Content)
		if b.X+b.W <= 0 || b.Y+b.H <= 0 {
			// Entirely left of or above the page origin: off-page.
			b = ZeroBounds
		}
		out[backendID] = b
	}

	return out
}

// boundsFromQuad converts a CDP content quad (4 x/y point pairs, 8
// floats) into an axis-aligned rectangle.
func boundsFromQuad(quad dom.Quad) Bounds {
	minX := min(quad[0], quad[2], quad[4], quad[6])
	maxX := max(quad[0], quad[2], quad[4], quad[6])
	minY := min(quad[1], quad[3], quad[5], quad[7])
	maxY := max(quad[1], quad[3], quad[5], quad[7])

	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return ZeroBounds
	}
	return Bounds{X: minX, Y: minY, W: w, H: h}
}
