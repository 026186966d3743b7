package browser

import (
	"context"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// axNode is one accessibility-tree node held in the per-render arena.
// Children/parent are referenced by node-id rather than pointer so the
// DAG's upward links never form a strong reference cycle.
type axNode struct {
	id        accessibility.NodeID
	backendID cdp.BackendNodeID
	role      string
	name      string
	value     string
	raw       *accessibility.Node
	childIDs  []accessibility.NodeID
}

// axForest is the arena produced by the Accessibility Extractor: every
// non-ignored node keyed by id, plus the list of roots (nodes whose
// parent was ignored, or who have no parent).
type axForest struct {
	nodes  map[accessibility.NodeID]*axNode
	roots  []accessibility.NodeID
	parent map[accessibility.NodeID]accessibility.NodeID
}

func (f *axForest) node(id accessibility.NodeID) *axNode {
	if f == nil {
		return nil
	}
	return f.nodes[id]
}

func (f *axForest) children(n *axNode) []*axNode {
	out := make([]*axNode, 0, len(n.childIDs))
	for _, id := range n.childIDs {
		if c := f.node(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// extractAXTree fetches the full accessibility tree and reconstructs the
// forest of non-ignored roots. Failure to fetch the tree yields an
// empty forest rather than an error; rendering an empty page is not a
// failure.
func extractAXTree(ctx context.Context) *axForest {
	var rawNodes []*accessibility.Node
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		rawNodes, err = accessibility.GetFullAXTree().Do(ctx)
		return err
	}))
	if err != nil || len(rawNodes) == 0 {
		return &axForest{nodes: map[accessibility.NodeID]*axNode{}}
	}
	return newAXForest(rawNodes)
}

// newAXForest builds the arena from a raw node list, dropping ignored
// nodes and rewiring parent/child links.
func newAXForest(rawNodes []*accessibility.Node) *axForest {
	forest := &axForest{
		nodes:  make(map[accessibility.NodeID]*axNode, len(rawNodes)),
		parent: make(map[accessibility.NodeID]accessibility.NodeID, len(rawNodes)),
	}

	// First pass: drop ignored nodes, build the arena.
	ignored := make(map[accessibility.NodeID]bool)
	for _, n := range rawNodes {
		if n == nil {
			continue
		}
		if n.Ignored {
			ignored[n.NodeID] = true
			continue
		}
		forest.nodes[n.NodeID] = &axNode{
			id:        n.NodeID,
			backendID: n.BackendDOMNodeID,
			role:      axValueString(n.Role),
			name:      axValueString(n.Name),
			value:     axValueString(n.Value),
			raw:       n,
		}
	}

	// Second pass: wire each surviving node to its parent if the parent
	// is also non-ignored; otherwise promote it to a root. Iterates the
	// raw slice, not the arena map, so children and roots keep CDP
	// document order: sibling indices (and the element ids hashed from
	// them) must not shuffle between renders of an unchanged page.
	for _, raw := range rawNodes {
		if raw == nil {
			continue
		}
		id := raw.NodeID
		if _, ok := forest.nodes[id]; !ok {
			continue
		}
		parentID := raw.ParentID
		if parentID != "" && !ignored[parentID] {
			if parent, ok := forest.nodes[parentID]; ok {
				parent.childIDs = append(parent.childIDs, id)
				forest.parent[id] = parentID
				continue
			}
		}
		forest.roots = append(forest.roots, id)
	}

	return forest
}

// axValueString decodes an AXValue's raw JSON payload as a string.
// Values arrive as raw JSON bytes, so a string value is still quoted.
func axValueString(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	return unquoteJSON(string(v.Value))
}

// unquoteJSON strips JSON string quoting from a raw value, returning
// non-string payloads (numbers, booleans) verbatim.
func unquoteJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	return raw
}

// axProperty looks up a named AX property on a raw node (e.g. "level",
// "type", "checked"), used by the Interactive Extractor and heading
// level lookup.
func axProperty(n *axNode, name string) *accessibility.Value {
	if n == nil || n.raw == nil {
		return nil
	}
	for _, p := range n.raw.Properties {
		if p != nil && string(p.Name) == name {
			return p.Value
		}
	}
	return nil
}
