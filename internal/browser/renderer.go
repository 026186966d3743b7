package browser

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// RenderInput is everything the Renderer Pipeline needs from the Page
// Manager for one tab, decoupling rendering from tab lifecycle.
type RenderInput struct {
	Ctx     context.Context
	TabID   string
	IDGen   *idGenerator
	Dialog  *PendingDialog // non-nil: tab is Blocked
	Console []ConsoleMessage
	Network []NetworkEntry
	Reload  *ReloadEvent
}

// RenderOptions gates the Renderer Pipeline's output shape.
// ForceSnapshot is read by the snapshot push policy, not the pipeline:
// it makes the resulting representation push regardless of the
// configured auto-snapshot policy.
type RenderOptions struct {
	Detail        DetailLevel
	Selector      string
	IncludeStyles bool
	ForceSnapshot bool
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Render runs the full pipeline: AX extraction, layout, interactive
// extraction, structure assembly, and detail-level shaping. A Blocked
// dialog short-circuits into a stub representation, because any
// JS-touching CDP call would hang against an open dialog.
func Render(input RenderInput, opts RenderOptions) (*PageRepresentation, error) {
	if opts.Detail == "" {
		opts.Detail = DetailSummary
	}

	if input.Dialog != nil {
		return stubRepresentation(input), nil
	}

	ctx := input.Ctx

	var url, title string
	if err := chromedp.Run(ctx, chromedp.Location(&url), chromedp.Title(&title)); err != nil {
		return nil, translate(KindSessionError, "render", err)
	}

	viewport := fetchViewport(ctx)

	forest := extractAXTree(ctx)
	bounds := extractLayout(ctx, forest)

	input.IDGen.beginRender()
	landmarks, headings, headingBounds := buildStructure(forest, bounds, input.IDGen)
	elements, forms := extractInteractive(forest, bounds, input.IDGen)

	if opts.Selector != "" {
		landmarks, headings, elements = scopeToSelector(ctx, opts.Selector, landmarks, headings, elements)
	}

	structure := PageStructure{
		Landmarks: landmarks,
		Headings:  headings,
	}
	if opts.Detail == DetailSummary || opts.Detail == DetailFull {
		structure.ContentSummary = buildContentSummary(landmarks, headingBounds, elements)
	}
	if opts.Detail == DetailFull {
		structure.FullContent = extractFullContent(ctx, url)
	}

	rep := &PageRepresentation{
		URL:         url,
		Title:       title,
		Viewport:    viewport,
		Timestamp:   time.Now(),
		Structure:   structure,
		Forms:       forms,
		Errors:      buildPageErrors(input.Console, input.Network),
		ReloadEvent: input.Reload,
	}

	if opts.Detail == DetailMinimal {
		rep.InteractiveSummary = buildInteractiveSummary(landmarks, elements)
	} else {
		rep.Interactive = elements
	}

	return rep, nil
}

func stubRepresentation(input RenderInput) *PageRepresentation {
	return &PageRepresentation{
		Title:         "(dialog blocking)",
		Timestamp:     time.Now(),
		Structure:     PageStructure{},
		Errors:        buildPageErrors(input.Console, input.Network),
		PendingDialog: input.Dialog,
	}
}

func fetchViewport(ctx context.Context) Viewport {
	var w, h int
	_ = chromedp.Run(ctx, chromedp.Evaluate(`window.innerWidth`, &w))
	_ = chromedp.Run(ctx, chromedp.Evaluate(`window.innerHeight`, &h))
	return Viewport{Width: w, Height: h}
}

// buildStructure walks the forest in pre-order, collecting landmark nodes
// as Landmark values and "heading" nodes as Heading values.
// It also returns each heading's bounds (not part of the wire-stable
// Heading type) so buildContentSummary can bucket headings by landmark.
func buildStructure(forest *axForest, bounds map[cdp.BackendNodeID]Bounds, idGen *idGenerator) ([]Landmark, []Heading, []*Bounds) {
	var landmarks []Landmark
	var headings []Heading
	var headingBounds []*Bounds

	visitNode := func(n *axNode) {
		b, hasBounds := bounds[n.backendID]
		var boundsPtr *Bounds
		if hasBounds && !b.isZero() {
			bc := b
			boundsPtr = &bc
		}

		if landmarkRoles[n.role] {
			landmarks = append(landmarks, Landmark{
				Role:   n.role,
				Label:  n.name,
				Bounds: boundsPtr,
			})
		}

		if n.role == "heading" {
			level := headingLevel(n)
			sig := computeSignature(forest, n)
			id := idGen.generateID("heading", n.role, n.name, sig, n.backendID)
			headings = append(headings, Heading{
				Level: level,
				Text:  n.name,
				ID:    id,
			})
			headingBounds = append(headingBounds, boundsPtr)
		}
	}

	var walk func(id accessibility.NodeID)
	walk = func(id accessibility.NodeID) {
		n := forest.node(id)
		if n == nil {
			return
		}
		visitNode(n)
		for _, childID := range n.childIDs {
			walk(childID)
		}
	}
	for _, rootID := range forest.roots {
		walk(rootID)
	}

	return landmarks, headings, headingBounds
}

func headingLevel(n *axNode) int {
	v := axProperty(n, "level")
	if v == nil || len(v.Value) == 0 {
		return 1
	}
	if lvl, err := strconv.Atoi(unquoteJSON(string(v.Value))); err == nil && lvl >= 1 && lvl <= 6 {
		return lvl
	}
	return 1
}

func buildContentSummary(landmarks []Landmark, headingBounds []*Bounds, elements []InteractiveElement) string {
	type counts struct {
		headings int
		byType   map[string]int
	}
	byLandmark := map[string]*counts{}
	var order []string

	bucket := func(key string) *counts {
		c, ok := byLandmark[key]
		if !ok {
			c = &counts{byType: map[string]int{}}
			byLandmark[key] = c
			order = append(order, key)
		}
		return c
	}

	for _, hb := range headingBounds {
		bucket(landmarkKeyFor(landmarks, hb)).headings++
	}
	for _, el := range elements {
		key := landmarkKeyFor(landmarks, el.Bounds)
		bucket(key).byType[el.Type]++
	}

	sort.Strings(order)
	parts := make([]string, 0, len(order))
	for _, key := range order {
		c := byLandmark[key]
		var bits []string
		if c.headings > 0 {
			bits = append(bits, fmt.Sprintf("%d heading%s", c.headings, plural(c.headings)))
		}
		typeOrder := make([]string, 0, len(c.byType))
		for t := range c.byType {
			typeOrder = append(typeOrder, t)
		}
		sort.Strings(typeOrder)
		for _, t := range typeOrder {
			n := c.byType[t]
			bits = append(bits, fmt.Sprintf("%d %s%s", n, t, plural(n)))
		}
		if len(bits) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(bits, ", ")))
	}
	return strings.Join(parts, "; ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func buildInteractiveSummary(landmarks []Landmark, elements []InteractiveElement) *InteractiveSummary {
	byLandmark := make(map[string]map[string]int)
	for _, el := range elements {
		key := landmarkKeyFor(landmarks, el.Bounds)
		m, ok := byLandmark[key]
		if !ok {
			m = make(map[string]int)
			byLandmark[key] = m
		}
		m[el.Type]++
	}
	return &InteractiveSummary{Total: len(elements), ByLandmark: byLandmark}
}

// landmarkKeyFor returns the role of the landmark whose bounds contain b's
// center, or "root" if none does (used to bucket headings/elements for
// content_summary and interactive_summary).
func landmarkKeyFor(landmarks []Landmark, b *Bounds) string {
	if b == nil {
		return "root"
	}
	cx, cy := b.center()
	for _, lm := range landmarks {
		if lm.Bounds == nil {
			continue
		}
		lb := *lm.Bounds
		if cx >= lb.X && cx <= lb.X+lb.W && cy >= lb.Y && cy <= lb.Y+lb.H {
			return lm.Role
		}
	}
	return "root"
}

func buildPageErrors(console []ConsoleMessage, network []NetworkEntry) PageErrors {
	var errs PageErrors
	for _, c := range console {
		if c.Level == "error" || c.Level == "warn" || c.Level == "warning" {
			errs.Console = append(errs.Console, c)
		}
	}
	for _, n := range network {
		if n.Status >= 400 {
			errs.Network = append(errs.Network, n)
		}
	}
	return errs
}

// scopeToSelector narrows landmarks and interactive elements to those
// whose bounds overlap the box of the first element matched by a CSS
// selector — a pragmatic stand-in for walking each candidate's DOM-path
// signature ancestors. Headings carry no bounds and are returned
// unfiltered.
func scopeToSelector(ctx context.Context, selector string, landmarks []Landmark, headings []Heading, elements []InteractiveElement) ([]Landmark, []Heading, []InteractiveElement) {
	root, err := dom.GetDocument().Do(ctx)
	if err != nil || root == nil {
		return landmarks, headings, elements
	}
	nodeID, err := dom.QuerySelector(root.NodeID, selector).Do(ctx)
	if err != nil || nodeID == 0 {
		return landmarks, headings, elements
	}
	box, err := dom.GetBoxModel().WithNodeID(nodeID).Do(ctx)
	if err != nil || box == nil || len(box.Content) < 8 {
		return landmarks, headings, elements
	}
	scope := boundsFromQuad(box.Content)

	filteredLandmarks := make([]Landmark, 0, len(landmarks))
	for _, lm := range landmarks {
		if lm.Bounds != nil && boundsOverlap(scope, *lm.Bounds) {
			filteredLandmarks = append(filteredLandmarks, lm)
		}
	}
	filteredElements := make([]InteractiveElement, 0, len(elements))
	for _, el := range elements {
		if el.Bounds != nil && boundsOverlap(scope, *el.Bounds) {
			filteredElements = append(filteredElements, el)
		}
	}
	return filteredLandmarks, headings, filteredElements
}

func boundsOverlap(a, b Bounds) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// extractFullContent renders the page's outer HTML to markdown for the
// full detail level. Failure yields an empty string, not an error;
// content synthesis is best-effort.
func extractFullContent(ctx context.Context, pageURL string) string {
	root, err := dom.GetDocument().Do(ctx)
	if err != nil || root == nil {
		return ""
	}
	html, err := dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
	if err != nil || html == "" {
		return ""
	}
	md, err := mdConverter.ConvertString(html, converter.WithDomain(pageURL))
	if err != nil {
		return ""
	}
	return md
}
