package browser

import (
	"testing"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
)

// buildForest wires a small fixture tree for signature/identity tests:
//
//	root (generic)
//	  nav (role=navigation, name="Primary")
//	    link (role=link, name="Home")
//	    link (role=link, name="About")
//	  main (role=main)
//	    button (role=button, name="Submit")
func buildForest() (*axForest, map[string]*axNode) {
	mk := func(id accessibility.NodeID, backend cdp.BackendNodeID, role, name string) *axNode {
		return &axNode{id: id, backendID: backend, role: role, name: name}
	}

	root := mk("1", 1, "generic", "")
	nav := mk("2", 2, "navigation", "Primary")
	link1 := mk("3", 3, "link", "Home")
	link2 := mk("4", 4, "link", "About")
	main := mk("5", 5, "main", "")
	button := mk("6", 6, "button", "Submit")

	forest := &axForest{
		nodes:  map[accessibility.NodeID]*axNode{},
		parent: map[accessibility.NodeID]accessibility.NodeID{},
	}
	for _, n := range []*axNode{root, nav, link1, link2, main, button} {
		forest.nodes[n.id] = n
	}
	link := func(parent, child *axNode) {
		parent.childIDs = append(parent.childIDs, child.id)
		forest.parent[child.id] = parent.id
	}
	link(root, nav)
	link(nav, link1)
	link(nav, link2)
	link(root, main)
	link(main, button)
	forest.roots = []accessibility.NodeID{root.id}

	byName := map[string]*axNode{
		"root": root, "nav": nav, "link1": link1, "link2": link2,
		"main": main, "button": button,
	}
	return forest, byName
}

func TestComputeSignatureFindsNearestLandmark(t *testing.T) {
	forest, n := buildForest()

	sig := computeSignature(forest, n["link1"])
	if sig.NearestLandmarkRole != "navigation" {
		t.Errorf("NearestLandmarkRole = %q, want navigation", sig.NearestLandmarkRole)
	}
	if sig.NearestLandmarkLabel != "Primary" {
		t.Errorf("NearestLandmarkLabel = %q, want Primary", sig.NearestLandmarkLabel)
	}

	sig2 := computeSignature(forest, n["link2"])
	if sig2.SiblingIndex != 1 {
		t.Errorf("link2 SiblingIndex = %d, want 1", sig2.SiblingIndex)
	}
	if n["link1"] == nil {
		t.Fatal("fixture missing link1")
	}
	sig1 := computeSignature(forest, n["link1"])
	if sig1.SiblingIndex != 0 {
		t.Errorf("link1 SiblingIndex = %d, want 0", sig1.SiblingIndex)
	}
}

func TestComputeSignatureLabelledContainer(t *testing.T) {
	forest, n := buildForest()
	sig := computeSignature(forest, n["button"])
	// main has no accessible name, so NearestLabelledContainer stays empty.
	if sig.NearestLabelledContainer != "" {
		t.Errorf("NearestLabelledContainer = %q, want empty", sig.NearestLabelledContainer)
	}
	if sig.NearestLandmarkRole != "main" {
		t.Errorf("NearestLandmarkRole = %q, want main", sig.NearestLandmarkRole)
	}
}

func TestIDGeneratorStableAcrossRenders(t *testing.T) {
	forest, n := buildForest()
	gen := newIDGenerator()

	sig := computeSignature(forest, n["link1"])
	gen.beginRender()
	id1 := gen.generateID("link", "link", "Home", sig, n["link1"].backendID)

	// Simulate a second render of the identical tree: the same logical
	// element must produce the same id without remembering the prior
	// render's assignments.
	gen.beginRender()
	id2 := gen.generateID("link", "link", "Home", sig, n["link1"].backendID)

	if id1 != id2 {
		t.Errorf("id changed across renders: %q vs %q", id1, id2)
	}
	if backendID, ok := gen.resolveID(id2); !ok || backendID != n["link1"].backendID {
		t.Errorf("resolveID(%q) = (%v, %v), want (%v, true)", id2, backendID, ok, n["link1"].backendID)
	}
	if id, ok := gen.idFor(n["link1"].backendID); !ok || id != id2 {
		t.Errorf("idFor(%v) = (%q, %v), want (%q, true)", n["link1"].backendID, id, ok, id2)
	}
}

func TestIDGeneratorCollisionDisambiguates(t *testing.T) {
	gen := newIDGenerator()
	gen.beginRender()

	sig := Signature{NearestLandmarkRole: "main"}
	id1 := gen.generateID("button", "button", "Save", sig, cdp.BackendNodeID(1))
	id2 := gen.generateID("button", "button", "Save", sig, cdp.BackendNodeID(2))

	if id1 == id2 {
		t.Fatalf("expected distinct ids for two same-signature elements, got %q twice", id1)
	}
}

func TestFindSimilarSuggestsTypo(t *testing.T) {
	gen := newIDGenerator()
	gen.beginRender()

	sig := Signature{NearestLandmarkRole: "main"}
	submitID := gen.generateID("button", "button", "Submit", sig, cdp.BackendNodeID(1))

	// A new render in which the button vanished: findSimilar must still
	// explain the old id via history, against whatever's live now.
	gen.beginRender()
	gen.generateID("button", "button", "Submit Order", sig, cdp.BackendNodeID(2))

	suggestion, ok := gen.findSimilar(submitID)
	if !ok {
		t.Fatalf("findSimilar(%q) found nothing", submitID)
	}
	if suggestion == submitID {
		t.Errorf("findSimilar suggested the same vanished id")
	}
}

func TestSnapshotStoreEvictsOldest(t *testing.T) {
	// Depths below MinSnapshotDepth are clamped up to it, so the store is
	// filled to that depth and then pushed once more.
	store := NewSnapshotStore(MinSnapshotDepth)

	id1 := store.Push(&PageRepresentation{URL: "https://a"})
	id2 := store.Push(&PageRepresentation{URL: "https://b"})
	for i := 2; i < MinSnapshotDepth; i++ {
		store.Push(&PageRepresentation{URL: "https://filler"})
	}
	id3 := store.Push(&PageRepresentation{URL: "https://c"})

	if _, ok := store.Get(id1); ok {
		t.Errorf("expected snapshot %d to have been evicted", id1)
	}
	if _, ok := store.Get(id2); !ok {
		t.Errorf("expected snapshot %d to still be retained", id2)
	}
	if got := store.GetOldestID(); got != id2 {
		t.Errorf("GetOldestID() = %d, want %d", got, id2)
	}
	if got := store.GetLatestID(); got != id3 {
		t.Errorf("GetLatestID() = %d, want %d", got, id3)
	}
}

func TestSnapshotStoreGetPrevious(t *testing.T) {
	store := NewSnapshotStore(5)
	if _, ok := store.GetPrevious(); ok {
		t.Errorf("GetPrevious() on empty store should report false")
	}
	store.Push(&PageRepresentation{URL: "https://a"})
	id2 := store.Push(&PageRepresentation{URL: "https://b"})

	prev, ok := store.GetPrevious()
	if !ok {
		t.Fatal("GetPrevious() = false after two pushes")
	}
	if prev.ID == id2 {
		t.Errorf("GetPrevious() returned the latest snapshot, not the prior one")
	}
}

func TestShouldAutoPush(t *testing.T) {
	cases := []struct {
		policy AutoSnapshotPolicy
		source string
		force  bool
		want   bool
	}{
		{AutoSnapshotEveryAction, "click", false, true},
		{AutoSnapshotObserveOnly, "click", false, false},
		{AutoSnapshotObserveOnly, "observe", false, true},
		{AutoSnapshotManual, "click", false, false},
		{AutoSnapshotManual, "observe", true, true},
	}
	for _, c := range cases {
		if got := ShouldAutoPush(c.policy, c.source, c.force); got != c.want {
			t.Errorf("ShouldAutoPush(%q, %q, %v) = %v, want %v", c.policy, c.source, c.force, got, c.want)
		}
	}
}
