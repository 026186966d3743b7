package browser

import (
	"testing"

	"github.com/chromedp/cdproto/accessibility"
)

func TestUnquoteJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`"Save"`, "Save"},
		{`"with \"quotes\""`, `with "quotes"`},
		{`3`, "3"},
		{`true`, "true"},
		{``, ``},
		{` "padded" `, "padded"},
	}
	for _, c := range cases {
		if got := unquoteJSON(c.in); got != c.want {
			t.Errorf("unquoteJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAxValueString(t *testing.T) {
	if got := axValueString(nil); got != "" {
		t.Errorf("axValueString(nil) = %q, want empty", got)
	}
	v := &accessibility.Value{Value: []byte(`"Submit"`)}
	if got := axValueString(v); got != "Submit" {
		t.Errorf("axValueString = %q, want Submit", got)
	}
}

func rawNode(id, parent accessibility.NodeID, role, name string, ignored bool) *accessibility.Node {
	n := &accessibility.Node{
		NodeID:   id,
		ParentID: parent,
		Ignored:  ignored,
		Role:     &accessibility.Value{Value: []byte(`"` + role + `"`)},
	}
	if name != "" {
		n.Name = &accessibility.Value{Value: []byte(`"` + name + `"`)}
	}
	return n
}

func TestNewAXForestKeepsDocumentOrder(t *testing.T) {
	raw := []*accessibility.Node{
		rawNode("1", "", "generic", "", false),
		rawNode("2", "1", "link", "First", false),
		rawNode("3", "1", "link", "Second", false),
		rawNode("4", "1", "link", "Third", false),
	}

	// Child order (and therefore same-role sibling indices, which feed
	// the element-id hash) must match the raw CDP list on every build.
	for attempt := 0; attempt < 20; attempt++ {
		forest := newAXForest(raw)
		root := forest.node("1")
		if root == nil {
			t.Fatal("root missing from forest")
		}
		want := []accessibility.NodeID{"2", "3", "4"}
		for i, id := range root.childIDs {
			if id != want[i] {
				t.Fatalf("childIDs = %v, want %v", root.childIDs, want)
			}
		}
		for i, id := range want {
			if got := siblingIndexByRole(forest, forest.node(id)); got != i {
				t.Fatalf("siblingIndexByRole(%s) = %d, want %d", id, got, i)
			}
		}
	}
}

func TestNewAXForestPromotesChildrenOfIgnoredParents(t *testing.T) {
	raw := []*accessibility.Node{
		rawNode("1", "", "generic", "", true),
		rawNode("2", "1", "main", "", false),
		rawNode("3", "2", "button", "Save", false),
	}
	forest := newAXForest(raw)

	if len(forest.roots) != 1 || forest.roots[0] != "2" {
		t.Fatalf("roots = %v, want [2] (orphan of the ignored root)", forest.roots)
	}
	if _, ok := forest.nodes["1"]; ok {
		t.Errorf("ignored node survived into the arena")
	}
	if parentID, ok := forest.parent["3"]; !ok || parentID != "2" {
		t.Errorf("parent[3] = (%v, %v), want (2, true)", parentID, ok)
	}
}

func TestForestChildrenSkipsUnknownIDs(t *testing.T) {
	n := &axNode{id: "1", childIDs: []accessibility.NodeID{"2", "missing"}}
	child := &axNode{id: "2", role: "button"}
	forest := &axForest{nodes: map[accessibility.NodeID]*axNode{"1": n, "2": child}}

	got := forest.children(n)
	if len(got) != 1 || got[0] != child {
		t.Errorf("children() = %v, want only the known child", got)
	}
}
