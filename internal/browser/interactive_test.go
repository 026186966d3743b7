package browser

import (
	"testing"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
)

// formFixture wires a forest with a login form:
//
//	root (generic)
//	  form (role=form, name="Login")
//	    input (role=textbox, name="Email")
//	    select (role=combobox, name="Country")
//	      option "US"
//	      option "DE"
//	    button (role=button, name="Submit")
func formFixture() *axForest {
	mk := func(id accessibility.NodeID, backend cdp.BackendNodeID, role, name string) *axNode {
		return &axNode{id: id, backendID: backend, role: role, name: name}
	}

	root := mk("1", 1, "generic", "")
	form := mk("2", 2, "form", "Login")
	email := mk("3", 3, "textbox", "Email")
	country := mk("4", 4, "combobox", "Country")
	optUS := mk("5", 5, "option", "US")
	optDE := mk("6", 6, "option", "DE")
	submit := mk("7", 7, "button", "Submit")

	forest := &axForest{
		nodes:  map[accessibility.NodeID]*axNode{},
		parent: map[accessibility.NodeID]accessibility.NodeID{},
	}
	for _, n := range []*axNode{root, form, email, country, optUS, optDE, submit} {
		forest.nodes[n.id] = n
	}
	link := func(parent, child *axNode) {
		parent.childIDs = append(parent.childIDs, child.id)
		forest.parent[child.id] = parent.id
	}
	link(root, form)
	link(form, email)
	link(form, country)
	link(country, optUS)
	link(country, optDE)
	link(form, submit)
	forest.roots = []accessibility.NodeID{root.id}
	return forest
}

func TestExtractInteractiveMapsRolesToTypes(t *testing.T) {
	forest := formFixture()
	bounds := map[cdp.BackendNodeID]Bounds{
		3: {X: 0, Y: 0, W: 100, H: 20},
		4: {X: 0, Y: 30, W: 100, H: 20},
		7: {X: 0, Y: 60, W: 80, H: 30},
	}
	gen := newIDGenerator()
	gen.beginRender()

	elements, forms := extractInteractive(forest, bounds, gen)

	byType := map[string]int{}
	for _, el := range elements {
		byType[el.Type]++
	}
	if byType["text_input"] != 1 || byType["select"] != 1 || byType["button"] != 1 {
		t.Fatalf("type counts = %v, want one each of text_input/select/button", byType)
	}

	if len(forms) != 1 {
		t.Fatalf("forms = %d, want 1", len(forms))
	}
	form := forms[0]
	if len(form.Fields) != 3 {
		t.Errorf("form fields = %v, want 3 entries", form.Fields)
	}
	if form.Submit == nil {
		t.Fatal("form submit button not identified")
	}
}

func TestExtractInteractiveCollectsSelectOptions(t *testing.T) {
	forest := formFixture()
	gen := newIDGenerator()
	gen.beginRender()

	elements, _ := extractInteractive(forest, map[cdp.BackendNodeID]Bounds{}, gen)

	var sel *InteractiveElement
	for i := range elements {
		if elements[i].Type == "select" {
			sel = &elements[i]
		}
	}
	if sel == nil {
		t.Fatal("no select element extracted")
	}
	if len(sel.Options) != 2 || sel.Options[0] != "US" || sel.Options[1] != "DE" {
		t.Errorf("Options = %v, want [US DE]", sel.Options)
	}
}

func TestExtractInteractiveInvisibleElementHasNilBounds(t *testing.T) {
	forest := formFixture()
	gen := newIDGenerator()
	gen.beginRender()

	// No bounds at all: every element must report bounds == nil and
	// visible false.
	elements, _ := extractInteractive(forest, map[cdp.BackendNodeID]Bounds{}, gen)
	for _, el := range elements {
		if el.Bounds != nil {
			t.Errorf("%s: Bounds = %+v, want nil without layout data", el.ID, el.Bounds)
		}
		if el.State.Visible {
			t.Errorf("%s: State.Visible = true, want false without bounds", el.ID)
		}
	}
}

func TestIsSubmitButton(t *testing.T) {
	byLabel := &axNode{role: "button", name: "Submit order"}
	if !isSubmitButton(byLabel) {
		t.Errorf("expected label containing 'submit' to qualify")
	}
	plain := &axNode{role: "button", name: "Cancel"}
	if isSubmitButton(plain) {
		t.Errorf("Cancel button should not qualify as submit")
	}
}

func TestAxBool(t *testing.T) {
	cases := []struct {
		raw  string // raw JSON payload as CDP delivers it
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"mixed"`, true},
		{`"false"`, false},
		{`3`, false},
	}
	for _, c := range cases {
		av := &accessibility.Value{Value: []byte(c.raw)}
		if got := axBool(av); got != c.want {
			t.Errorf("axBool(%s) = %v, want %v", c.raw, got, c.want)
		}
	}
	if axBool(nil) {
		t.Errorf("axBool(nil) = true, want false")
	}
}
