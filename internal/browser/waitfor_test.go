package browser

import "testing"

func TestContainsTextSearchesStructureAndElements(t *testing.T) {
	rep := &PageRepresentation{
		Structure: PageStructure{
			ContentSummary: "main: 1 heading",
			FullContent:    "# Welcome\nThe order shipped.",
			Headings:       []Heading{{Level: 1, Text: "Welcome", ID: "h-1"}},
		},
		Interactive: []InteractiveElement{
			{ID: "btn-1", Type: "button", Label: "Place order"},
			{ID: "inp-1", Type: "text_input", Value: "jane@example.com"},
		},
	}

	cases := []struct {
		text string
		want bool
	}{
		{"shipped", true},
		{"WELCOME", true},
		{"place order", true},
		{"jane@example", true},
		{"refund", false},
	}
	for _, c := range cases {
		if got := containsText(rep, c.text); got != c.want {
			t.Errorf("containsText(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestJSStringLiteralEscapes(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`#late`, `"#late"`},
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
	}
	for _, c := range cases {
		if got := jsStringLiteral(c.in); got != c.want {
			t.Errorf("jsStringLiteral(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestEvalElementStateAgainstRendered(t *testing.T) {
	tab := &Tab{idGen: newIDGenerator()}
	rep := &PageRepresentation{
		Interactive: []InteractiveElement{
			{ID: "btn-1", Type: "button", Label: "Go", State: ElementState{Visible: true, Enabled: true}},
			{ID: "btn-2", Type: "button", Label: "Hidden", State: ElementState{}},
		},
	}

	cases := []struct {
		id    string
		state ElementWaitState
		want  bool
	}{
		{"btn-1", WaitExists, true},
		{"btn-1", WaitVisible, true},
		{"btn-1", WaitEnabled, true},
		{"btn-1", WaitHidden, false},
		{"btn-1", WaitRemoved, false},
		{"btn-2", WaitVisible, false},
		{"btn-2", WaitHidden, true},
		{"btn-2", WaitDisabled, true},
		{"btn-gone", WaitExists, false},
		{"btn-gone", WaitRemoved, true},
	}
	for _, c := range cases {
		got, err := evalElementState(tab, rep, c.id, c.state)
		if err != nil {
			t.Fatalf("evalElementState(%q, %q) error = %v", c.id, c.state, err)
		}
		if got != c.want {
			t.Errorf("evalElementState(%q, %q) = %v, want %v", c.id, c.state, got, c.want)
		}
	}
}
