package browser

import "testing"

func changeFor(changes []Change, element, property string) (Change, bool) {
	for _, c := range changes {
		if c.Element == element && (property == "" || c.Property == property) {
			return c, true
		}
	}
	return Change{}, false
}

func TestDiffDetectsLandmarkAndHeadingChanges(t *testing.T) {
	a := &PageRepresentation{
		Structure: PageStructure{
			Landmarks: []Landmark{{Role: "navigation", Label: "Primary", Bounds: &Bounds{W: 100, H: 20}}},
			Headings:  []Heading{{Level: 1, Text: "Welcome", ID: "h-aaaaaa"}},
		},
	}
	b := &PageRepresentation{
		Structure: PageStructure{
			Landmarks: []Landmark{
				{Role: "navigation", Label: "Primary", Bounds: &Bounds{W: 200, H: 20}},
				{Role: "main", Label: "", Bounds: &Bounds{W: 500, H: 400}},
			},
			Headings: []Heading{{Level: 1, Text: "Welcome back", ID: "h-aaaaaa"}},
		},
	}

	diff := Diff(1, 2, a, b, ScopeAll)

	if _, ok := changeFor(diff.Changes, "main:", ""); !ok {
		t.Errorf("expected an added landmark for main:, got %+v", diff.Changes)
	}
	if c, ok := changeFor(diff.Changes, "navigation:Primary", "bounds"); !ok || c.Kind != ChangeMoved {
		t.Errorf("expected a moved navigation:Primary landmark, got %+v", diff.Changes)
	}
	if c, ok := changeFor(diff.Changes, "h-aaaaaa", "text"); !ok || c.Kind != ChangeChanged {
		t.Errorf("expected a changed heading text, got %+v", diff.Changes)
	}
}

func TestDiffDetectsInteractiveStateAndValueChanges(t *testing.T) {
	a := &PageRepresentation{
		Interactive: []InteractiveElement{
			{ID: "inp-1", Type: "text_input", Label: "Email", Value: "", State: ElementState{Enabled: true}},
			{ID: "btn-1", Type: "button", Label: "Submit", State: ElementState{Enabled: false}},
		},
	}
	b := &PageRepresentation{
		Interactive: []InteractiveElement{
			{ID: "inp-1", Type: "text_input", Label: "Email", Value: "a@b.com", State: ElementState{Enabled: true}},
			{ID: "btn-1", Type: "button", Label: "Submit", State: ElementState{Enabled: true}},
		},
	}

	diff := Diff(1, 2, a, b, ScopeInteractive)

	if c, ok := changeFor(diff.Changes, "inp-1", "value"); !ok || c.To != "a@b.com" {
		t.Errorf("expected inp-1 value change to a@b.com, got %+v", diff.Changes)
	}
	if c, ok := changeFor(diff.Changes, "btn-1", "state.enabled"); !ok || c.To != true {
		t.Errorf("expected btn-1 state.enabled change to true, got %+v", diff.Changes)
	}
}

func TestDiffScopeGatesCategories(t *testing.T) {
	a := &PageRepresentation{
		Structure:   PageStructure{Landmarks: []Landmark{{Role: "main"}}},
		Interactive: []InteractiveElement{{ID: "btn-1", Type: "button"}},
	}
	b := &PageRepresentation{
		Structure:   PageStructure{},
		Interactive: []InteractiveElement{},
	}

	diff := Diff(1, 2, a, b, ScopeStructure)
	if _, ok := changeFor(diff.Changes, "btn-1", ""); ok {
		t.Errorf("ScopeStructure leaked an interactive-only change: %+v", diff.Changes)
	}
	if _, ok := changeFor(diff.Changes, "main:", ""); !ok {
		t.Errorf("ScopeStructure missed the landmark removal: %+v", diff.Changes)
	}
}

func TestDiffEmptyProducesNoChangesSummary(t *testing.T) {
	rep := &PageRepresentation{URL: "https://example.com"}
	diff := Diff(1, 2, rep, rep, ScopeAll)
	if diff.Summary != "No changes detected." {
		t.Errorf("Summary = %q, want %q", diff.Summary, "No changes detected.")
	}
}
