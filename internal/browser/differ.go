package browser

import "fmt"

// Diff computes the structural diff of two representations, gated by
// scope.
func Diff(fromID, toID int, a, b *PageRepresentation, scope DiffScope) *SnapshotDiff {
	var changes []Change

	if scope == ScopeAll || scope == ScopeStructure {
		changes = append(changes, diffLandmarks(a.Structure.Landmarks, b.Structure.Landmarks)...)
		changes = append(changes, diffHeadings(a.Structure.Headings, b.Structure.Headings)...)
	}
	if scope == ScopeAll || scope == ScopeInteractive {
		changes = append(changes, diffInteractive(a.Interactive, b.Interactive)...)
		changes = append(changes, diffForms(a.Forms, b.Forms)...)
	}
	if scope == ScopeAll || scope == ScopeContent {
		changes = append(changes, diffContent(a, b)...)
	}

	return &SnapshotDiff{
		FromSnapshot: fromID,
		ToSnapshot:   toID,
		Changes:      changes,
		Summary:      summarizeChanges(changes),
	}
}

func landmarkKey(l Landmark) string {
	return l.Role + ":" + l.Label
}

func diffLandmarks(a, b []Landmark) []Change {
	byKeyA := make(map[string]Landmark, len(a))
	for _, l := range a {
		byKeyA[landmarkKey(l)] = l
	}
	byKeyB := make(map[string]Landmark, len(b))
	for _, l := range b {
		byKeyB[landmarkKey(l)] = l
	}

	var changes []Change
	for key, lb := range byKeyB {
		la, existed := byKeyA[key]
		if !existed {
			changes = append(changes, Change{Kind: ChangeAdded, Element: key})
			continue
		}
		if boundsChanged(la.Bounds, lb.Bounds) {
			changes = append(changes, Change{Kind: ChangeMoved, Element: key, Property: "bounds"})
		}
	}
	for key := range byKeyA {
		if _, stillThere := byKeyB[key]; !stillThere {
			changes = append(changes, Change{Kind: ChangeRemoved, Element: key})
		}
	}
	return changes
}

func diffHeadings(a, b []Heading) []Change {
	byIDA := make(map[string]Heading, len(a))
	for _, h := range a {
		byIDA[h.ID] = h
	}
	byIDB := make(map[string]Heading, len(b))
	for _, h := range b {
		byIDB[h.ID] = h
	}

	var changes []Change
	for id, hb := range byIDB {
		ha, existed := byIDA[id]
		if !existed {
			changes = append(changes, Change{Kind: ChangeAdded, Element: id})
			continue
		}
		if ha.Text != hb.Text {
			changes = append(changes, Change{Kind: ChangeChanged, Element: id, Property: "text", From: ha.Text, To: hb.Text})
		}
	}
	for id := range byIDA {
		if _, stillThere := byIDB[id]; !stillThere {
			changes = append(changes, Change{Kind: ChangeRemoved, Element: id})
		}
	}
	return changes
}

func diffInteractive(a, b []InteractiveElement) []Change {
	byIDA := make(map[string]InteractiveElement, len(a))
	for _, el := range a {
		byIDA[el.ID] = el
	}
	byIDB := make(map[string]InteractiveElement, len(b))
	for _, el := range b {
		byIDB[el.ID] = el
	}

	var changes []Change
	for id, eb := range byIDB {
		ea, existed := byIDA[id]
		if !existed {
			changes = append(changes, Change{Kind: ChangeAdded, Element: id})
			continue
		}

		if boundsChanged(ea.Bounds, eb.Bounds) && ea.Bounds != nil && eb.Bounds != nil {
			changes = append(changes, Change{Kind: ChangeMoved, Element: id, Property: "bounds"})
		}
		changes = append(changes, diffElementState(id, ea.State, eb.State)...)

		switch eb.Type {
		case "text_input", "textarea", "select":
			if ea.Value != eb.Value {
				changes = append(changes, Change{Kind: ChangeChanged, Element: id, Property: "value", From: ea.Value, To: eb.Value})
			}
		}
		if ea.Label != eb.Label {
			changes = append(changes, Change{Kind: ChangeChanged, Element: id, Property: "label", From: ea.Label, To: eb.Label})
		}
	}
	for id := range byIDA {
		if _, stillThere := byIDB[id]; !stillThere {
			changes = append(changes, Change{Kind: ChangeRemoved, Element: id})
		}
	}
	return changes
}

func diffElementState(id string, a, b ElementState) []Change {
	var changes []Change
	fields := []struct {
		name     string
		from, to bool
	}{
		{"enabled", a.Enabled, b.Enabled},
		{"visible", a.Visible, b.Visible},
		{"focused", a.Focused, b.Focused},
		{"checked", a.Checked, b.Checked},
		{"expanded", a.Expanded, b.Expanded},
		{"selected", a.Selected, b.Selected},
		{"required", a.Required, b.Required},
		{"invalid", a.Invalid, b.Invalid},
	}
	for _, f := range fields {
		if f.from != f.to {
			changes = append(changes, Change{
				Kind:     ChangeChanged,
				Element:  id,
				Property: "state." + f.name,
				From:     f.from,
				To:       f.to,
			})
		}
	}
	return changes
}

func diffForms(a, b []FormRepresentation) []Change {
	byIDA := make(map[string]FormRepresentation, len(a))
	for _, f := range a {
		byIDA[f.ID] = f
	}
	byIDB := make(map[string]FormRepresentation, len(b))
	for _, f := range b {
		byIDB[f.ID] = f
	}

	var changes []Change
	for id, fb := range byIDB {
		fa, existed := byIDA[id]
		if !existed {
			changes = append(changes, Change{Kind: ChangeAdded, Element: id})
			continue
		}
		if !stringSliceEqual(fa.Fields, fb.Fields) {
			changes = append(changes, Change{Kind: ChangeChanged, Element: id, Property: "fields", From: fa.Fields, To: fb.Fields})
		}
	}
	for id := range byIDA {
		if _, stillThere := byIDB[id]; !stillThere {
			changes = append(changes, Change{Kind: ChangeRemoved, Element: id})
		}
	}
	return changes
}

func diffContent(a, b *PageRepresentation) []Change {
	var changes []Change
	if a.URL != b.URL {
		changes = append(changes, Change{Kind: ChangeChanged, Property: "url", From: a.URL, To: b.URL})
	}
	if a.Title != b.Title {
		changes = append(changes, Change{Kind: ChangeChanged, Property: "title", From: a.Title, To: b.Title})
	}
	if a.Structure.ContentSummary != b.Structure.ContentSummary {
		changes = append(changes, Change{Kind: ChangeChanged, Property: "content_summary", From: a.Structure.ContentSummary, To: b.Structure.ContentSummary})
	}
	return changes
}

func boundsChanged(a, b *Bounds) bool {
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func summarizeChanges(changes []Change) string {
	if len(changes) == 0 {
		return "No changes detected."
	}
	var added, removed, moved, changed int
	for _, c := range changes {
		switch c.Kind {
		case ChangeAdded:
			added++
		case ChangeRemoved:
			removed++
		case ChangeMoved:
			moved++
		case ChangeChanged:
			changed++
		}
	}
	return fmt.Sprintf("%d changes: %d added, %d removed, %d moved, %d changed.", len(changes), added, removed, moved, changed)
}
