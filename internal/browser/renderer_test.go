package browser

import (
	"strings"
	"testing"
	"time"
)

func TestLandmarkKeyForBucketsByContainment(t *testing.T) {
	landmarks := []Landmark{
		{Role: "navigation", Bounds: &Bounds{X: 0, Y: 0, W: 100, H: 50}},
		{Role: "main", Bounds: &Bounds{X: 0, Y: 50, W: 100, H: 500}},
	}

	cases := []struct {
		name string
		b    *Bounds
		want string
	}{
		{"inside nav", &Bounds{X: 10, Y: 10, W: 20, H: 10}, "navigation"},
		{"inside main", &Bounds{X: 10, Y: 100, W: 20, H: 10}, "main"},
		{"outside all", &Bounds{X: 500, Y: 1000, W: 20, H: 10}, "root"},
		{"nil bounds", nil, "root"},
	}
	for _, c := range cases {
		if got := landmarkKeyFor(landmarks, c.b); got != c.want {
			t.Errorf("%s: landmarkKeyFor = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestBuildInteractiveSummaryCountsByLandmarkAndType(t *testing.T) {
	landmarks := []Landmark{
		{Role: "main", Bounds: &Bounds{X: 0, Y: 0, W: 100, H: 100}},
	}
	elements := []InteractiveElement{
		{ID: "btn-1", Type: "button", Bounds: &Bounds{X: 10, Y: 10, W: 10, H: 10}},
		{ID: "btn-2", Type: "button", Bounds: &Bounds{X: 30, Y: 10, W: 10, H: 10}},
		{ID: "lnk-1", Type: "link", Bounds: &Bounds{X: 10, Y: 200, W: 10, H: 10}},
	}

	summary := buildInteractiveSummary(landmarks, elements)
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.ByLandmark["main"]["button"] != 2 {
		t.Errorf("main button count = %d, want 2", summary.ByLandmark["main"]["button"])
	}
	if summary.ByLandmark["root"]["link"] != 1 {
		t.Errorf("root link count = %d, want 1", summary.ByLandmark["root"]["link"])
	}
}

func TestBuildContentSummaryNamesLandmarksAndCounts(t *testing.T) {
	landmarks := []Landmark{
		{Role: "main", Bounds: &Bounds{X: 0, Y: 0, W: 100, H: 100}},
	}
	headingBounds := []*Bounds{
		{X: 10, Y: 10, W: 50, H: 10},
		{X: 10, Y: 30, W: 50, H: 10},
	}
	elements := []InteractiveElement{
		{ID: "lnk-1", Type: "link", Bounds: &Bounds{X: 10, Y: 50, W: 10, H: 10}},
	}

	summary := buildContentSummary(landmarks, headingBounds, elements)
	if !strings.Contains(summary, "main: 2 headings, 1 link") {
		t.Errorf("content summary = %q, want a main bucket with 2 headings and 1 link", summary)
	}
}

func TestStubRepresentationCarriesDialog(t *testing.T) {
	dialog := &PendingDialog{Type: "alert", Message: "hi", Timestamp: time.Now()}
	rep := stubRepresentation(RenderInput{Dialog: dialog})

	if rep.Title != "(dialog blocking)" {
		t.Errorf("Title = %q, want (dialog blocking)", rep.Title)
	}
	if rep.PendingDialog == nil || rep.PendingDialog.Type != "alert" {
		t.Errorf("PendingDialog = %+v, want the alert dialog", rep.PendingDialog)
	}
	if len(rep.Structure.Landmarks) != 0 || len(rep.Interactive) != 0 {
		t.Errorf("stub representation should have empty structure/interactive")
	}
}

func TestBuildPageErrorsFiltersLevelsAndStatuses(t *testing.T) {
	console := []ConsoleMessage{
		{Level: "log", Text: "fine"},
		{Level: "error", Text: "broken"},
		{Level: "warning", Text: "iffy"},
	}
	network := []NetworkEntry{
		{URL: "https://ok", Status: 200},
		{URL: "https://missing", Status: 404},
		{URL: "https://boom", Status: 500},
	}

	errs := buildPageErrors(console, network)
	if len(errs.Console) != 2 {
		t.Errorf("Console errors = %d, want 2 (error + warning)", len(errs.Console))
	}
	if len(errs.Network) != 2 {
		t.Errorf("Network errors = %d, want 2 (>= 400 only)", len(errs.Network))
	}
}

func TestHeadingLevelDefaultsWithoutProperty(t *testing.T) {
	n := &axNode{role: "heading"}
	if got := headingLevel(n); got != 1 {
		t.Errorf("headingLevel with no property = %d, want 1", got)
	}
}

func TestBoundsOverlap(t *testing.T) {
	a := Bounds{X: 0, Y: 0, W: 100, H: 100}
	cases := []struct {
		b    Bounds
		want bool
	}{
		{Bounds{X: 50, Y: 50, W: 100, H: 100}, true},
		{Bounds{X: 200, Y: 200, W: 10, H: 10}, false},
		{Bounds{X: 100, Y: 0, W: 10, H: 10}, false}, // edge-adjacent, no overlap
	}
	for _, c := range cases {
		if got := boundsOverlap(a, c.b); got != c.want {
			t.Errorf("boundsOverlap(%+v, %+v) = %v, want %v", a, c.b, got, c.want)
		}
	}
}
