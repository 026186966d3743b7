package browser

import (
	"strings"
	"testing"

	"github.com/chromedp/cdproto/page"
)

func TestScrollDelta(t *testing.T) {
	cases := []struct {
		direction    string
		amount       int
		wantX, wantY int
	}{
		{"down", 300, 0, 300},
		{"up", 300, 0, -300},
		{"left", 100, -100, 0},
		{"right", 100, 100, 0},
		{"sideways", 50, 0, 50}, // unknown direction defaults to down
	}
	for _, c := range cases {
		dx, dy := scrollDelta(c.direction, c.amount)
		if dx != c.wantX || dy != c.wantY {
			t.Errorf("scrollDelta(%q, %d) = (%d, %d), want (%d, %d)", c.direction, c.amount, dx, dy, c.wantX, c.wantY)
		}
	}
}

func TestKeyModifierMask(t *testing.T) {
	cases := []struct {
		mods []string
		want int64
	}{
		{nil, 0},
		{[]string{"ctrl"}, 2},
		{[]string{"alt"}, 1},
		{[]string{"shift"}, 8},
		{[]string{"meta"}, 4},
		{[]string{"ctrl", "shift"}, 10},
		{[]string{"Control", "Alt"}, 3},
	}
	for _, c := range cases {
		if got := keyModifierMask(c.mods); got != c.want {
			t.Errorf("keyModifierMask(%v) = %d, want %d", c.mods, got, c.want)
		}
	}
}

func TestViewportPresets(t *testing.T) {
	cases := []struct {
		device       string
		w, h         int
		wantW, wantH int
		wantScale    float64
		wantMobile   bool
	}{
		{"mobile", 0, 0, 375, 667, 2, true},
		{"tablet", 0, 0, 768, 1024, 2, true},
		{"desktop", 0, 0, 1280, 720, 1, false},
		{"", 1440, 900, 1440, 900, 1, false},
		{"", 0, 0, 1280, 720, 1, false},
	}
	for _, c := range cases {
		w, h, scale, mobile := viewportPreset(c.device, c.w, c.h)
		if w != c.wantW || h != c.wantH || scale != c.wantScale || mobile != c.wantMobile {
			t.Errorf("viewportPreset(%q, %d, %d) = (%d, %d, %v, %v), want (%d, %d, %v, %v)",
				c.device, c.w, c.h, w, h, scale, mobile, c.wantW, c.wantH, c.wantScale, c.wantMobile)
		}
	}
}

func TestJSTypeOf(t *testing.T) {
	cases := []struct {
		v    any
		want string
	}{
		{nil, "undefined"},
		{true, "boolean"},
		{float64(3), "number"},
		{"hi", "string"},
		{[]any{1, 2}, "array"},
		{map[string]any{"a": 1}, "object"},
	}
	for _, c := range cases {
		if got := jsTypeOf(c.v); got != c.want {
			t.Errorf("jsTypeOf(%#v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestCaptureFormat(t *testing.T) {
	cases := []struct {
		in   string
		want page.CaptureScreenshotFormat
	}{
		{"jpeg", page.CaptureScreenshotFormatJpeg},
		{"webp", page.CaptureScreenshotFormatWebp},
		{"png", page.CaptureScreenshotFormatPng},
		{"", page.CaptureScreenshotFormatPng},
	}
	for _, c := range cases {
		if got := captureFormat(c.in); got != c.want {
			t.Errorf("captureFormat(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFindRoleAliasesFoldOntoTypes(t *testing.T) {
	cases := []struct {
		role, want string
	}{
		{"textbox", "text_input"},
		{"searchbox", "text_input"},
		{"anchor", "link"},
		{"switch", "toggle"},
		{"spinbutton", "range"},
		{"dropdown", "select"},
	}
	for _, c := range cases {
		if got := findRoleAliases[c.role]; got != c.want {
			t.Errorf("findRoleAliases[%q] = %q, want %q", c.role, got, c.want)
		}
	}
}

func TestFindFiltersByTextTypeAndNear(t *testing.T) {
	near := &Bounds{X: 0, Y: 0, W: 10, H: 10}
	far := &Bounds{X: 1000, Y: 1000, W: 10, H: 10}
	adjacent := &Bounds{X: 20, Y: 0, W: 10, H: 10}

	rep := &PageRepresentation{
		Interactive: []InteractiveElement{
			{ID: "btn-near", Type: "button", Label: "Submit", Bounds: near},
			{ID: "btn-adjacent", Type: "button", Label: "Cancel", Bounds: adjacent},
			{ID: "btn-far", Type: "button", Label: "Submit", Bounds: far},
			{ID: "lnk-1", Type: "link", Label: "Submit feedback", Bounds: near},
		},
	}

	// Exercise the same filtering logic Find applies, without needing a
	// live tab: near-anchor proximity, type filter, and text filter.
	var nearX, nearY float64
	for _, el := range rep.Interactive {
		if el.ID == "btn-near" {
			nearX, nearY = el.Bounds.center()
		}
	}

	q := FindQuery{Text: "submit", Type: "button", Near: "btn-near"}
	var out []InteractiveElement
	for _, el := range rep.Interactive {
		if q.Type != "" && el.Type != q.Type {
			continue
		}
		if q.Text != "" {
			needle := strings.ToLower(q.Text)
			if !strings.Contains(strings.ToLower(el.Label), needle) &&
				!strings.Contains(strings.ToLower(el.Value), needle) &&
				!strings.Contains(strings.ToLower(el.Placeholder), needle) {
				continue
			}
		}
		cx, cy := el.Bounds.center()
		dx, dy := cx-nearX, cy-nearY
		if dx*dx+dy*dy > 200*200 {
			continue
		}
		out = append(out, el)
	}
	if len(out) != 1 || out[0].ID != "btn-near" {
		t.Errorf("expected only btn-near to survive the filter combination, got %+v", out)
	}
}
