package browser

import "time"

// Bounds is an absolute page rectangle in CSS pixels.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ZeroBounds is the sentinel returned by the Layout Extractor for
// zero-sized or off-page nodes; callers treat it as "not visible".
var ZeroBounds = Bounds{}

func (b Bounds) isZero() bool {
	return b.W == 0 && b.H == 0
}

// center returns the center point of b, used for spatial `find` queries
// and click targeting.
func (b Bounds) center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Landmark is a structural region with a landmark ARIA role.
type Landmark struct {
	Role   string  `json:"role"`
	Label  string  `json:"label,omitempty"`
	Bounds *Bounds `json:"bounds,omitempty"`
}

// Heading is a heading element, identified by a stable element id.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// ElementState carries only the non-default booleans for an interactive
// element, keeping serialized representations small.
type ElementState struct {
	Enabled  bool `json:"enabled,omitempty"`
	Visible  bool `json:"visible,omitempty"`
	Focused  bool `json:"focused,omitempty"`
	Checked  bool `json:"checked,omitempty"`
	Expanded bool `json:"expanded,omitempty"`
	Selected bool `json:"selected,omitempty"`
	Required bool `json:"required,omitempty"`
	Invalid  bool `json:"invalid,omitempty"`
}

// InteractiveElement is a clickable/fillable node surfaced to the agent.
type InteractiveElement struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Label       string       `json:"label"`
	Bounds      *Bounds      `json:"bounds,omitempty"`
	State       ElementState `json:"state,omitempty"`
	Href        string       `json:"href,omitempty"`
	Value       string       `json:"value,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Options     []string     `json:"options,omitempty"`
}

// FormRepresentation groups the interactive descendants of a <form>.
type FormRepresentation struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
	Submit *string  `json:"submit,omitempty"`
}

// InteractiveSummary replaces the full interactive[] array at detail=minimal.
type InteractiveSummary struct {
	Total      int                       `json:"total"`
	ByLandmark map[string]map[string]int `json:"by_landmark"`
}

// ConsoleMessage is one captured console entry.
type ConsoleMessage struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEntry is one captured network response.
type NetworkEntry struct {
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// PageErrors bundles console/network error views attached to a representation.
type PageErrors struct {
	Console []ConsoleMessage `json:"console,omitempty"`
	Network []NetworkEntry   `json:"network,omitempty"`
}

// PendingDialog describes a blocking JS dialog the Page Manager is holding.
type PendingDialog struct {
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	DefaultValue string    `json:"default_value,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ReloadEvent is surfaced once on the representation following a dev-mode
// file-watcher triggered reload.
type ReloadEvent struct {
	Trigger      string    `json:"trigger"`
	FilesChanged []string  `json:"files_changed"`
	Timestamp    time.Time `json:"timestamp"`
}

// PageStructure is the landmark/heading/content view of a page.
type PageStructure struct {
	Landmarks      []Landmark `json:"landmarks"`
	Headings       []Heading  `json:"headings"`
	ContentSummary string     `json:"content_summary,omitempty"`
	FullContent    string     `json:"full_content,omitempty"`
}

// Viewport is the page's current viewport size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PageRepresentation is the wire-stable output of the Renderer Pipeline.
type PageRepresentation struct {
	URL                string               `json:"url"`
	Title              string               `json:"title"`
	Viewport           Viewport             `json:"viewport"`
	SnapshotID         int                  `json:"snapshot_id"`
	Timestamp          time.Time            `json:"timestamp"`
	Structure          PageStructure        `json:"structure"`
	Interactive        []InteractiveElement `json:"interactive,omitempty"`
	InteractiveSummary *InteractiveSummary  `json:"interactive_summary,omitempty"`
	Forms              []FormRepresentation `json:"forms,omitempty"`
	Errors             PageErrors           `json:"errors"`
	PendingDialog      *PendingDialog       `json:"pending_dialog,omitempty"`
	ReloadEvent        *ReloadEvent         `json:"reload_event,omitempty"`
	Delta              *SnapshotDiff        `json:"delta,omitempty"`
}

// Snapshot is a completed PageRepresentation held in the ring buffer.
type Snapshot struct {
	ID             int
	Timestamp      time.Time
	Representation *PageRepresentation
}

// ChangeKind is one of the four structural diff event kinds.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeMoved   ChangeKind = "moved"
	ChangeChanged ChangeKind = "changed"
)

// Change is a single structural diff event.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Element  string     `json:"element,omitempty"`
	Property string     `json:"property,omitempty"`
	From     any        `json:"from,omitempty"`
	To       any        `json:"to,omitempty"`
}

// SnapshotDiff is the structural diff of two PageRepresentations.
type SnapshotDiff struct {
	FromSnapshot int      `json:"from_snapshot"`
	ToSnapshot   int      `json:"to_snapshot"`
	Changes      []Change `json:"changes"`
	Summary      string   `json:"summary"`
}

// DiffScope gates which categories of changes a Differ call emits.
type DiffScope string

const (
	ScopeAll         DiffScope = "all"
	ScopeStructure   DiffScope = "structure"
	ScopeInteractive DiffScope = "interactive"
	ScopeContent     DiffScope = "content"
)
