// Package browser implements Charlotte's CDP-native page rendering and
// interaction engine: the pipeline that turns a live Chrome DevTools
// Protocol session into a structured PageRepresentation, the element
// identity scheme, the snapshot ring buffer and differ, and the tab/
// dialog/dev-mode state machine that sits above them.
package browser

import "time"

// Default ports and timing constants for the managed Chromium instance.
const (
	// DefaultCDPPort is the default Chrome DevTools Protocol port.
	DefaultCDPPort = 9222

	// DefaultControlPort is the port the engine's own control surface binds to.
	DefaultControlPort = 9223

	// DefaultNavigationTimeout bounds a navigate/reload/back/forward call.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultLoadTimeout bounds waiting for "load" after a dialog/navigation race.
	DefaultLoadTimeout = 10 * time.Second

	// DefaultWaitForTimeout bounds a wait_for poll loop.
	DefaultWaitForTimeout = 10 * time.Second

	// DefaultEvaluateTimeout bounds a JS evaluate call.
	DefaultEvaluateTimeout = 5 * time.Second

	// DialogDetectionWindow is how long the navigation/dialog race helper
	// waits to see whether a dialog appears before assuming the action
	// completed cleanly.
	DialogDetectionWindow = 500 * time.Millisecond

	// SettlePause is how long the race helper waits, when neither a dialog
	// nor a navigation occurred, to let in-page DOM updates settle.
	SettlePause = 50 * time.Millisecond

	// WaitForPollInterval is the wait_for poller's loop interval.
	WaitForPollInterval = 100 * time.Millisecond

	// DevModeDebounce coalesces rapid file-watcher events before a reload.
	DevModeDebounce = 300 * time.Millisecond
)

// Snapshot ring buffer depth bounds for CharlotteConfig.snapshotDepth.
const (
	MinSnapshotDepth     = 5
	MaxSnapshotDepth     = 500
	DefaultSnapshotDepth = 50
)

// Console/network ring buffer sizes. The values are arbitrary; they
// only matter for observability.
const (
	ConsoleBufferSize = 1000
	NetworkBufferSize = 1000
)

// AutoSnapshotPolicy controls when the Renderer Pipeline's output is
// pushed to the Snapshot Store.
type AutoSnapshotPolicy string

const (
	AutoSnapshotEveryAction AutoSnapshotPolicy = "every_action"
	AutoSnapshotObserveOnly AutoSnapshotPolicy = "observe_only"
	AutoSnapshotManual      AutoSnapshotPolicy = "manual"
)

// DialogAutoDismissPolicy controls how the Page Manager resolves a
// newly opened JS dialog without waiting for an explicit `dialog` call.
type DialogAutoDismissPolicy string

const (
	DialogAutoDismissNone         DialogAutoDismissPolicy = "none"
	DialogAutoDismissAcceptAlerts DialogAutoDismissPolicy = "accept_alerts"
	DialogAutoDismissAcceptAll    DialogAutoDismissPolicy = "accept_all"
	DialogAutoDismissDismissAll   DialogAutoDismissPolicy = "dismiss_all"
)

// DetailLevel controls the verbosity of a rendered PageRepresentation.
type DetailLevel string

const (
	DetailMinimal DetailLevel = "minimal"
	DetailSummary DetailLevel = "summary"
	DetailFull    DetailLevel = "full"
)
