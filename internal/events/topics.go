package events

// Topics published on each tab's event subject. The navigation/dialog
// race helper takes one-shot subscriptions on both.
const (
	// TopicDialogAppeared fires when a JS dialog opens and the tab
	// transitions to Blocked. Payload: the pending dialog.
	TopicDialogAppeared = "dialog_appeared"

	// TopicFrameNavigated fires on main-frame navigation only;
	// sub-frame navigations are not published. Payload: the new URL.
	TopicFrameNavigated = "frame_navigated"
)
