package browser

import (
	"context"
	"testing"
	"time"

	"github.com/TickTockBent/charlotte/internal/events"
)

func TestRingBufferDropsOldestOnOverflow(t *testing.T) {
	r := newRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.push(i)
	}
	got := r.snapshot()
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Errorf("snapshot() = %v, want [3 4 5]", got)
	}
}

func TestConsoleMessagesFilterByLevel(t *testing.T) {
	tab := &Tab{console: newRingBuffer[ConsoleMessage](10)}
	tab.console.push(ConsoleMessage{Level: "log", Text: "fine"})
	tab.console.push(ConsoleMessage{Level: "error", Text: "broken"})
	tab.console.push(ConsoleMessage{Level: "error", Text: "also broken"})

	if got := tab.consoleMessages(""); len(got) != 3 {
		t.Errorf("unfiltered count = %d, want 3", len(got))
	}
	errs := tab.consoleMessages("error")
	if len(errs) != 2 || errs[0].Text != "broken" {
		t.Errorf("error-level messages = %+v, want the two error entries", errs)
	}
}

func TestNetworkEntriesFilterByURLSubstring(t *testing.T) {
	tab := &Tab{network: newRingBuffer[NetworkEntry](10)}
	tab.network.push(NetworkEntry{URL: "https://api.example.com/users", Status: 500})
	tab.network.push(NetworkEntry{URL: "https://cdn.example.com/app.js", Status: 200})

	got := tab.networkEntries("api.")
	if len(got) != 1 || got[0].Status != 500 {
		t.Errorf("networkEntries(api.) = %+v, want only the api entry", got)
	}
}

func TestTakeReloadEventIsOneShot(t *testing.T) {
	tab := &Tab{}
	ev := &ReloadEvent{Trigger: "file_change", FilesChanged: []string{"index.html"}, Timestamp: time.Now()}
	tab.setReloadEvent(ev)

	if got := tab.takeReloadEvent(); got != ev {
		t.Fatalf("takeReloadEvent() = %+v, want the pending event", got)
	}
	if got := tab.takeReloadEvent(); got != nil {
		t.Errorf("second takeReloadEvent() = %+v, want nil", got)
	}
}

func TestClearDialogReturnsTabToIdle(t *testing.T) {
	tab := &Tab{}
	tab.dialogState = dialogBlocked
	tab.dialog = &PendingDialog{Type: "alert", Message: "hi"}

	tab.clearDialog()

	if tab.pendingDialog() != nil {
		t.Errorf("pendingDialog() non-nil after clearDialog")
	}
	if err := tab.resolveDialog(true, ""); err == nil {
		t.Errorf("resolveDialog after clear should report no pending dialog")
	}
}

func TestDialogRaceDetachesBlockedAction(t *testing.T) {
	tab := &Tab{events: events.NewSubject()}
	defer events.Complete(tab.events)

	blocked := make(chan error)
	done := make(chan struct{})
	var outcome raceOutcome
	var raceErr error
	go func() {
		outcome, raceErr = runWithDialogRace(tab, func() error {
			return <-blocked // simulates an action hung on a JS dialog
		})
		close(done)
	}()

	// Give the race helper a moment to subscribe, then fire the dialog.
	time.Sleep(20 * time.Millisecond)
	if err := events.Emit(tab.events, events.TopicDialogAppeared, &PendingDialog{Type: "alert"}); err != nil {
		t.Fatalf("emit dialog: %v", err)
	}

	select {
	case <-done:
	case <-time.After(DialogDetectionWindow + time.Second):
		t.Fatal("runWithDialogRace did not return after the dialog fired")
	}
	if raceErr != nil {
		t.Fatalf("runWithDialogRace error = %v", raceErr)
	}
	if !outcome.DialogFired {
		t.Errorf("outcome = %+v, want DialogFired", outcome)
	}

	// Unblock the detached action; its error must be swallowed, not
	// delivered anywhere.
	blocked <- context.Canceled
}

func TestDialogRaceReturnsActionResultWithoutDialog(t *testing.T) {
	tab := &Tab{events: events.NewSubject()}
	defer events.Complete(tab.events)

	outcome, err := runWithDialogRace(tab, func() error { return nil })
	if err != nil {
		t.Fatalf("runWithDialogRace error = %v", err)
	}
	if outcome.DialogFired || outcome.Navigated {
		t.Errorf("outcome = %+v, want neither dialog nor navigation", outcome)
	}
}
