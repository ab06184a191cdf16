// Package tray provides a system tray interface showing the live rep count.
package tray

import (
	"fmt"
	"math"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"
)

// Tray represents the system tray application. It implements exercise.Sink
// so it can be registered as an observer of the counting session.
type Tray struct {
	reps        func() int
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	lastPercent int
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuReps     *systray.MenuItem
	menuProgress *systray.MenuItem
}

// New creates a new Tray with counting enabled. reps reports the count
// shown after each rep.
func New(reps func() int) *Tray {
	return &Tray{
		reps:        reps,
		enabled:     true,
		lastPercent: -1,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("marchrep")
	systray.SetTooltip("marchrep step counter")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle rep counting")
	systray.AddSeparator()

	t.menuReps = systray.AddMenuItem(repsTitle(t.reps()), "Reps in the current session")
	t.menuReps.Disable()
	t.menuProgress = systray.AddMenuItem(progressTitle(0), "Progress of the current step")
	t.menuProgress.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit marchrep")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// OnProgress implements exercise.Sink. The menu is only touched when the
// whole percentage changes.
func (t *Tray) OnProgress(progress float64) {
	percent := percentOf(progress)

	t.mu.Lock()
	defer t.mu.Unlock()

	if percent == t.lastPercent {
		return
	}
	t.lastPercent = percent

	if t.menuProgress != nil {
		t.menuProgress.SetTitle(progressTitle(progress))
	}
}

// OnRep implements exercise.Sink.
func (t *Tray) OnRep() {
	t.Refresh()
}

// Refresh redraws the rep count, e.g. after a new session starts.
func (t *Tray) Refresh() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuReps != nil {
		t.menuReps.SetTitle(repsTitle(t.reps()))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Counting"
	}
	return "○ Paused"
}

func repsTitle(reps int) string {
	return "Reps: " + humanize.Comma(int64(reps))
}

// percentOf converts progress to a whole percentage capped at 100.
func percentOf(progress float64) int {
	return int(math.Round(math.Min(math.Max(progress, 0), 1) * 100))
}

func progressTitle(progress float64) string {
	return fmt.Sprintf("Step: %d%%", percentOf(progress))
}
