package render

import (
	"time"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/watcher"
)

const (
	DefaultSwapDelay = 400 * time.Millisecond
	DefaultFitDelay  = 500 * time.Millisecond
)

// Transition delays a scene swap and the following fit-view so the outgoing
// scene can animate away. Scheduling again supersedes both pending steps.
type Transition struct {
	r      *Renderer
	swap   *watcher.Debouncer
	fit    *watcher.Debouncer
	notify func()
}

// NewTransition returns a transition for r. Non-positive delays use the
// defaults. notify, if set, runs after each step so a UI can redraw.
func NewTransition(r *Renderer, swapDelay, fitDelay time.Duration, notify func()) *Transition {
	if swapDelay <= 0 {
		swapDelay = DefaultSwapDelay
	}
	if fitDelay <= 0 {
		fitDelay = DefaultFitDelay
	}
	if notify == nil {
		notify = func() {}
	}
	return &Transition{
		r:      r,
		swap:   watcher.NewDebouncer(swapDelay),
		fit:    watcher.NewDebouncer(fitDelay),
		notify: notify,
	}
}

// Schedule swaps to next after the swap delay and fits the view after the
// fit delay, both measured from now.
func (t *Transition) Schedule(next *Scene) {
	t.swap.Trigger(func() {
		t.r.SetScene(next)
		t.notify()
	})
	t.fit.Trigger(func() {
		if err := t.r.FitView(); err != nil {
			debug.Warn("fit view: %v", err)
		}
		t.notify()
	})
}

// Cancel drops any pending swap and fit.
func (t *Transition) Cancel() {
	t.swap.Cancel()
	t.fit.Cancel()
}

// Pending reports whether a step is still scheduled.
func (t *Transition) Pending() bool {
	return t.swap.Pending() || t.fit.Pending()
}
