package upload

import "sync"

// Progress milestones reported while an upload runs. They are advisory.
const (
	ProgressRead      = 10
	ProgressEncoded   = 30
	ProgressStored    = 50
	ProgressPrepared  = 70
	ProgressSubmitted = 90
	ProgressDone      = 100
)

// Tracker exposes the progress of one upload. A nil *Tracker is valid and discards updates.
type Tracker struct {
	mu       sync.Mutex
	value    int
	onChange func(int)
}

// NewTracker returns a Tracker that calls onChange, if non-nil, on every update.
func NewTracker(onChange func(int)) *Tracker {
	return &Tracker{onChange: onChange}
}

// Progress returns the last reported percentage.
func (t *Tracker) Progress() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

func (t *Tracker) set(v int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.value = v
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

func (t *Tracker) reset() {
	t.set(0)
}
