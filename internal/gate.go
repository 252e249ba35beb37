package internal

import "sync"

const EventVisibilityChanged = "VisibilityChanged"

type VisibilityPayload struct {
	Locked bool `json:"locked"`
}

// Notifier receives gate changes. Implementations must not block.
type Notifier interface {
	Notify(event string, payload any)
}

// VisibilityGate is the process-wide "guesses locked" flag. It starts unlocked
// and is never persisted.
type VisibilityGate struct {
	mu       sync.Mutex
	locked   bool
	notifier Notifier
}

func NewVisibilityGate(n Notifier) *VisibilityGate {
	return &VisibilityGate{notifier: n}
}

func (g *VisibilityGate) Status() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

// Toggle flips the flag and returns the new value. The notification is handed
// off while the lock is held so subscribers see changes in commit order.
func (g *VisibilityGate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = !g.locked
	if g.notifier != nil {
		g.notifier.Notify(EventVisibilityChanged, VisibilityPayload{Locked: g.locked})
	}
	return g.locked
}
