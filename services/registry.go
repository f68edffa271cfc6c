// services/registry.go
package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// WidgetRegistry hands out one Widget per device id.
type WidgetRegistry struct {
	deps WidgetDeps

	mu      sync.Mutex
	widgets map[string]*Widget
}

func NewWidgetRegistry(deps WidgetDeps) *WidgetRegistry {
	return &WidgetRegistry{
		deps:    deps,
		widgets: make(map[string]*Widget),
	}
}

// Get returns the device's widget, creating and restoring it on first use.
func (r *WidgetRegistry) Get(ctx context.Context, deviceID string) *Widget {
	r.mu.Lock()
	w, ok := r.widgets[deviceID]
	if !ok {
		w = NewWidget(r.deps, deviceID)
		r.widgets[deviceID] = w
	}
	r.mu.Unlock()

	w.Init(ctx)
	w.touch(r.deps.Clock.Now())
	return w
}

func (r *WidgetRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// Sweep drops widgets idle for longer than idle. Their persisted state stays
// in the store and is restored on the next request.
func (r *WidgetRegistry) Sweep(idle time.Duration) int {
	cutoff := r.deps.Clock.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, w := range r.widgets {
		if w.busy.Load() || !w.idleSince().Before(cutoff) {
			continue
		}
		delete(r.widgets, id)
		removed++
	}
	if removed > 0 {
		log.Printf("[REGISTRY] 🧹 Evicted %d idle widget(s), %d remain", removed, len(r.widgets))
	}
	return removed
}
