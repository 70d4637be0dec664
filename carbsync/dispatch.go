package carbsync

import (
	"log"
	"sync"

	"github.com/hejmattias/kolsync/models"
)

// FetchResult is the completion signal handed back to the platform after
// a background wake, so it can judge whether the wake was useful.
type FetchResult int

const (
	FetchNoData FetchResult = iota
	FetchNewData
)

// RefreshSignaler is the dispatcher-facing side of a gateway.
type RefreshSignaler interface {
	SignalRefreshNeeded()
}

// Dispatcher classifies inbound push payloads by subscription id and
// routes a refresh signal to the matching gateway. Unknown subscriptions
// are dropped with a log line.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]RefreshSignaler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[string]RefreshSignaler)}
}

func (d *Dispatcher) Register(subscriptionID string, g RefreshSignaler) {
	d.mu.Lock()
	d.routes[subscriptionID] = g
	d.mu.Unlock()
}

// HandlePush routes one payload. Foreground deliveries of this silent
// push class never surface a user-visible alert; the routing is the same
// either way. The return value reports new-data vs no-data for
// background completion.
func (d *Dispatcher) HandlePush(p models.ChangePayload, foreground bool) FetchResult {
	d.mu.RLock()
	g := d.routes[p.SubscriptionID]
	d.mu.RUnlock()

	if g == nil {
		log.Printf("Dispatcher: unknown subscription %q, dropping notification", p.SubscriptionID)
		return FetchNoData
	}
	if foreground {
		log.Printf("Dispatcher: silent change notification for %q received in foreground", p.SubscriptionID)
	}
	g.SignalRefreshNeeded()
	return FetchNewData
}
