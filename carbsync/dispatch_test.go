package carbsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hejmattias/kolsync/models"
)

type countingSignaler struct{ signals int }

func (c *countingSignaler) SignalRefreshNeeded() { c.signals++ }

func TestDispatcherRoutesKnownSubscription(t *testing.T) {
	d := NewDispatcher()
	food := &countingSignaler{}
	containers := &countingSignaler{}
	d.Register(models.FoodSubscriptionID, food)
	d.Register(models.ContainerSubscriptionID, containers)

	res := d.HandlePush(models.ChangePayload{
		SubscriptionID: models.FoodSubscriptionID,
		RecordType:     models.FoodRecordType,
		Operation:      "update",
	}, false)

	assert.Equal(t, FetchNewData, res)
	assert.Equal(t, 1, food.signals)
	assert.Zero(t, containers.signals, "only the matching gateway is poked")
}

func TestDispatcherDropsUnknownSubscription(t *testing.T) {
	d := NewDispatcher()
	food := &countingSignaler{}
	d.Register(models.FoodSubscriptionID, food)

	res := d.HandlePush(models.ChangePayload{SubscriptionID: "stale-subscription"}, false)

	assert.Equal(t, FetchNoData, res)
	assert.Zero(t, food.signals)
}

func TestDispatcherForegroundStaysSilent(t *testing.T) {
	d := NewDispatcher()
	food := &countingSignaler{}
	d.Register(models.FoodSubscriptionID, food)

	// Foreground delivery routes identically; no alert path exists.
	res := d.HandlePush(models.ChangePayload{SubscriptionID: models.FoodSubscriptionID}, true)
	assert.Equal(t, FetchNewData, res)
	assert.Equal(t, 1, food.signals)
}

func TestGatewaySignalCoalesces(t *testing.T) {
	g := &Gateway[models.FoodItem]{refresh: make(chan struct{}, 1)}

	// A notification burst collapses into a single pending refresh, and
	// signaling never blocks the caller.
	for i := 0; i < 5; i++ {
		g.SignalRefreshNeeded()
	}
	<-g.RefreshNeeded()

	select {
	case <-g.RefreshNeeded():
		t.Fatal("burst must leave at most one pending signal")
	default:
	}

	// A new change after the drain re-arms the signal.
	g.SignalRefreshNeeded()
	select {
	case <-g.RefreshNeeded():
	default:
		t.Fatal("signal after drain must be delivered")
	}
}
