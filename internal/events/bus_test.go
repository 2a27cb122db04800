package events

import (
	"testing"

	"github.com/patrickwarner/admediator/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.SubscribeAll(func(models.Event) { got = append(got, "all") })
	b.Subscribe(models.EventLoaded, func(models.Event) { got = append(got, "loaded-1") })
	b.Subscribe(models.EventLoaded, func(models.Event) { got = append(got, "loaded-2") })
	b.Subscribe(models.EventFailed, func(models.Event) { got = append(got, "failed") })

	b.Publish(models.Event{Kind: models.EventLoaded})
	assert.Equal(t, []string{"loaded-1", "loaded-2", "all"}, got)
	assert.Equal(t, 3, b.Listeners(models.EventLoaded))
	assert.Equal(t, 2, b.Listeners(models.EventFailed))
	assert.Equal(t, 1, b.Listeners(models.EventShown))
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	sub := b.Subscribe(models.EventShown, func(models.Event) { calls++ })
	all := b.SubscribeAll(func(models.Event) { calls++ })

	b.Publish(models.Event{Kind: models.EventShown})
	assert.Equal(t, 2, calls)

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Publish(models.Event{Kind: models.EventShown})
	assert.Equal(t, 3, calls)

	b.Unsubscribe(all)
	b.Publish(models.Event{Kind: models.EventShown})
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, b.Listeners(models.EventShown))
}

func TestListenerMaySubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	late := 0
	b.Subscribe(models.EventLoaded, func(models.Event) {
		b.Subscribe(models.EventLoaded, func(models.Event) { late++ })
	})

	b.Publish(models.Event{Kind: models.EventLoaded})
	assert.Equal(t, 0, late)
	b.Publish(models.Event{Kind: models.EventLoaded})
	assert.Equal(t, 1, late)
}
