package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipersmart/internal/domain"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()

	var first, second []Event
	b.Subscribe(func(e Event) { first = append(first, e) })
	b.Subscribe(func(e Event) { second = append(second, e) })

	b.Publish(&domain.Summary{Email: "a@x.com"})
	b.Publish(nil)

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, "a@x.com", first[0].User.Email)
	assert.Nil(t, first[1].User)
}

func TestLateSubscriberSeesNoReplay(t *testing.T) {
	b := New()
	b.Publish(&domain.Summary{Email: "a@x.com"})

	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })

	assert.Empty(t, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	var got []Event
	unsub := b.Subscribe(func(e Event) { got = append(got, e) })

	b.Publish(nil)
	unsub()
	b.Publish(nil)

	assert.Len(t, got, 1)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	b := New()
	unsub := b.Subscribe(func(Event) {})
	unsub()
	unsub() // must not panic or unhook anyone else

	var got []Event
	b.Subscribe(func(e Event) { got = append(got, e) })
	b.Publish(nil)
	assert.Len(t, got, 1)
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	b := New()

	var calls int
	var unsub Unsubscribe
	unsub = b.Subscribe(func(Event) {
		calls++
		unsub()
	})

	b.Publish(nil)
	b.Publish(nil)

	assert.Equal(t, 1, calls)
}
