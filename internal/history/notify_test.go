package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_CallsInSubscriptionOrder(t *testing.T) {
	n := NewNotifier(discardLogger())

	var calls []string
	a := n.Subscribe(func() { calls = append(calls, "a") })
	b := n.Subscribe(func() { calls = append(calls, "b") })
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, n.Len())

	n.Notify()
	assert.Equal(t, []string{"a", "b"}, calls)

	a.Close()
	a.Close()
	n.Notify()
	assert.Equal(t, []string{"a", "b", "b"}, calls)
	assert.Equal(t, 1, n.Len())
}

func TestNotifier_RecoversListenerPanic(t *testing.T) {
	n := NewNotifier(discardLogger())

	called := false
	n.Subscribe(func() { panic("listener bug") })
	n.Subscribe(func() { called = true })

	require.NotPanics(t, n.Notify)
	assert.True(t, called)
}

func TestNotifier_ListenerMayUnsubscribeDuringNotify(t *testing.T) {
	n := NewNotifier(discardLogger())

	var sub *Subscription
	count := 0
	sub = n.Subscribe(func() {
		count++
		sub.Close()
	})

	n.Notify()
	n.Notify()
	assert.Equal(t, 1, count)
}

func TestNotifier_WatchCoalescesAndStops(t *testing.T) {
	n := NewNotifier(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	ch := n.Watch(ctx)
	n.Notify()
	n.Notify()

	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}

	cancel()
	assert.Eventually(t, func() bool { return n.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubscription_NilClose(t *testing.T) {
	var s *Subscription
	assert.NotPanics(t, s.Close)
}
