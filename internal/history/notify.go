package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventHistoryUpdate names the change signal emitted after every mutation.
const EventHistoryUpdate = "historyUpdate"

// Notifier is a same-process observer registry. Listeners receive no
// payload, only a signal to reload.
type Notifier struct {
	mu        sync.Mutex
	listeners map[string]func()
	order     []string
	logger    *slog.Logger
}

// NewNotifier returns an empty registry. A nil logger uses slog.Default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{listeners: make(map[string]func()), logger: logger}
}

// Subscription is a registered listener. Close releases it.
type Subscription struct {
	ID string

	n    *Notifier
	once sync.Once
}

// Close unregisters the listener. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.n.remove(s.ID) })
}

// Subscribe registers fn to run after each change.
func (n *Notifier) Subscribe(fn func()) *Subscription {
	id := newListenerID()

	n.mu.Lock()
	n.listeners[id] = fn
	n.order = append(n.order, id)
	n.mu.Unlock()

	return &Subscription{ID: id, n: n}
}

// Watch delivers change signals on a channel until ctx is done. Signals
// coalesce: a listener that falls behind sees one pending signal.
func (n *Notifier) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	sub := n.Subscribe(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return ch
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// Notify runs every listener synchronously in subscription order.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.listeners[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		n.call(fn)
	}
}

func (n *Notifier) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("history listener panicked",
				"event", EventHistoryUpdate,
				"panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[id]; !ok {
		return
	}
	delete(n.listeners, id)
	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			break
		}
	}
}

func newListenerID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
