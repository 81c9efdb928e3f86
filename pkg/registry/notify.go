package registry

import (
	"context"
	"sync"
)

// notifier fans change signals out to watchers. Each watcher has a buffer
// of one, so a slow reader sees at most one pending signal and never blocks
// the writer.
type notifier struct {
	mu   *sync.Mutex
	subs map[chan struct{}]struct{}
}

func newNotifier() notifier {
	return notifier{
		mu:   &sync.Mutex{},
		subs: make(map[chan struct{}]struct{}),
	}
}

func (n notifier) watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		close(ch)
		n.mu.Unlock()
	}()

	return ch
}

func (n notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
