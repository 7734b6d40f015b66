package transport

import (
	"context"
	"sync"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// notificationQueue hands notifications from the reader to a single
// delivery goroutine. It never blocks the reader, so subscribers may send
// requests of their own and still see the responses.
type notificationQueue struct {
	mu    sync.Mutex
	items []*protocol.Notification
	ready chan struct{}
}

func newNotificationQueue() *notificationQueue {
	return &notificationQueue{ready: make(chan struct{}, 1)}
}

func (q *notificationQueue) push(n *protocol.Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *notificationQueue) take() []*protocol.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// run delivers queued notifications in arrival order until ctx is done
func (q *notificationQueue) run(ctx context.Context, deliver func(context.Context, *protocol.Notification)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.ready:
		}
		for _, n := range q.take() {
			if ctx.Err() != nil {
				return
			}
			deliver(ctx, n)
		}
	}
}
