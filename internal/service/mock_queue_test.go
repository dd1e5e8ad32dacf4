package service

import (
	"context"
	"strings"
	"sync"

	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
)

var _ messagequeue.Queue = (*mockQueue)(nil)

type publishedMsg struct {
	subject string
	data    []byte
}

// mockQueue records publishes and delivers them synchronously to subscribers.
type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	handlers   map[string][]messagequeue.Handler
	publishErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{handlers: make(map[string][]messagequeue.Handler)}
}

func (q *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	if q.publishErr != nil {
		q.mu.Unlock()
		return q.publishErr
	}
	q.published = append(q.published, publishedMsg{subject: subject, data: data})
	handlers := append([]messagequeue.Handler(nil), q.handlers[subject]...)
	q.mu.Unlock()

	for _, h := range handlers {
		_ = h(ctx, subject, data)
	}
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = append(q.handlers[subject], h)
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) messages(prefix string) []publishedMsg {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []publishedMsg
	for _, m := range q.published {
		if strings.HasPrefix(m.subject, prefix) {
			out = append(out, m)
		}
	}
	return out
}
