package orchestration

import (
	"context"
	"sync"

	"github.com/jonathan/exam-automation/internal/types"
)

// recordingNotifier captures events and can be told to fail.
type recordingNotifier struct {
	mu     sync.Mutex
	events []types.ApplicationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e types.ApplicationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) received() []types.ApplicationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.ApplicationEvent(nil), n.events...)
}
