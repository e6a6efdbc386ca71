// Package progress fans workflow stage-transition events out to subscribers.
// Each workflow gets its own topic whose lifetime matches the workflow's; the
// broker holds no global event state and never replays missed events.
package progress

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/types"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses events rather than slowing the
// workflow down.
const subscriberBuffer = 16

// ErrNoTopic indicates the workflow has no open topic (unknown id or already
// terminal).
var ErrNoTopic = fmt.Errorf("no progress topic for workflow")

type topic struct {
	mu     sync.Mutex
	subs   map[int]chan types.ProgressEvent
	nextID int
	closed bool
}

// Broker routes progress events to per-workflow topics.
type Broker struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]*topic
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{topics: make(map[uuid.UUID]*topic)}
}

// OpenTopic creates the topic for a workflow. Opening an existing topic is a
// no-op.
func (b *Broker) OpenTopic(workflowID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[workflowID]; !ok {
		b.topics[workflowID] = &topic{subs: make(map[int]chan types.ProgressEvent)}
	}
}

// Publish delivers an event to every current subscriber of the workflow's
// topic. It never blocks: without subscribers the event is dropped, and a
// subscriber whose buffer is full misses the event.
func (b *Broker) Publish(workflowID uuid.UUID, event types.ProgressEvent) {
	b.mu.RLock()
	t, ok := b.topics[workflowID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe attaches to a workflow's topic and returns a live event channel
// plus a cancel function. The channel closes when the subscriber cancels or
// the workflow reaches a terminal state.
func (b *Broker) Subscribe(workflowID uuid.UUID) (<-chan types.ProgressEvent, func(), error) {
	b.mu.RLock()
	t, ok := b.topics[workflowID]
	b.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNoTopic
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, ErrNoTopic
	}

	ch := make(chan types.ProgressEvent, subscriberBuffer)
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
	}

	return ch, cancel, nil
}

// CloseTopic tears down a workflow's topic, closing all subscriber channels.
// Called once when the workflow reaches a terminal state.
func (b *Broker) CloseTopic(workflowID uuid.UUID) {
	b.mu.Lock()
	t, ok := b.topics[workflowID]
	delete(b.topics, workflowID)
	b.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}
