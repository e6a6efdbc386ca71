package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/voxlane/internal/types"
)

func event(id uuid.UUID, stage types.Stage, percent int) types.ProgressEvent {
	return types.ProgressEvent{
		WorkflowID: id,
		Stage:      stage,
		Percent:    percent,
		Timestamp:  time.Now().UTC(),
	}
}

func TestPublish_WithoutTopicIsDropped(t *testing.T) {
	b := NewBroker()
	// Must not panic or block.
	b.Publish(uuid.New(), event(uuid.New(), types.StageClassifying, 10))
}

func TestSubscribe_UnknownWorkflow(t *testing.T) {
	b := NewBroker()
	_, _, err := b.Subscribe(uuid.New())
	assert.ErrorIs(t, err, ErrNoTopic)
}

func TestPublishSubscribe_FIFOPerWorkflow(t *testing.T) {
	b := NewBroker()
	id := uuid.New()
	b.OpenTopic(id)

	ch, cancel, err := b.Subscribe(id)
	require.NoError(t, err)
	defer cancel()

	stages := []types.Stage{
		types.StageCreated,
		types.StageClassifying,
		types.StageExtracting,
		types.StageAwaitingValidation,
		types.StageDeploying,
	}
	for i, s := range stages {
		b.Publish(id, event(id, s, i*20))
	}

	for i, want := range stages {
		got := <-ch
		assert.Equal(t, want, got.Stage, "event %d out of order", i)
	}
}

func TestPublish_SlowSubscriberLosesEventsNotOrder(t *testing.T) {
	b := NewBroker()
	id := uuid.New()
	b.OpenTopic(id)

	ch, cancel, err := b.Subscribe(id)
	require.NoError(t, err)
	defer cancel()

	// Overflow the buffer without draining.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(id, event(id, types.StageExtracting, i))
	}

	// Everything delivered must still be in publish order.
	prev := -1
	for i := 0; i < subscriberBuffer; i++ {
		got := <-ch
		assert.Greater(t, got.Percent, prev)
		prev = got.Percent
	}
}

func TestPublish_IndependentWorkflows(t *testing.T) {
	b := NewBroker()
	idA, idB := uuid.New(), uuid.New()
	b.OpenTopic(idA)
	b.OpenTopic(idB)

	chA, cancelA, err := b.Subscribe(idA)
	require.NoError(t, err)
	defer cancelA()
	chB, cancelB, err := b.Subscribe(idB)
	require.NoError(t, err)
	defer cancelB()

	b.Publish(idA, event(idA, types.StageClassifying, 10))
	b.Publish(idB, event(idB, types.StageDeploying, 90))

	gotA := <-chA
	assert.Equal(t, idA, gotA.WorkflowID)
	gotB := <-chB
	assert.Equal(t, idB, gotB.WorkflowID)

	select {
	case _, ok := <-chA:
		assert.False(t, ok, "unexpected extra event on A")
	default:
	}
}

func TestCloseTopic_ClosesSubscribers(t *testing.T) {
	b := NewBroker()
	id := uuid.New()
	b.OpenTopic(id)

	ch, _, err := b.Subscribe(id)
	require.NoError(t, err)

	b.CloseTopic(id)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// Topic is gone; late subscribers get ErrNoTopic.
	_, _, err = b.Subscribe(id)
	assert.ErrorIs(t, err, ErrNoTopic)
}

func TestCancel_Idempotent(t *testing.T) {
	b := NewBroker()
	id := uuid.New()
	b.OpenTopic(id)

	_, cancel, err := b.Subscribe(id)
	require.NoError(t, err)

	cancel()
	cancel() // second cancel must not panic
	b.CloseTopic(id)
}
