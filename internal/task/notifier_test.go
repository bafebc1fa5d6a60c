package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversInOrder(t *testing.T) {
	recorder := &eventRecorder{}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(recorder)

	n := newNotifier(domain.ToolGloves, emitter, testLogger())
	go n.run(context.Background())

	job := newJobFor(t, domain.ToolGloves, domain.JobStatusPending)
	for i := 0; i < 100; i++ {
		n.changed(job.Snapshot())
	}
	n.removed(job.ID)
	n.close()

	got := recorder.all()
	require.Len(t, got, 101)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, domain.ToolGloves, e.Tool)
	}
	assert.Equal(t, events.EventJobRemoved, got[100].Type)

	n.changed(job.Snapshot())
	assert.Len(t, recorder.all(), 101, "closed notifier drops events")
}

func TestNotifier_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	emitter := events.NewInMemoryEventEmitter(testLogger())
	count := 0
	emitter.RegisterHandler(events.HandlerFunc(func(context.Context, *events.JobEvent) error {
		count++
		return errors.New("handler failed")
	}))

	n := newNotifier(domain.ToolScene, emitter, testLogger())
	go n.run(context.Background())

	n.removed(uuid.New())
	n.removed(uuid.New())
	n.close()

	assert.Equal(t, 2, count)
}
