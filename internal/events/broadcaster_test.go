package events

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster() *Broadcaster {
	return NewBroadcaster(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBroadcaster_FiltersByTool(t *testing.T) {
	b := newTestBroadcaster()

	gloves, unsubGloves := b.Subscribe(domain.ToolGloves)
	defer unsubGloves()
	all, unsubAll := b.Subscribe("")
	defer unsubAll()

	job := testJob(t)
	require.NoError(t, b.HandleEvent(context.Background(), NewJobChangedEvent(domain.ToolGloves, 1, job)))
	require.NoError(t, b.HandleEvent(context.Background(), NewJobChangedEvent(domain.ToolScene, 2, job)))

	got := <-gloves
	assert.Equal(t, uint64(1), got.Seq)
	assert.Len(t, gloves, 0)

	assert.Equal(t, uint64(1), (<-all).Seq)
	assert.Equal(t, uint64(2), (<-all).Seq)
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := newTestBroadcaster()

	ch, unsub := b.Subscribe("")
	assert.Equal(t, 1, b.Subscribers())

	unsub()
	unsub()
	assert.Equal(t, 0, b.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe is harmless.
	assert.NoError(t, b.HandleEvent(context.Background(), NewJobChangedEvent(domain.ToolGloves, 1, testJob(t))))
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := newTestBroadcaster()

	ch, unsub := b.Subscribe("")
	defer unsub()

	job := testJob(t)
	for i := 0; i < SubscriberBuffer+10; i++ {
		require.NoError(t, b.HandleEvent(context.Background(), NewJobChangedEvent(domain.ToolGloves, uint64(i), job)))
	}
	assert.Len(t, ch, SubscriberBuffer)
}
