package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"image-service/internal/events"
)

type fakeStats struct {
	mu     sync.Mutex
	fields map[string]map[string]int64
}

func newFakeStats() *fakeStats {
	return &fakeStats{fields: make(map[string]map[string]int64)}
}

func (f *fakeStats) HIncrBy(_ context.Context, key, field string, incr int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields[key] == nil {
		f.fields[key] = make(map[string]int64)
	}
	f.fields[key][field] += incr
	return nil
}

func TestAccountantTracksUploadsAndDeletes(t *testing.T) {
	stats := newFakeStats()
	acc := NewAccountant(stats, zap.NewNop())
	ctx := context.Background()
	owner := uuid.New()

	upload := events.Event{
		Type:       events.TypeUploaded,
		ImageID:    uuid.New(),
		OwnerID:    owner,
		SizeBytes:  1024,
		OccurredAt: time.Now(),
	}
	require.NoError(t, acc.Apply(ctx, upload))
	require.NoError(t, acc.Apply(ctx, upload))

	key := "usage:" + owner.String()
	require.Equal(t, int64(2), stats.fields[key]["images"])
	require.Equal(t, int64(2048), stats.fields[key]["bytes"])

	deleted := upload
	deleted.Type = events.TypeDeleted
	require.NoError(t, acc.Apply(ctx, deleted))

	require.Equal(t, int64(1), stats.fields[key]["images"])
	require.Equal(t, int64(1024), stats.fields[key]["bytes"])
}

func TestAccountantIgnoresUnknownEventTypes(t *testing.T) {
	stats := newFakeStats()
	acc := NewAccountant(stats, zap.NewNop())

	ev := events.Event{Type: "image.renamed", OwnerID: uuid.New(), SizeBytes: 10}
	require.NoError(t, acc.Apply(context.Background(), ev))
	require.Empty(t, stats.fields)
}
