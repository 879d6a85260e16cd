package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "carreg/pkg/platform/audit"
)

func TestListRecentOrdersNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{Subject: "A", Action: "one", Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "B", Action: "two", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "A", Action: "three", Timestamp: base.Add(2 * time.Minute)}))

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Action)
	assert.Equal(t, "two", recent[1].Action)

	bySubject, err := store.ListBySubject(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, bySubject, 2)

	store.Clear()
	bySubject, err = store.ListBySubject(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, bySubject)
}
