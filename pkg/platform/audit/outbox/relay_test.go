package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"carreg/pkg/platform/audit/store/postgres"
)

type fakeSource struct {
	entries []postgres.OutboxEntry
	marked  []uuid.UUID
	err     error
}

func (f *fakeSource) FetchUnpublished(context.Context, int) ([]postgres.OutboxEntry, error) {
	return f.entries, f.err
}

func (f *fakeSource) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.marked = append(f.marked, ids...)
	return nil
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func entry(aggregate string) postgres.OutboxEntry {
	return postgres.OutboxEntry{
		ID:          uuid.New(),
		AggregateID: aggregate,
		EventType:   "registration_transaction_finished",
		Payload:     []byte(`{"subject":"` + aggregate + `"}`),
		CreatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRelayOncePublishesAndMarks(t *testing.T) {
	src := &fakeSource{entries: []postgres.OutboxEntry{entry("WVW1"), entry("WVW2")}}
	prod := &fakeProducer{}
	relay := NewRelay(src, prod, "carreg.audit")

	n, err := relay.RelayOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, prod.records, 2)
	assert.Equal(t, "carreg.audit", prod.records[0].Topic)
	assert.Equal(t, []byte("WVW1"), prod.records[0].Key)
	assert.Equal(t, "event_type", prod.records[0].Headers[0].Key)
	assert.ElementsMatch(t, []uuid.UUID{src.entries[0].ID, src.entries[1].ID}, src.marked)
}

func TestRelayOnceDoesNotMarkOnProduceError(t *testing.T) {
	src := &fakeSource{entries: []postgres.OutboxEntry{entry("WVW1")}}
	prod := &fakeProducer{err: errors.New("broker down")}
	relay := NewRelay(src, prod, "carreg.audit")

	n, err := relay.RelayOnce(context.Background())

	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, src.marked)
}

func TestRelayOnceEmpty(t *testing.T) {
	src := &fakeSource{}
	prod := &fakeProducer{}

	n, err := NewRelay(src, prod, "t").RelayOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, prod.records)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	relay := NewRelay(src, &fakeProducer{}, "t", WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
