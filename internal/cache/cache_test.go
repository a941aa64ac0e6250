package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/storage/memory"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sampleMetrics() *domain.AggregatedMetrics {
	return &domain.AggregatedMetrics{
		TargetMonth:  202411,
		WindowMonths: 3,
		Months:       []int{202409, 202410, 202411},
		MetricNames:  []string{"A1_rev_wf", "B1_rev_wf"},
		Rows: []domain.AggregatedRow{
			{EntityID: "E1", Values: []float64{100.5, 0}},
			{EntityID: "E2", Values: []float64{0.1, 2e9}},
		},
	}
}

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		BaseMonth:    202406,
		CurrentMonth: 202411,
		WindowMonths: 12,
		MetricNames:  []string{"A1_rev_wf"},
		Rows: []domain.SnapshotRow{
			{EntityID: "E1", BaseSegment: "SEG01", CurrentSegment: "SEG01", Status: domain.StatusRetained, Base: []float64{10}, Current: []float64{12}},
			{EntityID: "E2", BaseSegment: "SEG02", Status: domain.StatusLostSystem, Base: []float64{5}, Current: []float64{0}},
			{EntityID: "E3", CurrentSegment: "SEG03", Status: domain.StatusNewSystem, Base: []float64{0}, Current: []float64{7.25}},
		},
	}
}

func newTestCache(t *testing.T) (*Cache, *memory.BlobStore) {
	t.Helper()
	store := memory.NewBlobStore()
	return New(Options{Store: store, Enabled: true, Logger: quietLogger()}), store
}

func TestCache_MetricsRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	want := sampleMetrics()
	c.SaveMetrics(ctx, want)

	got, ok := c.LoadMetrics(ctx, 202411, 3)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCache_SnapshotRoundTrip(t *testing.T) {
	c, store := newTestCache(t)
	ctx := context.Background()

	want := sampleSnapshot()
	c.SaveSnapshot(ctx, want)

	_, err := store.Get(ctx, CategorySnapshots, "snapshot_202406_202411")
	require.NoError(t, err)

	got, ok := c.LoadSnapshot(ctx, 202406, 202411, 12)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCache_WindowMismatchIsMiss(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SaveMetrics(ctx, sampleMetrics())
	_, ok := c.LoadMetrics(ctx, 202411, 12)
	assert.False(t, ok)

	c.SaveSnapshot(ctx, sampleSnapshot())
	_, ok = c.LoadSnapshot(ctx, 202406, 202411, 6)
	assert.False(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	store := memory.NewBlobStore()
	c := New(Options{Store: store, Enabled: false, Logger: quietLogger()})
	ctx := context.Background()

	c.SaveMetrics(ctx, sampleMetrics())
	assert.Equal(t, 0, store.Len(), "disabled cache must not write")

	_, ok := c.LoadMetrics(ctx, 202411, 3)
	assert.False(t, ok)

	assert.False(t, Disabled().Enabled())
}

func TestCache_CorruptBlobIsMiss(t *testing.T) {
	c, store := newTestCache(t)
	ctx := context.Background()

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"foreign", []byte("PK\x03\x04 definitely not ours")},
		{"truncated payload", append(header(SchemaVersion), 0x28, 0xb5)},
		{"stale version", append(header(SchemaVersion+1), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, CategoryMetrics, MetricsKey(202411), tt.blob))
			_, ok := c.LoadMetrics(ctx, 202411, 3)
			assert.False(t, ok)
		})
	}
}

func TestCache_BlobUnderWrongKeyIsMiss(t *testing.T) {
	c, store := newTestCache(t)
	ctx := context.Background()

	c.SaveMetrics(ctx, sampleMetrics())
	blob, err := store.Get(ctx, CategoryMetrics, MetricsKey(202411))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, CategoryMetrics, MetricsKey(202412), blob))
	_, ok := c.LoadMetrics(ctx, 202412, 3)
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Put(context.Context, string, string, []byte) error {
	return errors.New("disk on fire")
}

func (failingStore) Clear(context.Context, string) error {
	return errors.New("disk on fire")
}

func TestCache_StoreFailuresAreNotPropagated(t *testing.T) {
	var logs bytes.Buffer
	c := New(Options{Store: failingStore{}, Enabled: true, Logger: log.New(&logs, "", 0)})
	ctx := context.Background()

	c.SaveSnapshot(ctx, sampleSnapshot())
	_, ok := c.LoadSnapshot(ctx, 202406, 202411, 12)

	assert.False(t, ok)
	assert.Contains(t, logs.String(), "cache save snapshots/snapshot_202406_202411")
	assert.Contains(t, logs.String(), "cache load snapshots/snapshot_202406_202411")
}

func TestCache_Clear(t *testing.T) {
	c, store := newTestCache(t)
	ctx := context.Background()

	c.SaveMetrics(ctx, sampleMetrics())
	c.SaveSnapshot(ctx, sampleSnapshot())
	require.Equal(t, 2, store.Len())

	require.NoError(t, c.Clear(ctx, CategoryMetrics))
	assert.Equal(t, 1, store.Len())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "snapshot_202406_202411", SnapshotKey(202406, 202411))
	assert.Equal(t, "ttm_202411", MetricsKey(202411))
}

func TestDecode_Errors(t *testing.T) {
	blob, err := encode(CategoryMetrics, "ttm_202411", toMetricsRecord(sampleMetrics()))
	require.NoError(t, err)

	var rec metricsRecord
	require.NoError(t, decode(CategoryMetrics, "ttm_202411", blob, &rec))

	assert.ErrorIs(t, decode(CategoryMetrics, "ttm_202411", blob[:3], &rec), ErrTruncatedEntry)
	assert.ErrorIs(t, decode(CategoryMetrics, "ttm_202412", blob, &rec), ErrEntryMismatch)

	stale := append([]byte(nil), blob...)
	binary.BigEndian.PutUint16(stale[4:6], SchemaVersion+1)
	assert.ErrorIs(t, decode(CategoryMetrics, "ttm_202411", stale, &rec), ErrSchemaVersion)

	foreign := append([]byte(nil), blob...)
	foreign[0] = 'X'
	assert.ErrorIs(t, decode(CategoryMetrics, "ttm_202411", foreign, &rec), ErrBadMagic)
}

func header(version uint16) []byte {
	h := make([]byte, headerLen)
	copy(h, magic[:])
	binary.BigEndian.PutUint16(h[len(magic):], version)
	return h
}
