package engine

import (
	"clustercore/pkg/stats/histogram"
	"clustercore/pkg/storage"
	"clustercore/pkg/types"
	"clustercore/pkg/valuedomain"
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingBuilder struct {
	calls atomic.Int64
}

func (b *countingBuilder) Build(ctx context.Context, table *storage.Table, column string) (*histogram.Histogram, error) {
	b.calls.Add(1)
	dist := []histogram.ValueCount{
		{Value: types.NewInt64Value(1), Count: 1},
		{Value: types.NewInt64Value(2), Count: 1},
	}
	return histogram.NewEquiDistinctHistogram(dist, 2, valuedomain.NewNumericAdapter())
}

func newTestTable() *storage.Table {
	return storage.NewTable("t", []storage.ColumnDefinition{{Name: "a", Type: types.Int64Type}}, 100)
}

func TestEngine_HistogramCachesAcrossCalls(t *testing.T) {
	builder := &countingBuilder{}
	e := New(builder)
	e.RegisterTable("t", newTestTable())

	_, err := e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)
	_, err = e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, builder.calls.Load())
}

func TestEngine_ConcurrentMissesCoalesce(t *testing.T) {
	builder := &countingBuilder{}
	e := New(builder)
	e.RegisterTable("t", newTestTable())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Histogram(context.Background(), "t", "a")
			assertNoErrorAsync(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, builder.calls.Load())
}

func assertNoErrorAsync(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestEngine_InvalidateHistogramForcesRebuild(t *testing.T) {
	builder := &countingBuilder{}
	e := New(builder)
	e.RegisterTable("t", newTestTable())

	_, err := e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)
	e.InvalidateHistogram("t", "a")
	_, err = e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, builder.calls.Load())
}

func TestEngine_HistogramRejectsUnregisteredTable(t *testing.T) {
	e := New(&countingBuilder{})
	_, err := e.Histogram(context.Background(), "missing", "a")
	require.Error(t, err)
}

func TestEngine_RegisterTableInvalidatesStaleStats(t *testing.T) {
	builder := &countingBuilder{}
	e := New(builder)
	e.RegisterTable("t", newTestTable())

	_, err := e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)

	e.RegisterTable("t", newTestTable())
	_, err = e.Histogram(context.Background(), "t", "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, builder.calls.Load())
}
