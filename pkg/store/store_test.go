package store_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/result"
	"github.com/tracebench/tracebench/pkg/store"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.HistoryConfig{
		Enabled: true,
		Path:    ":memory:",
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func sampleAggregate(scenario string, method result.Method, avgNS float64) result.Aggregate {
	return result.Aggregate{
		Scenario:         scenario,
		Method:           method,
		Iterations:       1000,
		SimulatedWorkUS:  50,
		AvgTimePerCallNS: avgNS,
		NumRuns:          10,
	}
}

func TestStore_AppendAndListRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	size := 2.5
	agg := sampleAggregate("Medium Work", result.MethodSession, 51000)
	agg.TraceSizeMB = &size

	records := []result.Aggregate{
		sampleAggregate("Medium Work", result.MethodBaseline, 50000),
		agg,
	}

	require.NoError(t, s.AppendRun(ctx, "run-1", records))

	rows, err := s.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Insertion order is preserved.
	assert.Equal(t, "baseline", rows[0].Method)
	assert.Equal(t, "session", rows[1].Method)
	assert.Equal(t, 50000.0, rows[0].AvgTimePerCallNS)

	require.NotNil(t, rows[1].TraceSizeMB)
	assert.Equal(t, 2.5, *rows[1].TraceSizeMB)

	// Unmeasured optionals stay null.
	assert.Nil(t, rows[0].TraceSizeMB)
	assert.Nil(t, rows[0].TracerCPUPercent)
}

func TestStore_AppendRunEmpty(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.AppendRun(context.Background(), "run-1", nil))

	ids, err := s.ListRunIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_ListRunIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendRun(ctx, "20260825-100000", []result.Aggregate{
		sampleAggregate("Empty Function", result.MethodBaseline, 10),
	}))
	require.NoError(t, s.AppendRun(ctx, "20260825-110000", []result.Aggregate{
		sampleAggregate("Empty Function", result.MethodBaseline, 11),
	}))

	ids, err := s.ListRunIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "20260825-110000", ids[0])
}

func TestStore_ListByScenario(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendRun(ctx, "run-1", []result.Aggregate{
		sampleAggregate("Empty Function", result.MethodBaseline, 10),
		sampleAggregate("Heavy Work", result.MethodBaseline, 500000),
	}))
	require.NoError(t, s.AppendRun(ctx, "run-2", []result.Aggregate{
		sampleAggregate("Empty Function", result.MethodBaseline, 12),
	}))

	rows, err := s.ListByScenario(ctx, "Empty Function")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, r := range rows {
		assert.Equal(t, "Empty Function", r.Scenario)
	}
}
