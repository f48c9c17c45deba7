package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := New(reg)
	require.NoError(t, err)

	rec.ObserveCycle(batch.ModePersist, 3, nil, 10*time.Millisecond)
	rec.ObserveCycle(batch.ModePersist, 5, errors.New("boom"), time.Millisecond)
	rec.ObserveShelved("Account")
	rec.ObserveShelved("Account")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.cycles.WithLabelValues("persist", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.cycles.WithLabelValues("persist", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.records.WithLabelValues("persist")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.shelved.WithLabelValues("Account")))
}

func TestRecorder_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestRecorder_WiredIntoSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := New(reg)
	require.NoError(t, err)

	s := batch.NewSession(batch.WithRecorder(rec))
	s.NewBuilder("Account").AssignRestrictedFieldValue("FullName", "x")
	s.NewBuilder("Account")
	_, err = s.MockAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.records.WithLabelValues("mock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.shelved.WithLabelValues("Account")))

	path := filepath.Join(t.TempDir(), "seedgraph.prom")
	require.NoError(t, WriteFile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "seedgraph_cycles_total")
}
