package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasic(t *testing.T) {
	var b Basic
	var c Collector = &b

	c.RecordAdd(10, time.Millisecond, nil)
	c.RecordAdd(5, time.Millisecond, errors.New("boom"))
	c.RecordMergeInsert(2, 3, 1, time.Millisecond, nil)
	c.RecordSearch("vector", 4, 2*time.Millisecond, nil)
	c.RecordSearch("fts", 0, 4*time.Millisecond, nil)
	c.RecordCleanup(128, time.Millisecond, nil)

	s := b.Stats()
	assert.Equal(t, int64(2), s.AddCount)
	assert.Equal(t, int64(10), s.AddRows)
	assert.Equal(t, int64(1), s.AddErrors)
	assert.Equal(t, int64(2), s.MergeInserted)
	assert.Equal(t, int64(3), s.MergeUpdated)
	assert.Equal(t, int64(1), s.MergeDeleted)
	assert.Equal(t, int64(2), s.SearchCount)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), s.SearchAvgNanos)
	assert.Equal(t, int64(128), s.CleanupBytes)
	assert.Equal(t, int64(0), s.RequestAvgNanos)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, Noop{}, OrNoop(nil))

	b := &Basic{}
	assert.Same(t, b, OrNoop(b))
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.RecordMergeInsert(2, 3, 1, time.Millisecond, nil)
	p.RecordAdd(4, time.Millisecond, nil)
	p.RecordCreateIndex("BTree", time.Millisecond, nil)
	p.RecordRequest("POST", 200, time.Millisecond, nil)

	assert.Equal(t, 6.0, testutil.ToFloat64(p.rows.WithLabelValues("insert")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.rows.WithLabelValues("update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.indexes.WithLabelValues("BTree", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("POST", "200")))

	_, err = NewPrometheus(reg)
	assert.Error(t, err, "registering twice must fail")
}
