package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("save", time.Now(), nil)
	m.ObserveOperation("save", time.Now(), errors.New("fail"))
	m.ObserveOperation("load", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("load", "ok")))
}

func TestCacheAndMappings(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheHit("document")
	m.CacheHit("document")
	m.CacheMiss("exists")
	m.CacheEviction("remote")
	m.MappingInjected(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("document", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("exists", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEvictionsTotal.WithLabelValues("remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MappingsInjectedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MappingsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("save", time.Now(), nil)
		m.CacheHit("document")
		m.CacheMiss("document")
		m.CacheEviction("flush")
		m.MappingInjected(1)
		m.WikiSwitch(nil)
		m.RecycleBin("move")
	})
}
