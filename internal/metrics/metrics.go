// metrics.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package metrics provides Prometheus metrics for the document store
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the store metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Store operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheRequestsTotal  *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	// Schema metrics
	MappingsInjectedTotal prometheus.Counter
	MappingsActive        prometheus.Gauge
	WikiSwitchesTotal     *prometheus.CounterVec

	// Recycle bin metrics
	RecycleBinEntriesTotal *prometheus.CounterVec
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.OperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.CacheRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_cache_requests_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	m.CacheEvictionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_cache_evictions_total",
			Help: "Cache entries removed by invalidation, by reason",
		},
		[]string{"reason"},
	)

	m.MappingsInjectedTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "docstore_mappings_injected_total",
			Help: "Total number of custom mappings injected",
		},
	)

	m.MappingsActive = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "docstore_mappings_active",
			Help: "Number of custom mappings in the current snapshot",
		},
	)

	m.WikiSwitchesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_wiki_switches_total",
			Help: "Connection switches to a wiki schema",
		},
		[]string{"status"},
	)

	m.RecycleBinEntriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_recyclebin_entries_total",
			Help: "Recycle bin operations by kind",
		},
		[]string{"operation"},
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOperation records one store operation started at start
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, status(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CacheHit records a hit in the named cache
func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(cache, "hit").Inc()
}

// CacheMiss records a miss in the named cache
func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(cache, "miss").Inc()
}

// CacheEviction records an invalidation
func (m *Metrics) CacheEviction(reason string) {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.WithLabelValues(reason).Inc()
}

// MappingInjected records a new snapshot holding active mappings
func (m *Metrics) MappingInjected(active int) {
	if m == nil {
		return
	}
	m.MappingsInjectedTotal.Inc()
	m.MappingsActive.Set(float64(active))
}

// WikiSwitch records a schema switch
func (m *Metrics) WikiSwitch(err error) {
	if m == nil {
		return
	}
	m.WikiSwitchesTotal.WithLabelValues(status(err)).Inc()
}

// RecycleBin records a recycle bin operation
func (m *Metrics) RecycleBin(op string) {
	if m == nil {
		return
	}
	m.RecycleBinEntriesTotal.WithLabelValues(op).Inc()
}
