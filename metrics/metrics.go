// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics records ingestion and retrieval telemetry.
//
// Recorder is implemented by a Prometheus-backed collector set and by a
// no-op variant for callers that do not export metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsPrefix = "clausewise_"

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Failure stages reported by ingestion.
const (
	StageSegment = "segment"
	StageScan    = "scan"
	StageEmbed   = "embed"
)

// Recorder receives telemetry events. Implementations are safe for concurrent use.
type Recorder interface {
	// ClausesIngested counts clauses appended to a store, by risk category.
	ClausesIngested(category string, n int)

	// FragmentFailed counts one isolated per-item failure at stage.
	FragmentFailed(stage string)

	// IngestCompleted observes the wall time of one ingestion run.
	IngestCompleted(d time.Duration)

	// RetrievalCompleted observes one retrieval under policy.
	RetrievalCompleted(policy string, degraded bool, results int, d time.Duration)

	// SubIndexFailed counts a failing lexical or semantic sub-index.
	SubIndexFailed(index string)
}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	clausesIngested  *prometheus.CounterVec
	fragmentFailures *prometheus.CounterVec
	ingestDuration   prometheus.Histogram
	retrievals       *prometheus.CounterVec
	retrievalResults prometheus.Histogram
	retrievalLatency *prometheus.HistogramVec
	subIndexFailures *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// New creates the collectors and registers them with registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) (*Prometheus, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		clausesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "clauses_ingested_total",
			Help: "Total number of clauses ingested, by risk category.",
		}, []string{"category"}),
		fragmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "fragment_failures_total",
			Help: "Total number of per-fragment ingestion failures, by stage.",
		}, []string{"stage"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricsPrefix + "ingest_duration_milliseconds",
			Help:    "Histogram of document ingestion duration in milliseconds.",
			Buckets: defaultLatencyBuckets,
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "retrievals_total",
			Help: "Total number of retrievals, by policy and outcome.",
		}, []string{"policy", "outcome"}),
		retrievalResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricsPrefix + "retrieval_results",
			Help:    "Histogram of candidates returned per retrieval.",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		retrievalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "retrieval_duration_milliseconds",
			Help:    "Histogram of retrieval latency in milliseconds.",
			Buckets: defaultLatencyBuckets,
		}, []string{"policy"}),
		subIndexFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "subindex_failures_total",
			Help: "Total number of failed sub-index lookups, by index.",
		}, []string{"index"}),
	}

	collectors := []prometheus.Collector{
		m.clausesIngested,
		m.fragmentFailures,
		m.ingestDuration,
		m.retrievals,
		m.retrievalResults,
		m.retrievalLatency,
		m.subIndexFailures,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) ClausesIngested(category string, n int) {
	if n <= 0 {
		return
	}
	m.clausesIngested.WithLabelValues(category).Add(float64(n))
}

func (m *Prometheus) FragmentFailed(stage string) {
	m.fragmentFailures.WithLabelValues(stage).Inc()
}

func (m *Prometheus) IngestCompleted(d time.Duration) {
	m.ingestDuration.Observe(milliseconds(d))
}

func (m *Prometheus) RetrievalCompleted(policy string, degraded bool, results int, d time.Duration) {
	outcome := "ok"
	switch {
	case degraded:
		outcome = "degraded"
	case results == 0:
		outcome = "empty"
	}
	m.retrievals.WithLabelValues(policy, outcome).Inc()
	m.retrievalResults.Observe(float64(results))
	m.retrievalLatency.WithLabelValues(policy).Observe(milliseconds(d))
}

func (m *Prometheus) SubIndexFailed(index string) {
	m.subIndexFailures.WithLabelValues(index).Inc()
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type noop struct{}

// Noop returns a Recorder that discards every event.
func Noop() Recorder { return noop{} }

func (noop) ClausesIngested(string, int)                         {}
func (noop) FragmentFailed(string)                               {}
func (noop) IngestCompleted(time.Duration)                       {}
func (noop) RetrievalCompleted(string, bool, int, time.Duration) {}
func (noop) SubIndexFailed(string)                               {}
