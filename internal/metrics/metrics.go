// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "review_relay"

// Review outcomes recorded by ObserveReview.
const (
	OutcomeEmitted   = "emitted"
	OutcomeDuplicate = "duplicate"
)

// Metrics holds the collectors of a single run.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	pages          prometheus.Counter
	reviews        *prometheus.CounterVec
	seeded         prometheus.Gauge
}

// New creates a Metrics value with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "requests_total", Help: "Upstream requests."},
			[]string{"operation", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Name: "request_duration_seconds",
				Help:    "Upstream request duration seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		pages: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "pages_total", Help: "Review pages fetched."},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "reviews_total", Help: "Reviews processed."},
			[]string{"outcome"}, // emitted|duplicate
		),
		seeded: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "ledger_seeded_ids", Help: "Review IDs loaded from prior runs."},
		),
	}
	m.registry.MustRegister(m.requests, m.requestLatency, m.pages, m.reviews, m.seeded)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one completed upstream request. A status code of
// zero means the request failed before a response arrived.
func (m *Metrics) ObserveRequest(operation string, statusCode int, elapsed time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.requestLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObservePage records a fetched page.
func (m *Metrics) ObservePage() { m.pages.Inc() }

// ObserveReview records the outcome of one review.
func (m *Metrics) ObserveReview(outcome string) {
	m.reviews.WithLabelValues(outcome).Inc()
}

// SetSeeded records the number of IDs loaded into the ledger.
func (m *Metrics) SetSeeded(n int) { m.seeded.Set(float64(n)) }

// WriteTextfile writes the current values in the node_exporter textfile
// format. The file is written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
