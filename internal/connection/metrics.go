// Copyright 2025 Tom Barlow
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

package connection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appconn_validations_total",
			Help: "Total credential validations by app and outcome",
		},
		[]string{"app", "outcome"},
	)

	validationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appconn_validation_duration_seconds",
			Help:    "Duration of credential validations, including address checks and probes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"app"},
	)
)

// recordValidation records metrics for one validation.
func recordValidation(app App, outcome Outcome, seconds float64) {
	validationsTotal.WithLabelValues(string(app), string(outcome)).Inc()
	validationDuration.WithLabelValues(string(app)).Observe(seconds)
}

// WriteMetrics writes all registered metrics to path in the Prometheus
// text format, for collection by a node_exporter textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
