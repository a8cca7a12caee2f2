/*

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics holds the prometheus collectors for the matchmaking core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Outcome label values for schedule generation.
	OutcomeSuccess         = "success"
	OutcomeRatingBound     = "rating_infeasible"
	OutcomeConstraintBound = "constraints_infeasible"
)

var (
	generationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rallyrank_generation_runs_total",
		Help: "Schedule generation runs by outcome.",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rallyrank_generation_duration_seconds",
		Help:    "Wall time of schedule generation runs.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	generationRelaxIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rallyrank_generation_relax_iterations",
		Help:    "Rating-tolerance relaxation iterations per generation run.",
		Buckets: prometheus.LinearBuckets(0, 5, 11),
	})

	replayEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rallyrank_replay_events_total",
		Help: "Events processed by full-group rating recalculations.",
	})

	replayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rallyrank_replay_duration_seconds",
		Help:    "Wall time of full-group rating recalculations.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)

// ReportGeneration records one schedule generation run.
func ReportGeneration(outcome string, duration time.Duration, relaxIterations int) {
	generationRuns.WithLabelValues(outcome).Inc()
	generationDuration.Observe(duration.Seconds())
	generationRelaxIterations.Observe(float64(relaxIterations))
}

// ReportReplay records one full-group recalculation.
func ReportReplay(eventsProcessed int, duration time.Duration) {
	replayEvents.Add(float64(eventsProcessed))
	replayDuration.Observe(duration.Seconds())
}
