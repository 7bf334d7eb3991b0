// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the donation platform.
var (
	// Counters.
	DonationsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_submitted_total",
			Help: "Total donation submissions by outcome",
		},
		[]string{"outcome"}, // accepted, ineligible, invalid
	)

	DonationsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_completed_total",
			Help: "Total completed donations",
		},
		[]string{"blood_type"},
	)

	RewardPointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reward_points_awarded_total",
			Help: "Total reward points granted to donors",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_key"},
	)

	BloodRequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blood_requests_created_total",
			Help: "Total blood requests created",
		},
		[]string{"urgency", "blood_type"},
	)

	DonorResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_responses_total",
			Help: "Total donor responses to blood requests by outcome",
		},
		[]string{"outcome"}, // joined, duplicate
	)

	ProgressionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_conflicts_total",
			Help: "Progression updates that exhausted optimistic-concurrency retries",
		},
	)

	// Gauges.
	InventoryUnits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blood_inventory_units",
			Help: "Current blood bank inventory units",
		},
		[]string{"blood_bank", "blood_type"},
	)

	OpenRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "open_blood_requests",
			Help: "Current number of open blood requests",
		},
		[]string{"urgency"},
	)

	// Histograms.
	MatchCandidatesFound = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_candidates_found",
			Help:    "Number of donor candidates found per matching query",
			Buckets: prometheus.LinearBuckets(0, 5, 10), // 0 to 45 candidates
		},
		[]string{"urgency"},
	)

	MatchNearestDistanceMeters = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_nearest_distance_meters",
			Help:    "Distance to the nearest matched donor in meters",
			Buckets: prometheus.ExponentialBuckets(500, 2, 9), // 500m to ~128km
		},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the daily aggregation job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~128s
		},
	)
)

// RecordDonationSubmitted records a donation submission outcome.
func RecordDonationSubmitted(outcome string) {
	DonationsSubmittedTotal.WithLabelValues(outcome).Inc()
}

// RecordDonationCompleted records a completed donation.
func RecordDonationCompleted(bloodType string) {
	DonationsCompletedTotal.WithLabelValues(bloodType).Inc()
}

// RecordRewardPoints records reward points granted to a donor.
func RecordRewardPoints(points int) {
	RewardPointsAwardedTotal.Add(float64(points))
}

// RecordBadgeAwarded records a badge award.
func RecordBadgeAwarded(badgeKey string) {
	BadgesAwardedTotal.WithLabelValues(badgeKey).Inc()
}

// RecordRequestCreated records a new blood request.
func RecordRequestCreated(urgency, bloodType string) {
	BloodRequestsCreatedTotal.WithLabelValues(urgency, bloodType).Inc()
}

// RecordDonorResponse records a donor response outcome.
func RecordDonorResponse(outcome string) {
	DonorResponsesTotal.WithLabelValues(outcome).Inc()
}

// RecordProgressionConflict records an exhausted progression retry.
func RecordProgressionConflict() {
	ProgressionConflictsTotal.Inc()
}

// SetInventoryUnits sets the current inventory gauge for a bank and type.
func SetInventoryUnits(bank, bloodType string, units int) {
	InventoryUnits.WithLabelValues(bank, bloodType).Set(float64(units))
}

// SetOpenRequests sets the current open-request gauge for an urgency level.
func SetOpenRequests(urgency string, count int) {
	OpenRequests.WithLabelValues(urgency).Set(float64(count))
}

// RecordMatchResult records the candidate count and nearest distance of a
// matching query.
func RecordMatchResult(urgency string, candidates int, nearestMeters float64) {
	MatchCandidatesFound.WithLabelValues(urgency).Observe(float64(candidates))
	if candidates > 0 {
		MatchNearestDistanceMeters.Observe(nearestMeters)
	}
}

// RecordSchedulerRun records a scheduler job execution.
func RecordSchedulerRun(status string) {
	SchedulerJobsRunTotal.WithLabelValues(status).Inc()
}
