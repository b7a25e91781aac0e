package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rotations counts code rotations performed.
	Rotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_rotations_total",
		Help: "Number of attendance code rotations performed.",
	})

	// CodeFetches counts get-current-code requests served.
	CodeFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_code_fetches_total",
		Help: "Number of current-code fetches served.",
	})

	// Submissions counts verify-attendance requests by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_submissions_total",
		Help: "Number of attendance submissions by outcome.",
	}, []string{"outcome"})
)
