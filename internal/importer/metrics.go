package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cennik_runs_staged_total",
			Help: "Number of price-list runs staged, by detected format",
		},
		[]string{"format"},
	)

	rowsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cennik_rows_matched_total",
			Help: "Rows classified by the matcher, by resulting status",
		},
		[]string{"status"},
	)

	runsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cennik_runs_applied_total",
		Help: "Number of runs committed by apply",
	})

	historyWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cennik_cost_history_entries_total",
		Help: "Cost history entries written by apply",
	})

	applyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cennik_apply_failures_total",
		Help: "Apply attempts rolled back",
	})
)

func observeMatch(st matchStats) {
	rowsMatched.WithLabelValues("MATCHED").Add(float64(st.Matched))
	rowsMatched.WithLabelValues("UNMATCHED").Add(float64(st.Unmatched))
}
