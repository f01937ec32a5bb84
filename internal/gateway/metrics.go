package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealercrm",
		Subsystem: "backup",
		Name:      "saves_total",
		Help:      "Total number of remote backup save requests broken down by result.",
	}, []string{"result"})

	backupPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dealercrm",
		Subsystem: "backup",
		Name:      "pruned_total",
		Help:      "Total number of backup records removed by retention pruning.",
	})
)

func recordSave(result string) {
	backupSaves.WithLabelValues(result).Inc()
}

func recordPrune(n int64) {
	if n > 0 {
		backupPruned.Add(float64(n))
	}
}
