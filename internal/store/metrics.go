package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvstore_store_size_bytes",
		Help: "Approximate live size of the key-value store in bytes (sum of key+value lengths).",
	})

	entryCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvstore_store_entries",
		Help: "Number of live entries in the key-value store.",
	})

	admissionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvstore_store_admission_rejections_total",
		Help: "Total number of Put calls rejected by admission control, by reason.",
	}, []string{"reason"})
)
