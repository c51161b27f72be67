package kvserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvstore_requests_total",
		Help: "Total number of requests dispatched, by command.",
	}, []string{"command"})

	responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvstore_responses_total",
		Help: "Total number of responses sent, by error code.",
	}, []string{"err_code"})

	droppedDatagramsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvstore_dropped_datagrams_total",
		Help: "Total number of inbound datagrams dropped, by reason.",
	}, []string{"reason"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvstore_dedup_cache_hits_total",
		Help: "Total number of requests served from the at-most-once cache.",
	})
)
