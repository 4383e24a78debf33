package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_http_requests_total",
		Help: "HTTP requests by method, route template and status code.",
	}, []string{"method", "route", "status"})

	FeedAssemblyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chirp_feed_assembly_seconds",
		Help:    "Time spent selecting, scoring and paginating feed candidates.",
		Buckets: prometheus.DefBuckets,
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_realtime_events_published_total",
		Help: "Realtime events published to user channels.",
	}, []string{"event"})

	MailSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_mail_send_failures_total",
		Help: "Verification emails that could not be delivered.",
	})
)
