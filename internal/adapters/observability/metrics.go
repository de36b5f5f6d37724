package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hostiq", Name: "http_requests_total", Help: "HTTP requests served by the dev backend."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hostiq", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hostiq", Name: "external_requests_total", Help: "Outbound API requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hostiq", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service", "endpoint"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hostiq", Name: "token_refresh_total", Help: "Access token refresh attempts."},
		[]string{"result"}, // success|failure|no_refresh_token
	)
	TokenStoreEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hostiq", Name: "token_store_events_total", Help: "Token store reads/writes/deletes."},
		[]string{"store", "event"}, // event: hit|miss|set|del
	)
	InspectionPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hostiq", Name: "inspection_polls_total", Help: "Inspection status polls."},
		[]string{"status"},
	)
)

// Serve exposes /metrics on addr in the background. Empty addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		TokenRefreshes, TokenStoreEvents, InspectionPolls)
}

// InitRegistry returns a private registry carrying every hostiq collector.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		TokenRefreshes, TokenStoreEvents, InspectionPolls)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call. status 0 means no response.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveRefresh(result string) { TokenRefreshes.WithLabelValues(result).Inc() }

func ObserveTokenStore(store, event string) { // event: hit|miss|set|del
	TokenStoreEvents.WithLabelValues(store, event).Inc()
}

func ObservePoll(status string) { InspectionPolls.WithLabelValues(status).Inc() }
