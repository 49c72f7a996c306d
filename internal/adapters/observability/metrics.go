package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotel_backoffice/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotel", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hotel", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotel", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	BookingOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotel", Name: "booking_operations_total", Help: "Booking create/update/delete outcomes."},
		[]string{"op", "outcome"},
	)
	OutboxDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotel", Name: "outbox_dispatch_total", Help: "Outbox intents handled by the relay."},
		[]string{"result"}, // dispatched|retry|failed
	)
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotel", Name: "notifications_created_total", Help: "Notifications recorded."},
		[]string{"type"},
	)
)

// Serve starts a standalone metrics listener on addr; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, CacheEvents, BookingOperations, OutboxDispatch, NotificationsCreated)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveBooking counts a booking operation; outcome is "ok" or the error kind.
func ObserveBooking(op string, err error) {
	BookingOperations.WithLabelValues(op, Outcome(err)).Inc()
}

func ObserveOutbox(result string) { OutboxDispatch.WithLabelValues(result).Inc() }

func ObserveNotification(t domain.NotificationType) {
	NotificationsCreated.WithLabelValues(string(t)).Inc()
}

func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
