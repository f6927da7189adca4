package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests by operation and response status code
	settingsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_requests_total",
			Help: "Total number of settings requests",
		},
		[]string{"operation", "code"},
	)

	settingsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settings_request_duration_seconds",
			Help:    "Time spent processing settings requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	preferenceChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_preference_changes_total",
			Help: "Total number of single preference changes",
		},
		[]string{"key", "action"}, // action: set/unset/toggle
	)
)

func instrument(operation string) fiber.Handler {
	return func(c fiber.Ctx) error {
		timer := prometheus.NewTimer(settingsRequestDuration.WithLabelValues(operation))
		err := c.Next()
		timer.ObserveDuration()
		settingsRequests.WithLabelValues(operation, strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	}
}
