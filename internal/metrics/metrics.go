// Package metrics registers the service's prometheus collectors.  They
// are exposed on GET /metrics through promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts logins by outcome: ok, invalid_credentials,
	// not_approved.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daycare",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// LinksCreated counts parent-child links by trigger: register,
	// profile, child_added, reconcile.
	LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daycare",
		Name:      "parent_child_links_total",
		Help:      "Parent-child links created, by trigger.",
	}, []string{"trigger"})

	// PersistenceFailures counts document writes that failed.
	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daycare",
		Name:      "persistence_failures_total",
		Help:      "Failed document saves, by document.",
	}, []string{"document"})

	// EventsPublished counts broker publishes by event type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daycare",
		Name:      "events_published_total",
		Help:      "Domain events handed to the broker.",
	}, []string{"event", "result"})
)
