package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "scim_bridge_events_total",
		Help: "Provisioning events handled, by operation and outcome.",
	}, []string{"operation", "outcome"})

	groupFilesModified = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "scim_bridge_group_files_modified_total",
		Help: "Group documents written by the membership reconciler.",
	})
)
