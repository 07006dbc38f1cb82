// Package datastore integrates with the observability metrics package.
package datastore

import (
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// Metrics is a type alias for metrics.DatastoreMetrics so store methods can
// record operations without importing the metrics package everywhere.
type Metrics = metrics.DatastoreMetrics
