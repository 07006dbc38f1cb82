// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation type constants used in metric labels across collectors.
const (
	// OpOpen represents datastore open and migration operations.
	OpOpen = "open"
	// OpRunSave represents screening run persistence operations.
	OpRunSave = "run_save"
	// OpRunGet represents single run retrieval operations.
	OpRunGet = "run_get"
	// OpRunList represents run listing operations.
	OpRunList = "run_list"
	// OpRunDelete represents run deletion operations.
	OpRunDelete = "run_delete"
	// OpPointsQuery represents filtered connection point queries.
	OpPointsQuery = "points_query"
	// OpDatasetLoad represents full dataset load operations.
	OpDatasetLoad = "dataset_load"
	// OpDatasetFetch represents remote dataset fetch operations.
	OpDatasetFetch = "dataset_fetch"
)

// Label value constants used for metric labels.
const (
	// LabelSuccess marks an operation that completed.
	LabelSuccess = "success"
	// LabelError marks an operation that failed.
	LabelError = "error"

	// LabelSubstations identifies the substation dataset.
	LabelSubstations = "substations"
	// LabelLines identifies the transmission line dataset.
	LabelLines = "lines"

	// LabelFile marks a dataset served from a local file.
	LabelFile = "file"
	// LabelURL marks a dataset served from a remote URL.
	LabelURL = "url"

	// LabelFetched marks a remote fetch that returned a fresh payload.
	LabelFetched = "fetched"
	// LabelNotModified marks a remote fetch answered with 304.
	LabelNotModified = "not_modified"

	// LabelHit marks a cache lookup that was served from cache.
	LabelHit = "hit"
	// LabelMiss marks a cache lookup that required a load.
	LabelMiss = "miss"
	// LabelStale marks a lookup answered with a retained copy past its TTL.
	LabelStale = "stale"
	// LabelInvalidate marks an explicit cache invalidation.
	LabelInvalidate = "invalidate"

	// LabelConverted marks rows whose coordinates converted cleanly.
	LabelConverted = "converted"
	// LabelMissing marks rows dropped for missing coordinates.
	LabelMissing = "missing"
	// LabelInvalid marks rows dropped for out-of-range coordinates.
	LabelInvalid = "invalid"

	// LabelParsed marks transformer rows that produced a record.
	LabelParsed = "parsed"
	// LabelFailed marks transformer rows that were isolated.
	LabelFailed = "failed"

	// LabelCommitted marks a committed transaction.
	LabelCommitted = "committed"
	// LabelRolledBack marks a rolled back transaction.
	LabelRolledBack = "rolled_back"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1

	// BucketFactor2 is the common exponential growth factor for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// Time constants.
const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)
