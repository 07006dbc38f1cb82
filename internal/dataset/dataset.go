// Package dataset loads and caches the static substation and transmission
// line GeoJSON datasets used by capacity screening. File sources are memoized
// by path and modification time so unchanged files are never re-parsed.
// Remote sources are cached with a TTL and revalidated with conditional
// requests, with a rate limiter keeping refetch attempts apart.
package dataset

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geojson"
	"github.com/tphakala/gridscreen-go/internal/httpclient"
	"github.com/tphakala/gridscreen-go/internal/logging"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

var (
	datasetLogger   *slog.Logger
	datasetLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	datasetLevelVar.Set(slog.LevelDebug)

	datasetLogger, _, err = logging.NewFileLogger("logs/dataset.log", "dataset", datasetLevelVar)
	if err != nil {
		logging.Error("Failed to initialize dataset file logger", "error", err)
		datasetLogger = logging.ForService("dataset")
		if datasetLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: datasetLevelVar})
			datasetLogger = slog.New(fbHandler).With("service", "dataset")
		}
	}
}

const (
	// SourceFile marks a dataset served from a local file.
	SourceFile = "file"
	// SourceURL marks a dataset served from a remote endpoint.
	SourceURL = "url"

	defaultCacheTTL        = 15 * time.Minute
	defaultRefreshInterval = 60 * time.Second
)

// Provenance describes where a loaded dataset came from and what survived
// parsing.
type Provenance struct {
	Source   string    `json:"source"`
	Kind     string    `json:"kind"`
	LoadedAt time.Time `json:"loaded_at"`
	Features int       `json:"features"`
	Dropped  int       `json:"dropped"`
}

// SubstationData bundles the validator-filtered substation features with
// their provenance.
type SubstationData struct {
	Features   []geojson.SubstationFeature `json:"features"`
	Provenance Provenance                  `json:"provenance"`
}

// LineData bundles the parsed transmission line features with their
// provenance.
type LineData struct {
	Features   []geojson.LineFeature `json:"features"`
	Provenance Provenance            `json:"provenance"`
}

// Status reports the current provenance of both datasets. A nil entry means
// the dataset has not been loaded yet.
type Status struct {
	Substations *Provenance `json:"substations"`
	Lines       *Provenance `json:"lines"`
}

// fileMemo holds the parse result for a file source, keyed by the path and
// modification time observed when it was read.
type fileMemo[T any] struct {
	path    string
	modTime time.Time
	data    *T
}

// remoteMemo retains the last good parse of a remote source beyond the TTL
// window, together with the validators needed for conditional refetches.
type remoteMemo[T any] struct {
	url        string
	validators httpclient.Validators
	data       *T
}

// Loader serves the two static datasets from their configured sources.
// Safe for concurrent use.
type Loader struct {
	settings *conf.Settings
	client   *httpclient.Client
	metrics  *metrics.DatasetMetrics
	limiter  *rate.Limiter
	remote   *cache.Cache

	mu        sync.RWMutex
	subsFile  fileMemo[SubstationData]
	linesFile fileMemo[LineData]
	subsLast  remoteMemo[SubstationData]
	linesLast remoteMemo[LineData]
}

// New creates a dataset Loader. A nil client falls back to a default HTTP
// client and a nil metrics instance disables metric recording.
func New(settings *conf.Settings, client *httpclient.Client, m *metrics.DatasetMetrics) *Loader {
	if client == nil {
		client = httpclient.New(nil)
	}

	ttl := time.Duration(settings.Datasets.CacheTTL) * time.Minute
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	interval := time.Duration(settings.Datasets.RefreshInterval) * time.Second
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	return &Loader{
		settings: settings,
		client:   client,
		metrics:  m,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		remote:   cache.New(ttl, 2*ttl),
	}
}

// Substations returns the validator-filtered substation dataset.
func (l *Loader) Substations(ctx context.Context) (*SubstationData, error) {
	src := l.settings.Datasets.Substations
	switch {
	case src.Path != "":
		return l.substationsFromFile(src.Path)
	case src.URL != "":
		return l.substationsFromURL(ctx, src.URL)
	default:
		return nil, errors.Newf("no source configured for the substations dataset").
			Component("dataset").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Lines returns the transmission line dataset.
func (l *Loader) Lines(ctx context.Context) (*LineData, error) {
	src := l.settings.Datasets.Lines
	switch {
	case src.Path != "":
		return l.linesFromFile(src.Path)
	case src.URL != "":
		return l.linesFromURL(ctx, src.URL)
	default:
		return nil, errors.Newf("no source configured for the lines dataset").
			Component("dataset").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Preload loads both datasets concurrently and returns the first failure.
func (l *Loader) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := l.Substations(ctx)
		return err
	})
	g.Go(func() error {
		_, err := l.Lines(ctx)
		return err
	})
	return g.Wait()
}

// Invalidate clears every cached dataset copy, retained parses and
// validators included. The refetch rate limit is left running, keeping the
// configured minimum interval between remote attempts.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.subsFile = fileMemo[SubstationData]{}
	l.linesFile = fileMemo[LineData]{}
	l.subsLast = remoteMemo[SubstationData]{}
	l.linesLast = remoteMemo[LineData]{}
	l.mu.Unlock()

	l.remote.Flush()

	if l.metrics != nil {
		l.metrics.RecordCacheEvent(metrics.LabelSubstations, metrics.LabelInvalidate)
		l.metrics.RecordCacheEvent(metrics.LabelLines, metrics.LabelInvalidate)
	}
	datasetLogger.Info("Dataset caches invalidated")
}

// CurrentStatus reports the provenance of whatever is currently loaded.
func (l *Loader) CurrentStatus() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var status Status
	if l.settings.Datasets.Substations.Path != "" {
		if l.subsFile.data != nil {
			status.Substations = &l.subsFile.data.Provenance
		}
	} else if l.subsLast.data != nil {
		status.Substations = &l.subsLast.data.Provenance
	}
	if l.settings.Datasets.Lines.Path != "" {
		if l.linesFile.data != nil {
			status.Lines = &l.linesFile.data.Provenance
		}
	} else if l.linesLast.data != nil {
		status.Lines = &l.linesLast.data.Provenance
	}
	return status
}
