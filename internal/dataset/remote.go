package dataset

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geojson"
	"github.com/tphakala/gridscreen-go/internal/httpclient"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// remoteFetch is the outcome of a single guarded fetch attempt.
type remoteFetch struct {
	body        []byte
	validators  httpclient.Validators
	notModified bool
	rateLimited bool
}

// fetchRemote runs one rate-limited conditional fetch. When the limiter
// denies the attempt and a retained copy exists, the caller is told to serve
// it; without a copy the denial is an error.
func (l *Loader) fetchRemote(ctx context.Context, name, url string, validators httpclient.Validators, haveCopy bool) (*remoteFetch, error) {
	if !l.limiter.Allow() {
		if haveCopy {
			return &remoteFetch{rateLimited: true}, nil
		}
		return nil, errors.Newf("dataset refetch rate limited, retry after the configured refresh interval").
			Component("dataset").
			Category(errors.CategoryNetwork).
			Context("dataset", name).
			Context("url", url).
			Build()
	}

	if !haveCopy {
		// Validators are only sent when a parsed copy is retained, so a 304
		// always has data to serve.
		validators = httpclient.Validators{}
	}

	start := time.Now()
	result, err := l.client.Fetch(ctx, url, validators)
	if l.metrics != nil {
		l.metrics.RecordFetchDuration(name, time.Since(start).Seconds())
	}
	if err != nil {
		if l.metrics != nil {
			l.metrics.RecordFetch(name, metrics.LabelError)
		}
		return nil, err
	}

	if result.NotModified {
		if l.metrics != nil {
			l.metrics.RecordFetch(name, metrics.LabelNotModified)
		}
		return &remoteFetch{validators: result.Validators, notModified: true}, nil
	}

	if l.metrics != nil {
		l.metrics.RecordFetch(name, metrics.LabelFetched)
	}
	return &remoteFetch{body: result.Body, validators: result.Validators}, nil
}

// substationsFromURL serves the substation dataset from a remote endpoint.
// Fresh copies live in the TTL cache; once the TTL lapses the endpoint is
// revalidated with a conditional request, and the retained parse keeps
// serving when the remote is rate limited, unchanged or failing.
func (l *Loader) substationsFromURL(ctx context.Context, url string) (*SubstationData, error) {
	key := remoteKey(metrics.LabelSubstations, url)
	if cached, found := l.remote.Get(key); found {
		l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelHit)
		return cached.(*SubstationData), nil
	}
	l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelMiss)

	l.mu.RLock()
	last := l.subsLast
	l.mu.RUnlock()
	haveCopy := last.data != nil && last.url == url

	start := time.Now()
	fetched, err := l.fetchRemote(ctx, metrics.LabelSubstations, url, last.validators, haveCopy)
	if err != nil {
		l.recordLoad(metrics.LabelSubstations, SourceURL, metrics.LabelError)
		if haveCopy {
			datasetLogger.Warn("Substation dataset refetch failed, serving retained copy",
				"url", url, "error", err)
			l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelStale)
			return last.data, nil
		}
		return nil, err
	}

	if fetched.rateLimited {
		datasetLogger.Debug("Substation dataset refetch rate limited, serving retained copy", "url", url)
		l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelStale)
		return last.data, nil
	}

	if fetched.notModified {
		l.remote.Set(key, last.data, cache.DefaultExpiration)
		l.mu.Lock()
		l.subsLast.validators = fetched.validators
		l.mu.Unlock()
		datasetLogger.Debug("Substation dataset unchanged on remote", "url", url)
		return last.data, nil
	}

	features, dropped, err := geojson.ParseSubstations(fetched.body)
	if err != nil {
		l.recordLoad(metrics.LabelSubstations, SourceURL, metrics.LabelError)
		return nil, err
	}

	data := &SubstationData{
		Features: features,
		Provenance: Provenance{
			Source:   url,
			Kind:     SourceURL,
			LoadedAt: time.Now(),
			Features: len(features),
			Dropped:  dropped,
		},
	}

	l.remote.Set(key, data, cache.DefaultExpiration)
	l.mu.Lock()
	l.subsLast = remoteMemo[SubstationData]{url: url, validators: fetched.validators, data: data}
	l.mu.Unlock()

	l.recordLoad(metrics.LabelSubstations, SourceURL, metrics.LabelSuccess)
	l.recordLoadDuration(metrics.LabelSubstations, time.Since(start))
	l.updateFeatureCounts(metrics.LabelSubstations, len(features), dropped)
	datasetLogger.Info("Substation dataset loaded from remote",
		"url", url, "features", len(features), "dropped", dropped)
	return data, nil
}

// linesFromURL serves the line dataset from a remote endpoint with the same
// TTL, revalidation and retained copy behavior as substationsFromURL.
func (l *Loader) linesFromURL(ctx context.Context, url string) (*LineData, error) {
	key := remoteKey(metrics.LabelLines, url)
	if cached, found := l.remote.Get(key); found {
		l.recordCacheEvent(metrics.LabelLines, metrics.LabelHit)
		return cached.(*LineData), nil
	}
	l.recordCacheEvent(metrics.LabelLines, metrics.LabelMiss)

	l.mu.RLock()
	last := l.linesLast
	l.mu.RUnlock()
	haveCopy := last.data != nil && last.url == url

	start := time.Now()
	fetched, err := l.fetchRemote(ctx, metrics.LabelLines, url, last.validators, haveCopy)
	if err != nil {
		l.recordLoad(metrics.LabelLines, SourceURL, metrics.LabelError)
		if haveCopy {
			datasetLogger.Warn("Line dataset refetch failed, serving retained copy",
				"url", url, "error", err)
			l.recordCacheEvent(metrics.LabelLines, metrics.LabelStale)
			return last.data, nil
		}
		return nil, err
	}

	if fetched.rateLimited {
		datasetLogger.Debug("Line dataset refetch rate limited, serving retained copy", "url", url)
		l.recordCacheEvent(metrics.LabelLines, metrics.LabelStale)
		return last.data, nil
	}

	if fetched.notModified {
		l.remote.Set(key, last.data, cache.DefaultExpiration)
		l.mu.Lock()
		l.linesLast.validators = fetched.validators
		l.mu.Unlock()
		datasetLogger.Debug("Line dataset unchanged on remote", "url", url)
		return last.data, nil
	}

	features, dropped, err := geojson.ParseLines(fetched.body)
	if err != nil {
		l.recordLoad(metrics.LabelLines, SourceURL, metrics.LabelError)
		return nil, err
	}

	data := &LineData{
		Features: features,
		Provenance: Provenance{
			Source:   url,
			Kind:     SourceURL,
			LoadedAt: time.Now(),
			Features: len(features),
			Dropped:  dropped,
		},
	}

	l.remote.Set(key, data, cache.DefaultExpiration)
	l.mu.Lock()
	l.linesLast = remoteMemo[LineData]{url: url, validators: fetched.validators, data: data}
	l.mu.Unlock()

	l.recordLoad(metrics.LabelLines, SourceURL, metrics.LabelSuccess)
	l.recordLoadDuration(metrics.LabelLines, time.Since(start))
	l.updateFeatureCounts(metrics.LabelLines, len(features), dropped)
	datasetLogger.Info("Line dataset loaded from remote",
		"url", url, "features", len(features), "dropped", dropped)
	return data, nil
}

// remoteKey builds the TTL cache key for a dataset and URL pair.
func remoteKey(name, url string) string {
	return name + "|" + url
}
