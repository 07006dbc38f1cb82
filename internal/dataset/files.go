package dataset

import (
	"os"
	"time"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geojson"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// substationsFromFile serves the substation dataset from a local file,
// re-parsing only when the modification time changes.
func (l *Loader) substationsFromFile(path string) (*SubstationData, error) {
	info, err := os.Stat(path)
	if err != nil {
		l.recordLoad(metrics.LabelSubstations, SourceFile, metrics.LabelError)
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("operation", "stat_dataset_file").
			Context("path", path).
			Build()
	}

	l.mu.RLock()
	memo := l.subsFile
	l.mu.RUnlock()
	if memo.data != nil && memo.path == path && memo.modTime.Equal(info.ModTime()) {
		l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelHit)
		return memo.data, nil
	}
	l.recordCacheEvent(metrics.LabelSubstations, metrics.LabelMiss)

	start := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		l.recordLoad(metrics.LabelSubstations, SourceFile, metrics.LabelError)
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("operation", "read_dataset_file").
			Context("path", path).
			Build()
	}

	features, dropped, err := geojson.ParseSubstations(raw)
	if err != nil {
		l.recordLoad(metrics.LabelSubstations, SourceFile, metrics.LabelError)
		return nil, err
	}

	data := &SubstationData{
		Features: features,
		Provenance: Provenance{
			Source:   path,
			Kind:     SourceFile,
			LoadedAt: time.Now(),
			Features: len(features),
			Dropped:  dropped,
		},
	}

	l.mu.Lock()
	l.subsFile = fileMemo[SubstationData]{path: path, modTime: info.ModTime(), data: data}
	l.mu.Unlock()

	l.recordLoad(metrics.LabelSubstations, SourceFile, metrics.LabelSuccess)
	l.recordLoadDuration(metrics.LabelSubstations, time.Since(start))
	l.updateFeatureCounts(metrics.LabelSubstations, len(features), dropped)
	datasetLogger.Info("Substation dataset loaded from file",
		"path", path, "features", len(features), "dropped", dropped)
	return data, nil
}

// linesFromFile serves the line dataset from a local file with the same
// modification time memoization as substationsFromFile.
func (l *Loader) linesFromFile(path string) (*LineData, error) {
	info, err := os.Stat(path)
	if err != nil {
		l.recordLoad(metrics.LabelLines, SourceFile, metrics.LabelError)
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("operation", "stat_dataset_file").
			Context("path", path).
			Build()
	}

	l.mu.RLock()
	memo := l.linesFile
	l.mu.RUnlock()
	if memo.data != nil && memo.path == path && memo.modTime.Equal(info.ModTime()) {
		l.recordCacheEvent(metrics.LabelLines, metrics.LabelHit)
		return memo.data, nil
	}
	l.recordCacheEvent(metrics.LabelLines, metrics.LabelMiss)

	start := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		l.recordLoad(metrics.LabelLines, SourceFile, metrics.LabelError)
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			Context("operation", "read_dataset_file").
			Context("path", path).
			Build()
	}

	features, dropped, err := geojson.ParseLines(raw)
	if err != nil {
		l.recordLoad(metrics.LabelLines, SourceFile, metrics.LabelError)
		return nil, err
	}

	data := &LineData{
		Features: features,
		Provenance: Provenance{
			Source:   path,
			Kind:     SourceFile,
			LoadedAt: time.Now(),
			Features: len(features),
			Dropped:  dropped,
		},
	}

	l.mu.Lock()
	l.linesFile = fileMemo[LineData]{path: path, modTime: info.ModTime(), data: data}
	l.mu.Unlock()

	l.recordLoad(metrics.LabelLines, SourceFile, metrics.LabelSuccess)
	l.recordLoadDuration(metrics.LabelLines, time.Since(start))
	l.updateFeatureCounts(metrics.LabelLines, len(features), dropped)
	datasetLogger.Info("Line dataset loaded from file",
		"path", path, "features", len(features), "dropped", dropped)
	return data, nil
}

// recordLoad is a nil-safe metrics helper.
func (l *Loader) recordLoad(dataset, source, status string) {
	if l.metrics != nil {
		l.metrics.RecordLoad(dataset, source, status)
	}
}

// recordLoadDuration is a nil-safe metrics helper.
func (l *Loader) recordLoadDuration(dataset string, d time.Duration) {
	if l.metrics != nil {
		l.metrics.RecordLoadDuration(dataset, d.Seconds())
	}
}

// recordCacheEvent is a nil-safe metrics helper.
func (l *Loader) recordCacheEvent(dataset, event string) {
	if l.metrics != nil {
		l.metrics.RecordCacheEvent(dataset, event)
	}
}

// updateFeatureCounts is a nil-safe metrics helper.
func (l *Loader) updateFeatureCounts(dataset string, kept, dropped int) {
	if l.metrics != nil {
		l.metrics.UpdateFeatureCounts(dataset, kept, dropped)
	}
}
