// Package screening runs capacity screenings: uploaded REE tables are
// decoded, normalized and projected into WGS84 connection points, with
// per-table isolation so one broken upload never sinks the batch. Completed
// runs are optionally persisted, published over MQTT and pushed as
// notifications.
package screening

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/gridscreen-go/internal/capacity"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/dataset"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
	"github.com/tphakala/gridscreen-go/internal/logging"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
	"github.com/tphakala/gridscreen-go/internal/projection"
)

var (
	screeningLogger   *slog.Logger
	screeningLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	screeningLevelVar.Set(slog.LevelDebug)

	screeningLogger, _, err = logging.NewFileLogger("logs/screening.log", "screening", screeningLevelVar)
	if err != nil {
		logging.Error("Failed to initialize screening file logger", "error", err)
		screeningLogger = logging.ForService("screening")
		if screeningLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: screeningLevelVar})
			screeningLogger = slog.New(fbHandler).With("service", "screening")
		}
	}
}

// SummaryPublisher publishes run summaries to a message broker.
type SummaryPublisher interface {
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
}

// Notifier pushes a human-readable note when a run completes.
type Notifier interface {
	Send(title, message string) error
}

// TableInput is one uploaded capacity table.
type TableInput struct {
	Label  string
	Reader io.Reader
}

// TableSummary reports how one uploaded table fared.
type TableSummary struct {
	Label  string `json:"label"`
	Rows   int    `json:"rows"`
	Points int    `json:"points"`
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

// RunResult is the outcome of one screening run. Points carries the full
// record set for persistence and export; API responses shape their own
// summaries from the counts.
type RunResult struct {
	RunID              string                     `json:"run_id"`
	StartedAt          time.Time                  `json:"started_at"`
	FinishedAt         time.Time                  `json:"finished_at"`
	Tables             []TableSummary             `json:"tables"`
	Points             []capacity.ConnectionPoint `json:"-"`
	RowsRead           int                        `json:"rows_read"`
	PointsProduced     int                        `json:"points_produced"`
	MissingCoordinates int                        `json:"missing_coordinates"`
	InvalidCoordinates int                        `json:"invalid_coordinates"`
	RowsDropped        int                        `json:"rows_dropped"`
	Persisted          bool                       `json:"persisted"`
}

// FailedTables counts the tables that produced no data.
func (r *RunResult) FailedTables() int {
	failed := 0
	for i := range r.Tables {
		if r.Tables[i].Failed {
			failed++
		}
	}
	return failed
}

// Service orchestrates screening runs over the configured converter,
// datastore and dataset loader. Optional collaborators attach via setters.
type Service struct {
	settings  *conf.Settings
	converter *projection.Converter
	store     datastore.Interface
	loader    *dataset.Loader
	metrics   *metrics.ScreeningMetrics
	publisher SummaryPublisher
	notifier  Notifier
}

// New creates a screening service. The store may be nil, runs then stay
// stateless. A nil loader falls back to a loader over the configured dataset
// sources. The converter comes from the configured UTM zone.
func New(settings *conf.Settings, store datastore.Interface, loader *dataset.Loader, m *metrics.ScreeningMetrics) (*Service, error) {
	conv, err := projection.UTM(settings.Screening.UTMZone, settings.Screening.North)
	if err != nil {
		return nil, err
	}
	if loader == nil {
		loader = dataset.New(settings, nil, nil)
	}

	return &Service{
		settings:  settings,
		converter: conv,
		store:     store,
		loader:    loader,
		metrics:   m,
	}, nil
}

// SetPublisher attaches the MQTT run summary publisher.
func (s *Service) SetPublisher(p SummaryPublisher) {
	s.publisher = p
}

// SetNotifier attaches the push notification sender.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Datasets exposes the static dataset loader.
func (s *Service) Datasets() *dataset.Loader {
	return s.loader
}

// Store exposes the run datastore, nil when persistence is disabled.
func (s *Service) Store() datastore.Interface {
	return s.store
}

// Run screens a batch of uploaded tables. Table decode and normalization
// failures are collected per table and never abort the run; the returned
// error is reserved for infrastructure failures such as a failed persist,
// and the result is still returned alongside it for inspection.
func (s *Service) Run(ctx context.Context, inputs []TableInput) (*RunResult, error) {
	if len(inputs) == 0 {
		return nil, errors.Newf("no tables supplied").
			Component("screening").
			Category(errors.CategoryValidation).
			Build()
	}

	started := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	tables := make([]*capacity.RawTable, 0, len(inputs))
	for i := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		input := &inputs[i]
		table, err := capacity.ReadTable(input.Label, input.Reader)
		if err != nil {
			result.Tables = append(result.Tables, TableSummary{
				Label:  input.Label,
				Failed: true,
				Error:  err.Error(),
			})
			s.recordTable(metrics.LabelError)
			s.recordTableError(err)
			screeningLogger.Warn("Table decode failed", "label", input.Label, "error", err)
			continue
		}
		tables = append(tables, table)
	}

	norm := capacity.Normalize(s.converter, tables)

	pointsByLabel := make(map[string]int, len(tables))
	for i := range norm.Points {
		pointsByLabel[norm.Points[i].SourceLabel]++
	}
	failedByLabel := make(map[string]string, len(norm.TableErrors))
	for i := range norm.TableErrors {
		failedByLabel[norm.TableErrors[i].Label] = norm.TableErrors[i].Err.Error()
		s.recordTable(metrics.LabelError)
		s.recordTableError(norm.TableErrors[i].Err)
	}

	for _, table := range tables {
		summary := TableSummary{Label: table.Label, Rows: len(table.Rows)}
		if msg, ok := failedByLabel[table.Label]; ok {
			summary.Failed = true
			summary.Error = msg
		} else {
			summary.Points = pointsByLabel[table.Label]
			s.recordTable(metrics.LabelSuccess)
		}
		result.Tables = append(result.Tables, summary)
	}

	result.Points = norm.Points
	result.RowsRead = norm.RowsTotal
	result.PointsProduced = len(norm.Points)
	result.MissingCoordinates = norm.RowsMissing
	result.InvalidCoordinates = norm.RowsInvalid
	result.RowsDropped = norm.RowsMissing + norm.RowsInvalid
	result.FinishedAt = time.Now()

	if s.metrics != nil {
		s.metrics.AddRows(metrics.LabelConverted, result.PointsProduced)
		s.metrics.AddRows(metrics.LabelMissing, result.MissingCoordinates)
		s.metrics.AddRows(metrics.LabelInvalid, result.InvalidCoordinates)
		s.metrics.AddPoints(result.PointsProduced)
	}

	if s.store != nil {
		if err := s.persist(result); err != nil {
			s.recordRun(metrics.LabelError, time.Since(started))
			return result, err
		}
		result.Persisted = true
	}

	s.recordRun(metrics.LabelSuccess, time.Since(started))
	screeningLogger.Info("Screening run completed",
		"run_id", result.RunID,
		"tables", len(result.Tables),
		"failed_tables", result.FailedTables(),
		"rows", result.RowsRead,
		"points", result.PointsProduced,
		"dropped", result.RowsDropped,
		"persisted", result.Persisted,
		"duration_ms", time.Since(started).Milliseconds())

	s.publishSummary(ctx, result)
	s.sendNotification(result)

	return result, nil
}

// persist stores the run through the configured datastore.
func (s *Service) persist(result *RunResult) error {
	run := &datastore.Run{
		ID:                 result.RunID,
		StartedAt:          result.StartedAt,
		FinishedAt:         result.FinishedAt,
		RowsRead:           result.RowsRead,
		PointsProduced:     result.PointsProduced,
		MissingCoordinates: result.MissingCoordinates,
		InvalidCoordinates: result.InvalidCoordinates,
		RowsDropped:        result.RowsDropped,
	}
	for i := range result.Tables {
		t := &result.Tables[i]
		run.Tables = append(run.Tables, datastore.TableOutcome{
			Label:   t.Label,
			Rows:    t.Rows,
			Points:  t.Points,
			Failed:  t.Failed,
			Message: t.Error,
		})
	}

	points := make([]datastore.Point, 0, len(result.Points))
	for i := range result.Points {
		p := &result.Points[i]
		points = append(points, datastore.Point{
			Latitude:       p.Location.Lat,
			Longitude:      p.Location.Lon,
			Name:           p.Name,
			Province:       p.Province,
			Municipality:   p.Municipality,
			VoltageKV:      p.VoltageKV,
			AvailableMW:    p.AvailableMW,
			OccupiedMW:     p.OccupiedMW,
			UtilizationPct: p.UtilizationPct,
			NoCapacity:     p.NoCapacity,
			SourceLabel:    p.SourceLabel,
		})
	}

	if err := s.store.SaveRun(run, points); err != nil {
		screeningLogger.Error("Failed to persist screening run",
			"run_id", result.RunID, "error", err)
		return err
	}
	return nil
}

// MapCenter returns the viewport center for a location set, the mean of the
// latitudes and longitudes. An empty set falls back to the configured
// center.
func (s *Service) MapCenter(locations []geo.GeoPoint) geo.GeoPoint {
	if len(locations) == 0 {
		return geo.GeoPoint{
			Lat: s.settings.Screening.FallbackCenter.Latitude,
			Lon: s.settings.Screening.FallbackCenter.Longitude,
		}
	}

	var latSum, lonSum float64
	for i := range locations {
		latSum += locations[i].Lat
		lonSum += locations[i].Lon
	}
	n := float64(len(locations))
	return geo.GeoPoint{Lat: latSum / n, Lon: lonSum / n}
}

// recordRun is a nil-safe metrics helper.
func (s *Service) recordRun(status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordRun(status)
		s.metrics.RecordRunDuration(d.Seconds())
	}
}

// recordTable is a nil-safe metrics helper.
func (s *Service) recordTable(status string) {
	if s.metrics != nil {
		s.metrics.RecordTable(status)
	}
}

// recordTableError is a nil-safe metrics helper.
func (s *Service) recordTableError(err error) {
	if s.metrics != nil {
		s.metrics.RecordTableError(errorCategory(err))
	}
}

// errorCategory extracts the structured category for metric labels.
func errorCategory(err error) string {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.GetCategory()
	}
	return "unknown"
}
