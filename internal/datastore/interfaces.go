// interfaces.go defines the interface for screening run persistence.
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// Interface abstracts the underlying database implementation and defines the
// operations the screening service and the API need.
type Interface interface {
	Open() error
	Close() error
	SaveRun(run *Run, points []Point) error
	GetRun(id string) (*Run, error)
	ListRuns(limit, offset int) ([]Run, error)
	CountRuns() (int64, error)
	PointsForRun(id string, filter PointFilter) ([]Point, error)
	DeleteRun(id string) error
	SetMetrics(m *Metrics)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB
	metrics *Metrics
}

// New returns the store selected by the output settings, or nil when no
// database output is enabled and screening runs stateless.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SetMetrics attaches the datastore metrics collector. Safe to leave unset;
// operations then run unrecorded.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metrics = m
}

// PointFilter narrows PointsForRun results. Zero values leave the matching
// constraint off.
type PointFilter struct {
	Province      string
	Municipality  string
	MinVoltageKV  *float64
	MaxVoltageKV  *float64
	AvailableOnly bool
	SourceLabel   string
}

// pointSaveBatchSize bounds the row count per INSERT when persisting points.
const pointSaveBatchSize = 200

// SaveRun stores a run with its table outcomes and points as a single
// transaction.
func (ds *DataStore) SaveRun(run *Run, points []Point) error {
	start := time.Now()
	err := ds.saveRun(run, points)
	ds.recordOp(metrics.OpRunSave, start, err)
	if err == nil && ds.metrics != nil {
		ds.metrics.AddSavedPoints(len(points))
	}
	return err
}

func (ds *DataStore) saveRun(run *Run, points []Point) error {
	if ds.DB == nil {
		return errNotOpen("save_run")
	}

	tx := ds.DB.Begin()
	if tx.Error != nil {
		return dbError(tx.Error, "begin_transaction", run.ID)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Points are created separately in batches, so keep the association out
	// of the run insert.
	if err := tx.Omit("Points").Create(run).Error; err != nil {
		tx.Rollback()
		ds.recordTransaction(metrics.LabelRolledBack)
		return dbError(err, "save_run", run.ID)
	}

	for i := range points {
		points[i].RunID = run.ID
	}
	if len(points) > 0 {
		if err := tx.CreateInBatches(points, pointSaveBatchSize).Error; err != nil {
			tx.Rollback()
			ds.recordTransaction(metrics.LabelRolledBack)
			return dbError(err, "save_points", run.ID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		ds.recordTransaction(metrics.LabelRolledBack)
		return dbError(err, "commit_transaction", run.ID)
	}

	ds.recordTransaction(metrics.LabelCommitted)
	datastoreLogger.Info("Screening run saved",
		"run_id", run.ID, "points", len(points), "tables", len(run.Tables))
	return nil
}

// GetRun retrieves one run with its table outcomes.
func (ds *DataStore) GetRun(id string) (*Run, error) {
	start := time.Now()
	run, err := ds.getRun(id)
	ds.recordOp(metrics.OpRunGet, start, err)
	return run, err
}

func (ds *DataStore) getRun(id string) (*Run, error) {
	if ds.DB == nil {
		return nil, errNotOpen("get_run")
	}

	var run Run
	err := ds.DB.Preload("Tables").Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("screening run not found").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("run_id", id).
				Build()
		}
		return nil, dbError(err, "get_run", id)
	}
	return &run, nil
}

// ListRuns returns runs newest first, with their table outcomes. A limit of
// zero or less returns every run.
func (ds *DataStore) ListRuns(limit, offset int) ([]Run, error) {
	start := time.Now()
	runs, err := ds.listRuns(limit, offset)
	ds.recordOp(metrics.OpRunList, start, err)
	return runs, err
}

func (ds *DataStore) listRuns(limit, offset int) ([]Run, error) {
	if ds.DB == nil {
		return nil, errNotOpen("list_runs")
	}

	query := ds.DB.Preload("Tables").Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, dbError(err, "list_runs", "")
	}
	return runs, nil
}

// CountRuns returns the total number of stored runs.
func (ds *DataStore) CountRuns() (int64, error) {
	if ds.DB == nil {
		return 0, errNotOpen("count_runs")
	}

	var count int64
	if err := ds.DB.Model(&Run{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_runs", "")
	}
	return count, nil
}

// PointsForRun returns a run's points narrowed by the filter. The run must
// exist; an unknown id is a not-found error rather than an empty result.
func (ds *DataStore) PointsForRun(id string, filter PointFilter) ([]Point, error) {
	start := time.Now()
	points, err := ds.pointsForRun(id, filter)
	ds.recordOp(metrics.OpPointsQuery, start, err)
	return points, err
}

func (ds *DataStore) pointsForRun(id string, filter PointFilter) ([]Point, error) {
	if ds.DB == nil {
		return nil, errNotOpen("points_for_run")
	}

	var exists int64
	if err := ds.DB.Model(&Run{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return nil, dbError(err, "points_for_run", id)
	}
	if exists == 0 {
		return nil, errors.Newf("screening run not found").
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("run_id", id).
			Build()
	}

	query := ds.DB.Where("run_id = ?", id)
	if filter.Province != "" {
		query = query.Where("province = ?", filter.Province)
	}
	if filter.Municipality != "" {
		query = query.Where("municipality = ?", filter.Municipality)
	}
	if filter.MinVoltageKV != nil {
		query = query.Where("voltage_kv >= ?", *filter.MinVoltageKV)
	}
	if filter.MaxVoltageKV != nil {
		query = query.Where("voltage_kv <= ?", *filter.MaxVoltageKV)
	}
	if filter.AvailableOnly {
		query = query.Where("no_capacity = ?", false)
	}
	if filter.SourceLabel != "" {
		query = query.Where("source_label = ?", filter.SourceLabel)
	}

	var points []Point
	if err := query.Order("id ASC").Find(&points).Error; err != nil {
		return nil, dbError(err, "points_for_run", id)
	}
	return points, nil
}

// DeleteRun removes a run with its table outcomes and points.
func (ds *DataStore) DeleteRun(id string) error {
	start := time.Now()
	err := ds.deleteRun(id)
	ds.recordOp(metrics.OpRunDelete, start, err)
	return err
}

func (ds *DataStore) deleteRun(id string) error {
	if ds.DB == nil {
		return errNotOpen("delete_run")
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&Point{}).Error; err != nil {
			return dbError(err, "delete_points", id)
		}
		if err := tx.Where("run_id = ?", id).Delete(&TableOutcome{}).Error; err != nil {
			return dbError(err, "delete_table_outcomes", id)
		}

		result := tx.Delete(&Run{ID: id})
		if result.Error != nil {
			return dbError(result.Error, "delete_run", id)
		}
		if result.RowsAffected == 0 {
			return errors.Newf("screening run not found").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("run_id", id).
				Build()
		}

		datastoreLogger.Info("Screening run deleted", "run_id", id)
		return nil
	})
}

// performAutoMigration keeps the schema current on Open.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Run{}, &TableOutcome{}, &Point{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		datastoreLogger.Debug("Database connection initialized",
			"db_type", dbType, "connection", connectionInfo)
	}
	return nil
}

// closeDatabase closes the underlying SQL connection shared by both stores.
func (ds *DataStore) closeDatabase() error {
	if ds.DB == nil {
		return nil
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close_database", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close_database", "")
	}

	ds.DB = nil
	return nil
}

// recordOp reports one finished operation to the metrics collector.
func (ds *DataStore) recordOp(op string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}

	status := metrics.LabelSuccess
	if err != nil {
		status = metrics.LabelError
		ds.metrics.RecordError(op, errorCategory(err))
	}
	ds.metrics.RecordOperation(op, status)
	ds.metrics.RecordDuration(op, time.Since(start).Seconds())
}

// recordTransaction is a nil-safe transaction outcome helper.
func (ds *DataStore) recordTransaction(status string) {
	if ds.metrics != nil {
		ds.metrics.RecordTransaction(status)
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

// errNotOpen reports an operation attempted before Open succeeded.
func errNotOpen(operation string) error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// dbError wraps a GORM failure with the operation and run context.
func dbError(err error, operation, runID string) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	if runID != "" {
		builder = builder.Context("run_id", runID)
	}
	return builder.Build()
}
