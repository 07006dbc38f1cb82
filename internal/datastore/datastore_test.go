package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
)

// setupTestDB creates an in-memory SQLite database with the screening schema.
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Run{}, &TableOutcome{}, &Point{}))

	return &DataStore{DB: db}
}

// makeRun builds a run with one table outcome and plausible counts.
func makeRun(started time.Time) *Run {
	return &Run{
		ID:                 uuid.NewString(),
		StartedAt:          started,
		FinishedAt:         started.Add(2 * time.Second),
		RowsRead:           10,
		PointsProduced:     8,
		MissingCoordinates: 1,
		InvalidCoordinates: 1,
		Tables: []TableOutcome{
			{Label: "capacity.csv", Rows: 10, Points: 8},
		},
	}
}

func f64(v float64) *float64 {
	return &v
}

func TestNewSelectsStore(t *testing.T) {
	t.Parallel()

	sqliteSettings := &conf.Settings{}
	sqliteSettings.Output.SQLite.Enabled = true
	sqliteSettings.Output.SQLite.Path = "gridscreen.db"
	assert.IsType(t, &SQLiteStore{}, New(sqliteSettings))

	mysqlSettings := &conf.Settings{}
	mysqlSettings.Output.MySQL.Enabled = true
	assert.IsType(t, &MySQLStore{}, New(mysqlSettings))

	assert.Nil(t, New(&conf.Settings{}))
}

func TestSQLiteOpenClose(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "gridscreen.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	require.NotNil(t, store.DB)

	require.NoError(t, store.Close())
	assert.Nil(t, store.DB)

	// Closing an already closed store is a no-op.
	require.NoError(t, store.Close())
}

func TestSQLiteOpenWithoutPath(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true

	store := &SQLiteStore{Settings: settings}
	err := store.Open()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestMySQLOpenIncompleteConfig(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Host = "localhost"

	store := &MySQLStore{Settings: settings}
	err := store.Open()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSaveRunAndGetRun(t *testing.T) {
	ds := setupTestDB(t)

	started := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	run := makeRun(started)
	points := []Point{
		{
			Latitude:       40.4168,
			Longitude:      -3.7038,
			Name:           "Villaverde",
			Province:       "Madrid",
			Municipality:   "Madrid",
			VoltageKV:      f64(220),
			AvailableMW:    f64(35.5),
			OccupiedMW:     f64(64.5),
			UtilizationPct: 64.5,
			SourceLabel:    "capacity.csv",
		},
		{
			Latitude:    37.3891,
			Longitude:   -5.9845,
			Name:        "Santiponce",
			Province:    "Sevilla",
			SourceLabel: "capacity.csv",
		},
	}

	require.NoError(t, ds.SaveRun(run, points))

	got, err := ds.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 10, got.RowsRead)
	assert.Equal(t, 8, got.PointsProduced)
	assert.WithinDuration(t, started, got.StartedAt, time.Second)
	require.Len(t, got.Tables, 1)
	assert.Equal(t, "capacity.csv", got.Tables[0].Label)

	stored, err := ds.PointsForRun(run.ID, PointFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Set optionals round-trip with values, absent ones stay NULL.
	require.NotNil(t, stored[0].VoltageKV)
	assert.InDelta(t, 220, *stored[0].VoltageKV, 0.001)
	assert.Nil(t, stored[1].VoltageKV)
	assert.Nil(t, stored[1].AvailableMW)
}

func TestGetRunNotFound(t *testing.T) {
	ds := setupTestDB(t)

	run, err := ds.GetRun(uuid.NewString())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, errors.IsNotFound(err))
}

func TestListRunsOrderAndPagination(t *testing.T) {
	ds := setupTestDB(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	oldest := makeRun(base)
	middle := makeRun(base.Add(time.Hour))
	newest := makeRun(base.Add(2 * time.Hour))
	for _, run := range []*Run{oldest, middle, newest} {
		require.NoError(t, ds.SaveRun(run, nil))
	}

	page, err := ds.ListRuns(2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)
	require.Len(t, page[0].Tables, 1)

	rest, err := ds.ListRuns(2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)

	all, err := ds.ListRuns(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := ds.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPointsForRunFilters(t *testing.T) {
	ds := setupTestDB(t)

	run := makeRun(time.Now())
	points := []Point{
		{Province: "Madrid", Municipality: "Getafe", VoltageKV: f64(220), SourceLabel: "a.csv"},
		{Province: "Madrid", Municipality: "Leganes", VoltageKV: f64(400), NoCapacity: true, SourceLabel: "a.csv"},
		{Province: "Sevilla", Municipality: "Dos Hermanas", VoltageKV: f64(66), SourceLabel: "b.csv"},
		{Province: "Madrid", Municipality: "Madrid", SourceLabel: "b.csv"},
	}
	require.NoError(t, ds.SaveRun(run, points))

	tests := []struct {
		name   string
		filter PointFilter
		want   int
	}{
		{"no_filter", PointFilter{}, 4},
		{"province", PointFilter{Province: "Madrid"}, 3},
		{"municipality", PointFilter{Municipality: "Getafe"}, 1},
		{"min_voltage_excludes_null", PointFilter{MinVoltageKV: f64(200)}, 2},
		{"max_voltage", PointFilter{MaxVoltageKV: f64(100)}, 1},
		{"voltage_range", PointFilter{MinVoltageKV: f64(100), MaxVoltageKV: f64(300)}, 1},
		{"available_only", PointFilter{AvailableOnly: true}, 3},
		{"source_label", PointFilter{SourceLabel: "b.csv"}, 2},
		{"combined", PointFilter{Province: "Madrid", AvailableOnly: true}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.PointsForRun(run.ID, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestPointsForRunUnknownRun(t *testing.T) {
	ds := setupTestDB(t)

	points, err := ds.PointsForRun(uuid.NewString(), PointFilter{})
	require.Error(t, err)
	assert.Nil(t, points)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteRun(t *testing.T) {
	ds := setupTestDB(t)

	run := makeRun(time.Now())
	points := []Point{
		{Province: "Madrid", SourceLabel: "a.csv"},
		{Province: "Sevilla", SourceLabel: "a.csv"},
	}
	require.NoError(t, ds.SaveRun(run, points))

	require.NoError(t, ds.DeleteRun(run.ID))

	_, err := ds.GetRun(run.ID)
	assert.True(t, errors.IsNotFound(err))

	var orphanPoints int64
	require.NoError(t, ds.DB.Model(&Point{}).Where("run_id = ?", run.ID).Count(&orphanPoints).Error)
	assert.Zero(t, orphanPoints)

	var orphanTables int64
	require.NoError(t, ds.DB.Model(&TableOutcome{}).Where("run_id = ?", run.ID).Count(&orphanTables).Error)
	assert.Zero(t, orphanTables)

	// Deleting again reports not found.
	err = ds.DeleteRun(run.ID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	ds := setupTestDB(t)

	run := makeRun(time.Now())
	first := []Point{{Province: "Madrid", SourceLabel: "a.csv"}}
	require.NoError(t, ds.SaveRun(run, first))

	duplicate := &Run{ID: run.ID, StartedAt: run.StartedAt}
	second := []Point{
		{Province: "Sevilla", SourceLabel: "b.csv"},
		{Province: "Valencia", SourceLabel: "b.csv"},
	}
	err := ds.SaveRun(duplicate, second)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))

	// The failed save left nothing behind.
	stored, err := ds.PointsForRun(run.ID, PointFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestOperationsWithoutOpen(t *testing.T) {
	t.Parallel()

	ds := &DataStore{}

	err := ds.SaveRun(makeRun(time.Now()), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))

	_, err = ds.GetRun("x")
	require.Error(t, err)

	_, err = ds.ListRuns(0, 0)
	require.Error(t, err)

	_, err = ds.PointsForRun("x", PointFilter{})
	require.Error(t, err)

	require.Error(t, ds.DeleteRun("x"))
}
