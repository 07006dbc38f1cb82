// model.go defines the persisted data model for screening runs.
package datastore

import "time"

// Run is one persisted screening run. The primary key is the UUID assigned
// when the run executes, so API lookups need no numeric id mapping.
type Run struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	StartedAt          time.Time `gorm:"index:idx_runs_started_at"`
	FinishedAt         time.Time
	RowsRead           int
	PointsProduced     int
	MissingCoordinates int
	InvalidCoordinates int
	RowsDropped        int
	Tables             []TableOutcome `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Points             []Point        `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableOutcome records how one uploaded table fared inside a run.
type TableOutcome struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   string `gorm:"index;size:36;not null"`
	Label   string
	Rows    int
	Points  int
	Failed  bool
	Message string `gorm:"type:text"`
}

// Point is one screened connection point. Optional numeric fields are
// pointers so absent values persist as NULL rather than zero.
type Point struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index:idx_points_run_id;size:36;not null"`
	Latitude       float64
	Longitude      float64
	Name           string
	Province       string   `gorm:"index:idx_points_province"`
	Municipality   string   `gorm:"index:idx_points_municipality"`
	VoltageKV      *float64 `gorm:"index:idx_points_voltage"`
	AvailableMW    *float64
	OccupiedMW     *float64
	UtilizationPct float64
	NoCapacity     bool   `gorm:"index:idx_points_no_capacity"`
	SourceLabel    string `gorm:"index:idx_points_source"`
}
