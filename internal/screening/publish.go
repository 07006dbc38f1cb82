package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// runSummary is the MQTT payload shape for a completed run.
type runSummary struct {
	RunID          string    `json:"run_id"`
	Node           string    `json:"node,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Tables         int       `json:"tables"`
	FailedTables   int       `json:"failed_tables"`
	RowsRead       int       `json:"rows_read"`
	PointsProduced int       `json:"points_produced"`
	RowsDropped    int       `json:"rows_dropped"`
	Persisted      bool      `json:"persisted"`
}

// publishSummary pushes the run summary to the broker. Publish failures are
// logged and never fail the run.
func (s *Service) publishSummary(ctx context.Context, result *RunResult) {
	if s.publisher == nil || !s.settings.MQTT.Enabled {
		return
	}

	summary := runSummary{
		RunID:          result.RunID,
		Node:           s.settings.Main.Name,
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
		Tables:         len(result.Tables),
		FailedTables:   result.FailedTables(),
		RowsRead:       result.RowsRead,
		PointsProduced: result.PointsProduced,
		RowsDropped:    result.RowsDropped,
		Persisted:      result.Persisted,
	}

	payload, err := json.Marshal(&summary)
	if err != nil {
		screeningLogger.Error("Failed to encode run summary", "run_id", result.RunID, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, s.settings.MQTT.Topic, string(payload)); err != nil {
		screeningLogger.Warn("Run summary publish failed",
			"run_id", result.RunID, "topic", s.settings.MQTT.Topic, "error", err)
		return
	}
	screeningLogger.Debug("Run summary published",
		"run_id", result.RunID, "topic", s.settings.MQTT.Topic)
}

// sendNotification pushes a completion note through the configured notifier.
// Send failures are logged and never fail the run.
func (s *Service) sendNotification(result *RunResult) {
	if s.notifier == nil || !s.settings.Notification.Enabled {
		return
	}

	message := fmt.Sprintf("Run %s: %d points from %d tables (%d rows read, %d dropped)",
		result.RunID, result.PointsProduced, len(result.Tables), result.RowsRead, result.RowsDropped)
	if failed := result.FailedTables(); failed > 0 {
		message += fmt.Sprintf(", %d tables failed", failed)
	}

	if err := s.notifier.Send("Screening run completed", message); err != nil {
		screeningLogger.Warn("Run notification failed", "run_id", result.RunID, "error", err)
		return
	}
	screeningLogger.Debug("Run notification sent", "run_id", result.RunID)
}
