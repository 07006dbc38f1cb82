// Package export implements the gridscreen export command, writing the
// points of a recorded screening run as CSV or GeoJSON.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/export"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

var (
	runID      string
	formatName string
	outputPath string
)

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the points of a recorded screening run",
		Long:  "Write the connection points of a persisted screening run as CSV or GeoJSON, to a file or to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "latest", "Run ID to export, or \"latest\"")
	cmd.Flags().StringVar(&formatName, "format", viper.GetString("output.export.format"), "Export format (csv or geojson)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file, stdout when empty")

	return cmd
}

func runExport(settings *conf.Settings) error {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("export requires a database output, enable sqlite or mysql in the settings")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error("Failed to close database", "error", err)
		}
	}()

	id := runID
	if id == "latest" {
		runs, err := store.ListRuns(1, 0)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no screening runs recorded")
		}
		id = runs[0].ID
	}

	stored, err := store.PointsForRun(id, datastore.PointFilter{})
	if err != nil {
		return err
	}
	points := export.FromStored(stored)

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Write(out, format, points); err != nil {
		return err
	}

	if outputPath != "" {
		fmt.Printf("Exported %d points of run %s to %s\n", len(points), id, outputPath)
	}

	return nil
}
