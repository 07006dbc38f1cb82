// Package screen implements the one-shot gridscreen screen command.
package screen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/export"
	"github.com/tphakala/gridscreen-go/internal/logging"
	"github.com/tphakala/gridscreen-go/internal/screening"
)

// outputFormat holds the format flag value
var outputFormat string

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen [files]",
		Short: "Screen capacity tables from local files",
		Long:  "Run one screening pass over local capacity table files and print the run summary. Persistence and export follow the output settings.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "table" && outputFormat != "json" {
				return fmt.Errorf("unsupported output format %q, use table or json", outputFormat)
			}
			return runScreen(settings, args)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "summary output format (table or json)")

	return cmd
}

func runScreen(settings *conf.Settings, paths []string) error {
	store := datastore.New(settings)
	if store != nil {
		if err := store.Open(); err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error("Failed to close database", "error", err)
			}
		}()
	}

	svc, err := screening.New(settings, store, nil, nil)
	if err != nil {
		return err
	}

	inputs := make([]screening.TableInput, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open table %s: %w", path, err)
		}
		defer f.Close()
		inputs = append(inputs, screening.TableInput{Label: filepath.Base(path), Reader: f})
	}

	// Run reserves its error for infrastructure failures and still returns
	// the result alongside, so the summary prints before the error decides
	// the exit code.
	result, runErr := svc.Run(context.Background(), inputs)
	if result == nil {
		return runErr
	}

	if settings.Output.Export.Enabled {
		exportPath, err := export.WriteRunFile(settings, result.RunID, result.Points)
		if err != nil {
			logging.Error("Export failed", "error", err)
		} else if exportPath != "" {
			fmt.Printf("Exported screened points to %s\n", exportPath)
		}
	}

	if outputFormat == "json" {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printTable(result)
	}

	if runErr != nil {
		return runErr
	}
	if result.FailedTables() == len(result.Tables) {
		return fmt.Errorf("no table produced any data")
	}

	return nil
}

// printTable prints the per-table outcomes and run totals as a fixed width
// table.
func printTable(result *screening.RunResult) {
	fmt.Printf("Table                           Rows    Points  Status\n")
	fmt.Printf("──────────────────────────────  ──────  ──────  ──────────\n")
	for i := range result.Tables {
		t := &result.Tables[i]
		status := "✅ ok"
		if t.Failed {
			status = "❌ " + t.Error
		}
		fmt.Printf("%-30s  %6d  %6d  %s\n", t.Label, t.Rows, t.Points, status)
	}
	fmt.Printf("──────────────────────────────  ──────  ──────  ──────────\n")

	fmt.Printf("\nRows read: %d, points produced: %d, rows dropped: %d (no coordinates: %d, invalid: %d)\n",
		result.RowsRead, result.PointsProduced, result.RowsDropped,
		result.MissingCoordinates, result.InvalidCoordinates)
	if result.Persisted {
		fmt.Printf("Run persisted as %s\n", result.RunID)
	}
}

func printJSON(result *screening.RunResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
