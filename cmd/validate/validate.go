// Package validate implements the gridscreen validate command, running the
// substation feature validator across a local GeoJSON file.
package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/gridscreen-go/internal/geojson"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a substation GeoJSON dataset",
		Long:  "Run the substation feature validator across a GeoJSON FeatureCollection and report every rejected feature with its reason.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read dataset file: %w", err)
	}

	verdicts, err := geojson.ValidateDocument(data)
	if err != nil {
		return err
	}

	accepted := 0
	rejected := make([]geojson.FeatureVerdict, 0)
	for _, v := range verdicts {
		if v.Reason == "" {
			accepted++
		} else {
			rejected = append(rejected, v)
		}
	}

	fmt.Printf("✅ %d of %d features accepted\n", accepted, len(verdicts))
	if len(rejected) > 0 {
		fmt.Printf("❌ %d features rejected:\n", len(rejected))
		for _, v := range rejected {
			name := v.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("   #%d %s: %s\n", v.Index, name, v.Reason)
		}
	}

	if accepted == 0 {
		return fmt.Errorf("no feature passed validation")
	}

	return nil
}
