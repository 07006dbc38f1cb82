// Package support implements the gridscreen support command.
package support

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/diagnostics"
)

func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "support",
		Short: "Collect system diagnostics for troubleshooting",
		Long:  "Gather host, runtime and masked configuration information into a JSON support dump on stdout.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(os.Stderr, "Collecting support data...")

			dump := diagnostics.CollectSupportDump(context.Background(), settings)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(dump); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding support data: %v\n", err)
				os.Exit(1)
			}
		},
	}
}
