package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/gridscreen-go/cmd/export"
	"github.com/tphakala/gridscreen-go/cmd/screen"
	"github.com/tphakala/gridscreen-go/cmd/serve"
	"github.com/tphakala/gridscreen-go/cmd/support"
	"github.com/tphakala/gridscreen-go/cmd/validate"
	"github.com/tphakala/gridscreen-go/internal/buildinfo"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "gridscreen",
		Short:   "GridScreen-Go CLI",
		Version: buildinfo.Version(),
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up global flags: %v\n", err)
	}

	// Add sub-commands to the root command.
	subcommands := []*cobra.Command{
		serve.Command(settings),
		screen.Command(settings),
		export.Command(settings),
		validate.Command(),
		support.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
