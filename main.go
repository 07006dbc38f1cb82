package main

import (
	"os"

	"github.com/tphakala/gridscreen-go/cmd"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

func main() {
	logging.Init()

	// Load the configuration before building the command tree, flag
	// defaults come from the loaded values.
	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Configuration load failed", "error", err)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}
