package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "controlnotes",
		Short: "Plain-language notes for FedRAMP controls",
		Long: `controlnotes explains FedRAMP controls in plain language, shows the
project team's weakness description from the control spreadsheet and keeps
a history of every lookup.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(opts.debug, cmd.Name() == "serve")
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Settings file (JSON or YAML)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newLookupCmd(opts),
		newAskCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// setupLogging configures the global logger. Interactive commands only log
// warnings so the console stays readable.
func setupLogging(debug, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
}
