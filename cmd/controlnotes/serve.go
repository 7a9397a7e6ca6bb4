package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/controlnotes/internal/config"
	"github.com/thebtf/controlnotes/internal/server"
	"github.com/thebtf/controlnotes/internal/watcher"
	"github.com/thebtf/controlnotes/internal/workflow"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	src := loadCatalog(ctx, cfg)

	store, history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gen := newGenerator(cfg, true)
	wf := workflow.New(src, gen, history, workflow.Options{Strict: cfg.StrictLookup})

	svc := server.NewService(Version, cfg, server.Deps{
		Catalog:  src,
		Lookup:   wf,
		Asker:    gen,
		History:  history,
		Database: store,
	})

	if cfg.WatchCatalog {
		stop := startCatalogWatcher(src.Path(), func() { svc.ReloadCatalog(ctx) })
		defer stop()
	}

	return svc.Run(ctx)
}

// startCatalogWatcher calls reload whenever the catalog file changes.
func startCatalogWatcher(path string, reload func()) func() {
	w, err := watcher.New(path, reload)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create catalog watcher")
		return func() {}
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start catalog watcher")
		return func() {}
	}
	log.Info().Str("path", path).Msg("Watching control catalog for changes")
	return func() { _ = w.Stop() }
}
