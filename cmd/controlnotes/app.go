package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/controlnotes/internal/annotate"
	"github.com/thebtf/controlnotes/internal/catalog"
	"github.com/thebtf/controlnotes/internal/config"
	gormdb "github.com/thebtf/controlnotes/internal/db/gorm"
)

func loadCatalog(ctx context.Context, cfg *config.Config) *catalog.Source {
	src := catalog.New(cfg.SpreadsheetPath)
	if !src.Load(ctx) {
		log.Warn().Str("path", cfg.SpreadsheetPath).Msg("Control catalog unavailable, lookups will report no weakness description")
	}
	return src
}

func openHistory(cfg *config.Config) (*gormdb.Store, *gormdb.HistoryStore, error) {
	store, err := gormdb.NewStore(gormdb.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open history store: %w", err)
	}
	return store, gormdb.NewHistoryStore(store), nil
}

func newGenerator(cfg *config.Config, renderHTML bool) *annotate.Generator {
	if !cfg.HasAPIKey() {
		log.Warn().Msgf("%s is not set, annotations will be unavailable", config.KeyAPIKey)
	}
	return annotate.NewGenerator(annotate.Options{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.LLMTimeout,
		RenderHTML: renderHTML,
	})
}

// renderTerminal renders markdown for the console, falling back to the raw text.
func renderTerminal(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
