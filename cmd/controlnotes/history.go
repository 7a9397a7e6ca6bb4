package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/thebtf/controlnotes/internal/config"
	gormdb "github.com/thebtf/controlnotes/internal/db/gorm"
	"github.com/thebtf/controlnotes/internal/db/sqlite"
	"github.com/thebtf/controlnotes/pkg/models"
)

type historyOptions struct {
	control string
	limit   int
}

// historyReport is the read side used by the report. SQLite databases are
// opened read-only; other drivers go through the regular store.
type historyReport interface {
	All(ctx context.Context) ([]*models.HistoryEntry, error)
	ByControl(ctx context.Context, control string) ([]*models.HistoryEntry, error)
	Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error)
	Close() error
}

type storeReport struct {
	store   *gormdb.Store
	history *gormdb.HistoryStore
}

func (r *storeReport) All(ctx context.Context) ([]*models.HistoryEntry, error) {
	return r.history.All(ctx)
}

func (r *storeReport) ByControl(ctx context.Context, control string) ([]*models.HistoryEntry, error) {
	return r.history.FindByControl(ctx, control)
}

func (r *storeReport) Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	return r.history.Recent(ctx, limit)
}

func (r *storeReport) Close() error {
	return r.store.Close()
}

func openReport(cfg *config.Config) (historyReport, error) {
	if cfg.DBDriver == config.DriverSQLite {
		reader, err := sqlite.OpenReader(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return reader, nil
	}
	store, history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	return &storeReport{store: store, history: history}, nil
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	ho := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), opts, ho, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&ho.control, "control", "", "Only show entries for this control")
	cmd.Flags().IntVar(&ho.limit, "limit", 0, "Show the N most recent entries")
	return cmd
}

func runHistory(ctx context.Context, opts *rootOptions, ho *historyOptions, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	report, err := openReport(cfg)
	if errors.Is(err, sqlite.ErrNoStore) {
		fmt.Fprintln(out, "No lookups have been recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	defer report.Close()

	control := ho.control
	if control == "" && ho.limit <= 0 {
		p := newPrompter(in, out)
		byControl, err := p.YesNo("Would you like to find an entry for a certain control? (Y/N) ")
		if err != nil {
			return err
		}
		if byControl {
			if control, err = p.Line("Which control would you like to see? "); err != nil {
				return err
			}
		}
	}

	var entries []*models.HistoryEntry
	switch {
	case control != "":
		entries, err = report.ByControl(ctx, control)
	case ho.limit > 0:
		entries, err = report.Recent(ctx, ho.limit)
	default:
		fmt.Fprintln(out, "Below are all the user entries")
		entries, err = report.All(ctx)
	}
	if err != nil {
		return err
	}

	renderReport(out, entries)
	return nil
}

var (
	reportRule    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reportControl = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AFFF"))
	reportMeta    = lipgloss.NewStyle().Faint(true)
	reportLabel   = lipgloss.NewStyle().Bold(true)
	reportBody    = lipgloss.NewStyle().PaddingLeft(2).Width(80)
)

func renderReport(out io.Writer, entries []*models.HistoryEntry) {
	fmt.Fprintln(out, reportRule.Render("------------------------------"))
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching entries.")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(out, "%s %s\n", reportControl.Render(e.Control),
			reportMeta.Render(fmt.Sprintf("#%d %s", e.ID, e.CreatedAt)))

		fmt.Fprintln(out, reportLabel.Render("AI Control Description"))
		fmt.Fprintln(out, reportBody.Render(e.AIControlDescription))

		fmt.Fprintln(out, reportLabel.Render("ProjectTeam Weakness Description"))
		if w, ok := e.Weakness(); ok {
			fmt.Fprintln(out, reportBody.Render(w))
		} else {
			fmt.Fprintln(out, reportBody.Render("(none)"))
		}
		fmt.Fprintln(out, reportRule.Render("------------------------------"))
	}
}
