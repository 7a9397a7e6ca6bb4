package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/controlnotes/internal/config"
	"github.com/thebtf/controlnotes/internal/workflow"
	"github.com/thebtf/controlnotes/pkg/models"
)

type lookupOptions struct {
	remediation bool
	list        bool
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	lo := &lookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup [CONTROL]",
		Short: "Explain a control and show its weakness description",
		Long: `Look up a control in the spreadsheet, generate a plain-language
explanation and record the result in the history database. Without a
CONTROL argument the command asks for one interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), opts, lo, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&lo.remediation, "remediation", false, "Also list remediation steps")
	cmd.Flags().BoolVar(&lo.list, "list", false, "Print the available controls first")
	return cmd
}

func runLookup(ctx context.Context, opts *rootOptions, lo *lookupOptions, args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	src := loadCatalog(ctx, cfg)
	p := newPrompter(in, out)

	var control string
	if len(args) > 0 {
		control = args[0]
	}

	showList := lo.list
	if !showList && control == "" {
		if showList, err = p.YesNo("Would you like a list of controls you can ask for? (Y/N) "); err != nil {
			return err
		}
	}
	if showList {
		for _, id := range src.ListControlIDs() {
			fmt.Fprintln(out, id)
		}
	}

	if control == "" {
		if control, err = p.Line("\nEnter the control you would like the weakness description for: "); err != nil {
			return err
		}
	}

	store, history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	wf := workflow.New(src, newGenerator(cfg, false), history, workflow.Options{Strict: cfg.StrictLookup})
	result, err := wf.Run(ctx, workflow.Input{Typed: control, IncludeRemediation: lo.remediation})
	var notFound *workflow.ControlNotFoundError
	if errors.As(err, &notFound) && len(notFound.Suggestions) > 0 {
		fmt.Fprintf(out, "Did you mean: %s?\n", strings.Join(notFound.Suggestions, ", "))
	}
	if err != nil {
		return err
	}

	printResult(out, result, renderTerminal)
	return nil
}

func printResult(out io.Writer, result *models.LookupResult, render func(string) string) {
	if result.HasWeakness() {
		fmt.Fprintf(out, "\nWeakness Description of %s for ProjectTeam: %s\n", result.Control, result.WeaknessText())
	} else {
		fmt.Fprintf(out, "\nThe control %s was not found in the file.\n", result.Control)
		if len(result.Suggestions) > 0 {
			fmt.Fprintf(out, "Did you mean: %s?\n", strings.Join(result.Suggestions, ", "))
		}
	}

	fmt.Fprintf(out, "\nBelow is a short description of control %s\n", result.Control)
	fmt.Fprintln(out, render(result.Annotation))

	if !result.Persisted {
		fmt.Fprintln(out, "Note: this lookup could not be saved to the history database.")
	}
}
