package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/controlnotes/internal/config"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask the model a free-form question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runAsk(ctx context.Context, opts *rootOptions, args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	if question == "" {
		if question, err = newPrompter(in, out).Line("Ask any question you have "); err != nil {
			return err
		}
	}

	answer, err := newGenerator(cfg, false).Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderTerminal(answer))
	return nil
}
