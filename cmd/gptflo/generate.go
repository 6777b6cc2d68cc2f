package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/meedamian/gptflo/internal/apikeys"
	"github.com/meedamian/gptflo/internal/models"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic...>",
	Short: "Print five questions about a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if a.gen == nil {
			return fmt.Errorf("%s: set %s or add it to .env or keys.json: %w",
				a.info.Provider, apikeys.EnvVar(a.info.ID), models.ErrMissingAPIKey)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		questions, err := a.gen.Generate(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(questions, "\n"))
		return nil
	},
}
