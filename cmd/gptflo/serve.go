package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/meedamian/gptflo/internal/server"
	"github.com/meedamian/gptflo/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web form and the generation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides GPTFLO_SERVER_ADDR)")
}

func runServe(cmd *cobra.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.config.ServerAddress = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gen server.QuestionGenerator
	if a.gen != nil {
		gen = a.gen
	}

	return server.New(a.logger, a.config, a.info, gen, web.Static).Run(ctx)
}
