package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/meedamian/gptflo/internal/apikeys"
	"github.com/meedamian/gptflo/internal/config"
	"github.com/meedamian/gptflo/internal/generator"
	"github.com/meedamian/gptflo/internal/models"
	"github.com/meedamian/gptflo/internal/types"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "gptflo",
	Short:         "Generate five questions about any topic",
	Long:          "gptflo asks a text-completion model for five questions about a topic, over HTTP or from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("provider", "", "Model provider (overrides GPTFLO_PROVIDER)")
	rootCmd.PersistentFlags().String("model", "", "Model name (overrides GPTFLO_MODEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

// app is the wiring shared by every command
type app struct {
	config config.Config
	logger *slog.Logger
	info   *types.ModelInfo
	gen    *generator.Generator // nil when the provider key is missing
}

// setup loads configuration, the logger, the provider key, and the generator
func setup(cmd *cobra.Command) (*app, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.Provider = p
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Model = m
	}

	// Keep stdout clean for the printed questions
	logOut := os.Stdout
	if cmd.Name() == "generate" {
		logOut = os.Stderr
	}
	logger, err := config.NewLoggerTo(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	info, err := models.NewModelInfo(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}
	info.Temperature = cfg.Temperature
	info.MaxTokens = cfg.MaxTokens
	info.RequestTimeout = cfg.CompletionTimeout
	info.Logger = logger.With("model", info.Name)
	if !models.IsKnownVariant(info.ID, info.Name) {
		info.Logger.Warn("model is not a known variant of the provider", slog.String("provider", info.ID))
	}

	apikeys.Load(info)

	a := &app{config: cfg, logger: logger, info: info}

	client, err := models.NewModel(info)
	switch {
	case errors.Is(err, models.ErrMissingAPIKey):
		info.Logger.Warn("api key missing", slog.String("env", apikeys.EnvVar(info.ID)))
		return a, nil
	case err != nil:
		return nil, fmt.Errorf("create model: %w", err)
	}

	a.gen = generator.New(logger, client, info.Name, generator.Options{
		MaxEmptyAttempts:  cfg.MaxEmptyAttempts,
		CompletionTimeout: cfg.CompletionTimeout,
		GenerateTimeout:   cfg.GenerateTimeout,
	})
	return a, nil
}
