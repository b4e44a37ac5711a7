package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-dswav/internal/config"
	"github.com/example/go-dswav/internal/logging"
	"github.com/example/go-dswav/internal/pipeline"
)

var (
	cfgFile   string
	activeCfg config.Config
	loaded    bool
)

// newPipeline is replaced in tests.
var newPipeline = pipeline.New

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "dswav",
		Short:         "Build speech synthesis training datasets from recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			activeCfg = cfg
			loaded = true
			setupLogger(cfg.Log)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newTranscribeCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newFixAudioCmd())
	cmd.AddCommand(newAddSilenceCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(lc config.LogConfig) {
	slog.SetDefault(logging.New(logging.Options{Level: lc.Level, File: lc.File}))
}

func requireConfig() (config.Config, error) {
	if !loaded {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}

// printResult writes a stage report as indented JSON.
func printResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
