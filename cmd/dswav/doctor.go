package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-dswav/internal/doctor"
	"github.com/example/go-dswav/internal/extcmd"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and the projects directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg := doctor.Config{
				FFmpegVersion: doctor.CommandVersion(cmd.Context(), extcmd.Run, cfg.Slicer.FFmpegPath, "-version"),
				EspeakVersion: doctor.CommandVersion(cmd.Context(), extcmd.Run, cfg.Phonemize.EspeakPath, "--version"),
				ProjectsDir:   cfg.Paths.ProjectsDir,
			}
			if len(cfg.STT.Command) > 0 {
				dcfg.STTExecutable = cfg.STT.Command[0]
			}

			out := cmd.OutOrStdout()
			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")
			return nil
		},
	}
}
