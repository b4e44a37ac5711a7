package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/example/go-dswav/internal/merge"
	"github.com/example/go-dswav/internal/pipeline"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup <project>",
		Short: "Create the project directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return newPipeline(cfg).Setup(cmd.Context(), args[0])
		},
	}
}

func newTranscribeCmd() *cobra.Command {
	var req pipeline.TranscribeRequest

	cmd := &cobra.Command{
		Use:   "transcribe <project> <recording>",
		Short: "Transcribe a recording, segment it into sentences and slice clips",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			req.Input = args[1]
			res, err := newPipeline(cfg).Transcribe(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&req.Language, "language", "", "Override stt.language for this recording")
	cmd.Flags().StringVar(&req.SpeakerID, "speaker", "", "Override segment.speaker_id for this recording")

	return cmd
}

func newMergeCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "merge <project> [source-dir...]",
		Short: "Import sentences and clips from other dataset directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			sources := args[1:]
			if from != "" {
				listed, err := merge.LoadSourceList(from)
				if err != nil {
					return err
				}
				sources = append(sources, listed...)
			}
			if len(sources) == 0 {
				return errors.New("merge: give source directories or --from")
			}

			rep, err := newPipeline(cfg).Merge(cmd.Context(), args[0], sources)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "YAML file listing source directories")

	return cmd
}

func newFixAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-audio <project>",
		Short: "Pad clips shorter than repair.min_ms with silence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			rep, err := newPipeline(cfg).FixAudio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rep)
		},
	}
}

func newAddSilenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-silence <project>",
		Short: "Append repair.silence_ms of silence to every clip",
		Long: "Append repair.silence_ms of silence to every clip. Running it twice " +
			"appends twice; build with --add-eos afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			rep, err := newPipeline(cfg).AddSilence(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rep)
		},
	}
}

func newBuildCmd() *cobra.Command {
	var req pipeline.BuildRequest

	cmd := &cobra.Command{
		Use:   "build <project>",
		Short: "Phonemize sentences and write train/val manifests and the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			rep, err := newPipeline(cfg).Build(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().BoolVar(&req.AddEOS, "add-eos", false, "Append build.eos_marker to every text")

	return cmd
}

func newUploadCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "upload <project>",
		Short: "Send the built archive to upload.target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return newPipeline(cfg).Upload(cmd.Context(), args[0], target)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Override upload.target")

	return cmd
}
