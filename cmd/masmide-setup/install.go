package main

import (
	"github.com/spf13/cobra"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/filesystem"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/pipeline"
	"github.com/masmide/setup/pkg/prompt"
	"github.com/masmide/setup/pkg/release"
)

var (
	installVersion string
	buildFallback  bool
	dryRun         bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install masmide and its toolchain",
	Long: `Install detects the host distribution, resolves the missing toolchain
capabilities into package installs or source builds, downloads the
masmide release, places it under /usr/local, and writes a default
configuration (never overwriting an existing one).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.install")
		logger.Info().
			Str("version", installVersion).
			Bool("buildFallback", buildFallback).
			Bool("dryRun", dryRun).
			Msg("Starting install")

		runner := command.NewExec()
		fsys := filesystem.NewOS()

		result, err := pipeline.Install(cmd.Context(), pipeline.Options{
			Version:       installVersion,
			BuildFallback: buildFallback,
			DryRun:        dryRun,
			Runner:        runner,
			FS:            fsys,
			Fetcher:       release.New(runner, fsys),
			Confirmer:     confirmer(),
		})
		if err != nil {
			return err
		}

		logger.Info().
			Bool("cancelled", result.Cancelled).
			Int("warnings", len(result.Warnings)).
			Msg("Install finished")
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "Pin an explicit release version (default: latest)")
	installCmd.Flags().BoolVar(&buildFallback, "build-fallback", false, "Build from source when no packaged form is available")
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and print the plan without changing anything")
}

func confirmer() prompt.Confirmer {
	if assumeYes {
		return prompt.AssumeYes{}
	}
	return prompt.Interactive{}
}
