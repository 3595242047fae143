package main

import (
	"github.com/spf13/cobra"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/filesystem"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/pipeline"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove masmide from this system",
	Long: `Uninstall removes the files recorded in the install manifest, asking
per category: the editor and its libraries, bundled tools, and your
configuration. System packages installed along the way are left in
place; the commands to remove them are printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.uninstall")

		runner := command.NewExec()
		fsys := filesystem.NewOS()

		result, err := pipeline.Uninstall(cmd.Context(), pipeline.UninstallOptions{
			Runner:    runner,
			FS:        fsys,
			Confirmer: confirmer(),
		})
		if err != nil {
			return err
		}

		logger.Info().
			Int("removed", len(result.Removed)).
			Int("skippedCategories", len(result.Skipped)).
			Msg("Uninstall finished")
		return nil
	},
}
