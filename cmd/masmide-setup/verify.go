package main

import (
	"github.com/spf13/cobra"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/ui"
	"github.com/masmide/setup/pkg/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the installed toolchain",
	Long: `Verify re-probes every toolchain capability and reports its state.
Exits non-zero when a capability the editor cannot work without is
missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		caps, err := capability.Catalog()
		if err != nil {
			return err
		}

		report := verify.Audit(cmd.Context(), command.NewExec(), caps)
		ui.Report(report)

		for _, e := range report.Entries {
			if e.Mandatory && !e.Present {
				return errors.Newf(errors.ErrPrereqMissing, "capability %q is missing", e.Name)
			}
		}
		return nil
	},
}
