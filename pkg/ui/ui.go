// Package ui renders pipeline output for the terminal. Everything here
// degrades to plain text when stdout is not a terminal, so scripted
// runs and logs stay readable.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"github.com/masmide/setup/pkg/resolve"
	"github.com/masmide/setup/pkg/uninstall"
	"github.com/masmide/setup/pkg/verify"
)

func terminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Header prints a stage heading.
func Header(title string) {
	if !terminal() {
		fmt.Printf("\n== %s ==\n", title)
		return
	}
	pterm.DefaultSection.Println(title)
}

// Info prints a plain informational line.
func Info(format string, args ...interface{}) {
	pterm.Printf(format+"\n", args...)
}

// Success prints a success line.
func Success(format string, args ...interface{}) {
	if !terminal() {
		fmt.Printf("OK: "+format+"\n", args...)
		return
	}
	pterm.Success.Printfln(format, args...)
}

// Warn prints a warning line.
func Warn(format string, args ...interface{}) {
	if !terminal() {
		fmt.Printf("WARNING: "+format+"\n", args...)
		return
	}
	pterm.Warning.Printfln(format, args...)
}

// Plan renders the resolved install plan, one line per step.
func Plan(plan *resolve.Plan) {
	if len(plan.Steps) == 0 && len(plan.Unresolved) == 0 {
		Success("All toolchain capabilities already present, nothing to install")
		return
	}

	for _, step := range plan.Steps {
		switch step.Kind {
		case resolve.StepPackageBatch:
			Info("  install packages: %s  (for %s)",
				strings.Join(step.Packages, " "), strings.Join(step.Capabilities, ", "))
		case resolve.StepHelperInstall:
			Info("  install %s via %s  (for %s)",
				step.HelperPackage, step.Helper, strings.Join(step.Capabilities, ", "))
		case resolve.StepSourceBuild:
			Info("  build from source: %s @ %s  (for %s)",
				step.Source.RepoURL, step.Source.Ref, strings.Join(step.Capabilities, ", "))
		}
	}
	for _, u := range plan.Unresolved {
		Warn("  %s: %s (manual installation required)", u.Capability, u.Reason)
	}
}

// Report renders the verification audit as a table.
func Report(report verify.Report) {
	rows := pterm.TableData{{"Capability", "Status", "Detail"}}
	for _, e := range report.Entries {
		status := "present"
		if !e.Present {
			status = "MISSING"
			if !e.Mandatory {
				status = "missing (optional)"
			}
		}
		rows = append(rows, []string{e.Name, status, e.Detail})
	}

	if !terminal() {
		for _, r := range rows[1:] {
			fmt.Printf("%-18s %-20s %s\n", r[0], r[1], r[2])
		}
		return
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// PackageHint prints the manual package-removal guidance.
func PackageHint(lines []string) {
	for _, line := range lines {
		Info("%s", line)
	}
}

// RemovalSummary renders what an uninstall run removed and skipped.
func RemovalSummary(result *uninstall.Result) {
	for _, p := range result.Removed {
		Info("  removed %s", p)
	}
	for _, cat := range result.Skipped {
		Info("  kept %s (declined)", string(cat))
	}
}
