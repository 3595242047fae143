// Package uninstall mirrors the install pipeline. It removes only what
// the install manifest proves this tool placed, asks per-category
// confirmation with destructive defaults of "no", and never executes
// package-manager removal itself.
package uninstall

import (
	"fmt"

	"github.com/masmide/setup/pkg/artifact"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/paths"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/prompt"
)

// Category groups removal steps that share one confirmation.
type Category string

const (
	// CategoryPrimary is the editor binary and its data-library
	// directories, removed together under one confirmation
	CategoryPrimary Category = "primary"

	// CategorySecondary is bundled optional tooling
	CategorySecondary Category = "secondary"

	// CategoryConfig is the user configuration and installer state
	CategoryConfig Category = "configuration"
)

// Step is one path removal.
type Step struct {
	Category Category
	Path     string
	Dir      bool
}

// Plan is the ordered removal plan built from the install manifest.
type Plan struct {
	Steps []Step
}

// ByCategory returns the steps belonging to one category, in plan order.
func (p Plan) ByCategory(cat Category) []Step {
	var steps []Step
	for _, s := range p.Steps {
		if s.Category == cat {
			steps = append(steps, s)
		}
	}
	return steps
}

// IsEmpty reports whether the plan removes nothing.
func (p Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// BuildPlan derives removal steps from the manifest plus the
// user-scoped directories this tool materializes. Paths absent from
// the manifest are never touched: ownership must be proven, not
// guessed.
func BuildPlan(m *artifact.Manifest, configDir, stateDir string) Plan {
	var plan Plan

	for _, f := range m.Files {
		cat := CategoryPrimary
		if f == paths.FormatterPath() {
			cat = CategorySecondary
		}
		plan.Steps = append(plan.Steps, Step{Category: cat, Path: f})
	}
	for _, d := range m.Dirs {
		plan.Steps = append(plan.Steps, Step{Category: CategoryPrimary, Path: d, Dir: true})
	}

	plan.Steps = append(plan.Steps,
		Step{Category: CategoryConfig, Path: configDir, Dir: true},
		Step{Category: CategoryConfig, Path: stateDir, Dir: true},
	)
	return plan
}

// Options control plan execution.
type Options struct {
	// System places removals under the canonical system paths
	System artifact.Placer

	// User places removals under the user's own directories
	User artifact.Placer

	// Confirmer answers the per-category confirmations
	Confirmer prompt.Confirmer
}

// Result reports what Execute removed and what the user declined.
type Result struct {
	Removed []string
	Skipped []Category
}

// categoryTitles phrase each confirmation so "yes" means remove.
var categoryTitles = map[Category]string{
	CategoryPrimary:   "Remove the masmide editor and its Irvine libraries?",
	CategorySecondary: "Remove bundled tools?",
	CategoryConfig:    "Remove your configuration and templates? This cannot be undone",
}

// Execute walks the plan category by category. Each category gets one
// confirmation defaulting to "no"; a declined category is skipped
// whole, never partially applied.
func Execute(plan Plan, opts Options) (*Result, error) {
	logger := logging.GetLogger("uninstall")
	result := &Result{}

	for _, cat := range []Category{CategoryPrimary, CategorySecondary, CategoryConfig} {
		steps := plan.ByCategory(cat)
		if len(steps) == 0 {
			continue
		}

		items := make([]string, len(steps))
		for i, s := range steps {
			items[i] = s.Path
		}
		ok, err := opts.Confirmer.Confirm(prompt.Request{
			Title:   categoryTitles[cat],
			Items:   items,
			Default: false,
		})
		if err != nil {
			return result, errors.Wrap(err, errors.ErrFileRemove, "confirmation failed")
		}
		if !ok {
			logger.Info().Str("category", string(cat)).Msg("Removal declined, skipping category")
			result.Skipped = append(result.Skipped, cat)
			continue
		}

		placer := opts.System
		if cat == CategoryConfig {
			placer = opts.User
		}
		for _, s := range steps {
			var err error
			if s.Dir {
				err = placer.RemoveAll(s.Path)
			} else {
				err = placer.Remove(s.Path)
			}
			if err != nil {
				return result, errors.Wrapf(err, errors.ErrFileRemove, "failed to remove %s", s.Path)
			}
			logger.Info().Str("path", s.Path).Msg("Removed")
			result.Removed = append(result.Removed, s.Path)
		}
	}

	return result, nil
}

// PackageRemovalHint returns the commands a user would run to remove
// the system packages the installer may have added. Printed only,
// never executed: other software may depend on those packages.
func PackageRemovalHint(family platform.Family) []string {
	packages := map[platform.Family]string{
		platform.FamilyArch:   "jwasm mingw-w64-gcc wine",
		platform.FamilyDebian: "jwasm binutils-mingw-w64-i686 gcc-mingw-w64-i686 wine",
		platform.FamilyFedora: "jwasm mingw32-binutils mingw32-gcc wine",
		platform.FamilySuse:   "jwasm mingw32-cross-binutils mingw32-cross-gcc wine",
	}
	removeVerbs := map[platform.Family]string{
		platform.FamilyArch:   "pacman -Rns",
		platform.FamilyDebian: "apt-get remove",
		platform.FamilyFedora: "dnf remove",
		platform.FamilySuse:   "zypper remove",
	}

	pkgs, ok := packages[family]
	if !ok {
		return nil
	}
	return []string{
		"Toolchain packages were installed through your package manager and are left in place;",
		"other software may depend on them. To remove them yourself:",
		fmt.Sprintf("  sudo %s %s", removeVerbs[family], pkgs),
	}
}
