package pipeline

import (
	"context"

	"github.com/masmide/setup/pkg/artifact"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/paths"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/privilege"
	"github.com/masmide/setup/pkg/prompt"
	"github.com/masmide/setup/pkg/types"
	"github.com/masmide/setup/pkg/ui"
	"github.com/masmide/setup/pkg/uninstall"
)

// UninstallOptions configures one uninstall run.
type UninstallOptions struct {
	Runner    command.Runner
	FS        types.FS
	Confirmer prompt.Confirmer
	Privilege privilege.Options

	// SystemPlacer overrides removal under the canonical system paths;
	// nil derives one from the acquired privilege token
	SystemPlacer artifact.Placer
}

// Uninstall mirrors Install: it removes only manifest-owned paths,
// category by category, and prints (never runs) the package-manager
// removal commands.
func Uninstall(ctx context.Context, opts UninstallOptions) (*uninstall.Result, error) {
	manifest, err := artifact.LoadManifest(opts.FS, paths.ManifestPath())
	if err != nil {
		return nil, err
	}

	profile, err := platform.Probe(opts.FS)
	if err != nil {
		return nil, err
	}

	plan := uninstall.BuildPlan(manifest, paths.ConfigDir(), paths.StateDir())

	ui.Header("Uninstall")
	ui.Info("Removing masmide %s", manifest.Version)

	token, err := privilege.Acquire(ctx, opts.Runner, opts.Privilege)
	if err != nil {
		return nil, err
	}
	defer token.Release()

	system := opts.SystemPlacer
	if system == nil {
		system = artifact.NewSudoPlacer(opts.Runner, token)
	}

	result, err := uninstall.Execute(plan, uninstall.Options{
		System:    system,
		User:      artifact.NewFSPlacer(opts.FS),
		Confirmer: opts.Confirmer,
	})
	if err != nil {
		return result, err
	}

	ui.RemovalSummary(result)
	ui.PackageHint(uninstall.PackageRemovalHint(profile.Family))
	return result, nil
}
