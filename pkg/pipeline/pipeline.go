// Package pipeline wires the install stages into one linear run:
// probe the host, acquire privilege, resolve and execute remediations,
// place the primary artifact, materialize configuration, and audit the
// result. Stages hand immutable inputs forward; only the privilege
// heartbeat runs concurrently.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/masmide/setup/pkg/artifact"
	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/configfile"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/paths"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/privilege"
	"github.com/masmide/setup/pkg/prompt"
	"github.com/masmide/setup/pkg/resolve"
	"github.com/masmide/setup/pkg/sourcebuild"
	"github.com/masmide/setup/pkg/types"
	"github.com/masmide/setup/pkg/ui"
	"github.com/masmide/setup/pkg/verify"
)

// Fetcher obtains the primary artifact from the release registry.
type Fetcher interface {
	ResolveVersion(ctx context.Context) (string, error)
	Fetch(ctx context.Context, version string, arch platform.Arch, workDir string) (string, error)
}

// Options configures one install run.
type Options struct {
	// Version pins an explicit release tag; empty resolves the latest
	Version string

	// BuildFallback opts in to source builds after a helper miss
	BuildFallback bool

	// DryRun resolves and prints the plan, then stops before any
	// mutation or privilege acquisition
	DryRun bool

	Runner    command.Runner
	FS        types.FS
	Fetcher   Fetcher
	Confirmer prompt.Confirmer

	// Privilege tunes privilege acquisition, mainly for tests
	Privilege privilege.Options

	// SystemPlacer overrides how bytes land under the canonical system
	// paths; nil derives one from the acquired privilege token
	SystemPlacer artifact.Placer

	// WorkDir hosts the downloaded archive; empty means a fresh
	// temporary directory, removed when the run ends
	WorkDir string
}

// Result is the outcome of an install run.
type Result struct {
	Profile   platform.Profile
	Plan      *resolve.Plan
	Report    verify.Report
	Version   string
	Warnings  []string
	Cancelled bool
	DryRun    bool
}

// Install runs the full provisioning pipeline. Warnings accumulate;
// only the fatal conditions of the error taxonomy return an error.
func Install(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("pipeline")
	result := &Result{}

	// Stage 1: environment. The profile is derived once and never
	// re-probed mid-run.
	profile, err := platform.Probe(opts.FS)
	if err != nil {
		return result, err
	}
	result.Profile = profile
	ui.Info("Detected %s (%s family, %s)", profile.ID, profile.Family, profile.Arch)

	// Hard prerequisites of the pipeline itself.
	if _, err := opts.Runner.LookPath("tar"); err != nil {
		return result, errors.Wrap(err, errors.ErrPrereqMissing, "tar is required to extract the release archive")
	}

	caps, err := capability.Catalog()
	if err != nil {
		return result, errors.Wrap(err, errors.ErrPrereqMissing, "invalid capability catalog")
	}

	// Stage 2: privilege, acquired once, held for the rest of the run,
	// and released on every exit path. Dry runs never elevate.
	var token *privilege.Token
	if !opts.DryRun {
		token, err = privilege.Acquire(ctx, opts.Runner, opts.Privilege)
		if err != nil {
			return result, err
		}
		defer token.Release()
	}

	// Stage 3: probe what is already present.
	var missing []capability.Capability
	for _, c := range caps {
		res := c.Probe(ctx, opts.Runner)
		if res.Present {
			logger.Debug().Str("capability", c.Name).Str("detail", res.Detail).Msg("Already satisfied")
			continue
		}
		missing = append(missing, c)
	}

	// Stage 4: resolve missing capabilities into a plan.
	plan := resolve.Resolve(ctx, opts.Runner, missing, profile, resolve.Options{
		BuildFallback: opts.BuildFallback,
	})
	result.Plan = plan

	if plan.HasSourceBuilds() {
		if _, err := opts.Runner.LookPath("git"); err != nil {
			return result, errors.Wrap(err, errors.ErrPrereqMissing, "git is required for source builds")
		}
	}

	ui.Header("Install plan")
	ui.Plan(plan)

	if opts.DryRun {
		result.DryRun = true
		return result, nil
	}

	// The one top-level confirmation checkpoint before anything
	// mutates. Proceeding is the non-destructive default.
	ok, err := opts.Confirmer.Confirm(prompt.Request{
		Title:   "Proceed with installation?",
		Default: true,
	})
	if err != nil {
		return result, errors.Wrap(err, errors.ErrInternal, "confirmation failed")
	}
	if !ok {
		result.Cancelled = true
		ui.Info("Installation cancelled")
		return result, nil
	}

	system := opts.SystemPlacer
	if system == nil {
		system = artifact.NewSudoPlacer(opts.Runner, token)
	}

	// Stage 5: execute the plan.
	if err := executePlan(ctx, opts, profile, token, system, plan, result); err != nil {
		return result, err
	}

	// Stage 6: fetch and place the primary artifact.
	version := opts.Version
	if version == "" {
		version, err = opts.Fetcher.ResolveVersion(ctx)
		if err != nil {
			return result, err
		}
	}
	result.Version = version

	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "masmide-setup-")
		if err != nil {
			return result, errors.Wrap(err, errors.ErrDownload, "failed to create working directory")
		}
		workDir = dir
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				logger.Warn().Err(err).Str("dir", workDir).Msg("Failed to clean up working directory")
			}
		}()
	}

	root, err := opts.Fetcher.Fetch(ctx, version, profile.Arch, workDir)
	if err != nil {
		return result, err
	}

	if err := placeArtifacts(opts, system, root, version, result); err != nil {
		return result, err
	}

	// Stage 7: materialize the editor configuration, user-scoped.
	written, err := configfile.Materialize(opts.FS, opts.Runner, paths.ConfigFilePath())
	if err != nil {
		return result, err
	}
	if written {
		ui.Success("Default configuration written to %s", paths.ConfigFilePath())
	} else {
		ui.Info("Existing configuration left untouched")
	}

	// Stage 8: audit the end state and surface everything deferred.
	ui.Header("Verification")
	result.Report = verify.Audit(ctx, opts.Runner, caps)
	ui.Report(result.Report)
	for _, w := range result.Warnings {
		ui.Warn("%s", w)
	}
	ui.ManualInstructions(plan.Unresolved)

	return result, nil
}

// executePlan runs each resolved step. A failed step downgrades to a
// warning unless it covered a mandatory capability.
func executePlan(ctx context.Context, opts Options, profile platform.Profile, token *privilege.Token, system artifact.Placer, plan *resolve.Plan, result *Result) error {
	logger := logging.GetLogger("pipeline")

	mandatory := make(map[string]bool)
	if caps, err := capability.Catalog(); err == nil {
		for _, c := range caps {
			mandatory[c.Name] = c.Mandatory
		}
	}

	for _, step := range plan.Steps {
		switch step.Kind {
		case resolve.StepPackageBatch:
			pm := platform.PackageManagerFor(profile.Family)
			if pm.Name == "" {
				result.Warnings = append(result.Warnings, "no package manager known for family "+string(profile.Family))
				continue
			}
			args := append(append([]string{}, pm.InstallArgs...), step.Packages...)
			name, argv := token.Command(pm.Name, args...)
			logger.Info().Str("manager", pm.Name).Strs("packages", step.Packages).Msg("Installing native packages")
			if res, err := opts.Runner.Run(ctx, name, argv...); err != nil {
				if anyMandatory(step.Capabilities, mandatory) {
					return errors.Wrapf(err, errors.ErrPackageInstall, "%s failed installing %v", pm.Name, step.Packages).
						WithDetail("output", res.Output())
				}
				result.Warnings = append(result.Warnings, "package installation failed: "+res.Output())
			}

		case resolve.StepHelperInstall:
			// Community helpers build as the invoking user and refuse
			// to run as root; they escalate internally when needed.
			logger.Info().Str("helper", step.Helper).Str("package", step.HelperPackage).Msg("Installing via helper")
			if err := opts.Runner.RunInteractive(ctx, step.Helper, "-S", "--noconfirm", "--needed", step.HelperPackage); err != nil {
				if anyMandatory(step.Capabilities, mandatory) {
					return errors.Wrapf(err, errors.ErrHelperInstall, "%s failed installing %s", step.Helper, step.HelperPackage)
				}
				result.Warnings = append(result.Warnings, step.Helper+" failed installing "+step.HelperPackage)
			}

		case resolve.StepSourceBuild:
			rem := *step.Source
			err := sourcebuild.Build(ctx, opts.Runner, rem, sourcebuild.Options{}, func(artifactPath string) error {
				if err := system.MkdirAll(paths.BinDir, 0755); err != nil {
					return err
				}
				return system.CopyFile(artifactPath, paths.BinDir+"/"+rem.InstallAs, 0755)
			})
			if err != nil {
				if anyMandatory(step.Capabilities, mandatory) {
					return err
				}
				result.Warnings = append(result.Warnings, "source build failed: "+err.Error())
			}
		}
	}
	return nil
}

func anyMandatory(names []string, mandatory map[string]bool) bool {
	for _, n := range names {
		if mandatory[n] {
			return true
		}
	}
	return false
}

// placeArtifacts copies the extracted release into the canonical
// layout and records the manifest.
func placeArtifacts(opts Options, system artifact.Placer, root, version string, result *Result) error {
	specs := []artifact.Spec{
		{
			Name:   "editor binary",
			Source: root + "/bin/" + paths.BinaryName,
			Dest:   paths.BinaryPath(),
			Mode:   0755,
		},
		{
			Name:     "formatter",
			Source:   root + "/bin/" + paths.FormatterName,
			Dest:     paths.FormatterPath(),
			Mode:     0755,
			Optional: true,
		},
		{
			Name:     "irvine libraries",
			Source:   root + "/lib/irvine",
			Dest:     paths.IrvineLibDir,
			Mode:     0644,
			Optional: true,
			Dir:      true,
			Pattern:  "*.lib",
		},
		{
			Name:     "irvine includes",
			Source:   root + "/include/irvine",
			Dest:     paths.IrvineIncDir,
			Mode:     0644,
			Optional: true,
			Dir:      true,
			Pattern:  "*.inc",
		},
	}

	manifest, warnings, err := artifact.Install(opts.FS, system, specs)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.Artifact+": "+w.Detail)
		ui.Warn("%s: %s", w.Artifact, w.Detail)
	}

	// Project templates are user-scoped and never need elevation.
	userSpecs := []artifact.Spec{
		{
			Name:     "project templates",
			Source:   root + "/templates",
			Dest:     paths.TemplatesPath(),
			Mode:     0644,
			Optional: true,
			Dir:      true,
			Pattern:  "*.asm",
		},
	}
	// The templates land inside the config dir, which the uninstall
	// planner already owns as a whole; no manifest entries needed.
	_, userWarnings, err := artifact.Install(opts.FS, artifact.NewFSPlacer(opts.FS), userSpecs)
	if err != nil {
		return err
	}
	for _, w := range userWarnings {
		result.Warnings = append(result.Warnings, w.Artifact+": "+w.Detail)
	}

	manifest.Version = version
	manifest.InstalledAt = time.Now().UTC()
	if err := manifest.Save(opts.FS, paths.ManifestPath()); err != nil {
		return err
	}

	ui.Success("masmide %s installed to %s", version, paths.BinaryPath())
	return nil
}
