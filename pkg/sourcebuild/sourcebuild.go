// Package sourcebuild compiles a dependency from a pinned source
// reference when no packaged form exists. Each step has its own
// failure boundary, and the ephemeral working directory is removed on
// every exit path.
package sourcebuild

import (
	"context"
	"os"
	"path/filepath"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
)

// Options tunes a build.
type Options struct {
	// WorkDir hosts the ephemeral checkout. Empty means a fresh
	// temporary directory. Always removed when Build returns.
	WorkDir string
}

// Build fetches, compiles, and verifies the remediation's artifact,
// then hands its path to install before cleaning up. install runs
// while the working directory still exists; typically it copies the
// binary into the canonical bin directory.
func Build(ctx context.Context, runner command.Runner, rem capability.BuildFromSource, opts Options, install func(artifactPath string) error) error {
	logger := logging.GetLogger("sourcebuild")

	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "masmide-setup-build-")
		if err != nil {
			return errors.Wrap(err, errors.ErrSourceBuild, "failed to create build directory")
		}
		workDir = dir
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("dir", workDir).Msg("Failed to clean up build directory")
		}
	}()

	srcDir := filepath.Join(workDir, "src")

	logger.Info().
		Str("repo", rem.RepoURL).
		Str("ref", rem.Ref).
		Msg("Fetching pinned source")
	if res, err := runner.Run(ctx, "git", "clone", "--depth", "1", "--branch", rem.Ref, rem.RepoURL, srcDir); err != nil {
		return stepError(err, "fetch", rem, res)
	}

	if len(rem.BuildCommand) == 0 {
		return errors.New(errors.ErrSourceBuild, "no build command declared").
			WithDetail("repo", rem.RepoURL)
	}
	logger.Info().Strs("command", rem.BuildCommand).Msg("Building")
	if res, err := runner.RunInDir(ctx, srcDir, rem.BuildCommand[0], rem.BuildCommand[1:]...); err != nil {
		return stepError(err, "build", rem, res)
	}

	artifact := filepath.Join(srcDir, rem.ArtifactPath)
	if _, err := os.Stat(artifact); err != nil {
		return stepError(err, "verify", rem, command.Result{})
	}

	if err := install(artifact); err != nil {
		return stepError(err, "install", rem, command.Result{})
	}

	logger.Info().Str("artifact", rem.InstallAs).Msg("Source build complete")
	return nil
}

func stepError(err error, step string, rem capability.BuildFromSource, res command.Result) *errors.SetupError {
	e := errors.Wrapf(err, errors.ErrSourceBuild, "source build step %q failed for %s", step, rem.InstallAs).
		WithDetail("step", step).
		WithDetail("repo", rem.RepoURL)
	if out := res.Output(); out != "" {
		e = e.WithDetail("output", out)
	}
	return e
}
