// Package capability defines the toolchain requirements the installer
// knows how to satisfy, and side-effect-free probes to check for them.
package capability

import (
	"context"
	"strings"
	"time"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/platform"
)

// ProbeTimeout bounds a probe's version query so a misbehaving binary
// cannot hang the pipeline. Variable so tests can shorten it.
var ProbeTimeout = 5 * time.Second

// Capability is a named toolchain requirement with a way to check for
// it and an ordered list of strategies to satisfy it.
type Capability struct {
	// Name identifies the capability, e.g. "assembler"
	Name string

	// Mandatory capabilities abort the run when they cannot be
	// satisfied; optional ones downgrade to warnings
	Mandatory bool

	// Command is the executable probed on PATH
	Command string

	// Alternates are probed in order after Command; the first found
	// wins
	Alternates []string

	// VersionArgs, when set, queries the found executable for a
	// version line used as probe detail
	VersionArgs []string

	// Remediations in declaration order; the resolver picks the
	// first applicable one and never re-orders
	Remediations []Remediation
}

// Remediation is one declared strategy for satisfying a capability.
// Exactly one variant is set.
type Remediation struct {
	// Native maps distro family to package names
	Native map[platform.Family][]string

	// Helper installs through a third-party community helper
	Helper *ThirdPartyHelper

	// Source builds the dependency from a pinned source reference
	Source *BuildFromSource
}

// ThirdPartyHelper describes installation through a community
// repository helper (e.g. an AUR helper). Helpers are probed in
// declared order; the first available one is used.
type ThirdPartyHelper struct {
	Helpers []string
	Package string
}

// BuildFromSource describes a last-resort source build.
type BuildFromSource struct {
	// RepoURL is the git repository to clone
	RepoURL string
	// Ref is the pinned tag or branch
	Ref string
	// BuildCommand is run inside the cloned tree
	BuildCommand []string
	// ArtifactPath is where the build leaves the binary, relative to
	// the cloned tree
	ArtifactPath string
	// InstallAs is the binary name in the canonical bin directory
	InstallAs string
}

// Result of probing one capability.
type Result struct {
	Present bool
	Detail  string
}

// Probe checks whether the capability is present and usable. It never
// mutates state; version queries run under ProbeTimeout and a timeout
// counts as absent.
func (c Capability) Probe(ctx context.Context, runner command.Runner) Result {
	logger := logging.GetLogger("capability")

	candidates := append([]string{c.Command}, c.Alternates...)
	for _, name := range candidates {
		path, err := runner.LookPath(name)
		if err != nil {
			continue
		}

		detail := path
		if len(c.VersionArgs) > 0 {
			probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
			res, err := runner.Run(probeCtx, name, c.VersionArgs...)
			// Read the context state before cancel, which would set it
			// unconditionally.
			timedOut := probeCtx.Err() != nil
			cancel()
			if timedOut {
				logger.Warn().Str("capability", c.Name).Str("command", name).Msg("Probe timed out")
				return Result{Present: false, Detail: name + " probe timed out"}
			}
			// Some tools (jwasm among them) print their banner and
			// exit non-zero on a bare version query; the banner is
			// still the detail we want.
			if line := firstLine(res.Output()); line != "" {
				detail = line
			}
			_ = err
		}

		logger.Debug().Str("capability", c.Name).Str("found", name).Msg("Probe succeeded")
		return Result{Present: true, Detail: detail}
	}

	return Result{Present: false, Detail: strings.Join(candidates, ", ") + " not found on PATH"}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
