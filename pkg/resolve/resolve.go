// Package resolve maps unmet capabilities to an ordered install plan.
// The plan is built once, executed once, and never mutated
// mid-execution.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/platform"
)

// StepKind discriminates plan steps.
type StepKind string

const (
	// StepPackageBatch installs native packages, batched into one
	// package-manager invocation per run
	StepPackageBatch StepKind = "package-batch"

	// StepHelperInstall installs through a third-party helper
	StepHelperInstall StepKind = "helper-install"

	// StepSourceBuild builds a dependency from source
	StepSourceBuild StepKind = "source-build"
)

// Step is one resolved remediation action.
type Step struct {
	Kind StepKind

	// Capabilities this step satisfies (a package batch can cover
	// several)
	Capabilities []string

	// Packages for StepPackageBatch, in declaration order
	Packages []string

	// Helper and HelperPackage for StepHelperInstall
	Helper        string
	HelperPackage string

	// Source for StepSourceBuild
	Source *capability.BuildFromSource
}

// Unresolved records a capability no remediation could satisfy on
// this host. It is surfaced as a warning, never an abort, unless the
// capability is mandatory.
type Unresolved struct {
	Capability string
	Mandatory  bool
	Reason     string
}

// Plan is the ordered set of remediation actions chosen for a run.
type Plan struct {
	Steps      []Step
	Unresolved []Unresolved
}

// HasSourceBuilds reports whether any step builds from source, which
// makes git and a compiler toolchain hard prerequisites.
func (p *Plan) HasSourceBuilds() bool {
	for _, s := range p.Steps {
		if s.Kind == StepSourceBuild {
			return true
		}
	}
	return false
}

// Options tunes resolution.
type Options struct {
	// BuildFallback lets a capability fall through to a declared
	// BuildFromSource remediation after a helper-mediated one turned
	// out unavailable. Off by default: a failed or unavailable
	// earlier remediation never silently retries as a source build.
	BuildFallback bool
}

// Resolve selects, for each missing capability, the first remediation
// applicable to the profile's family. Native-package selections for
// the same family are batched into a single package-manager
// invocation to minimize elevation prompts and metadata refreshes.
func Resolve(ctx context.Context, runner command.Runner, missing []capability.Capability, profile platform.Profile, opts Options) *Plan {
	logger := logging.GetLogger("resolve")
	plan := &Plan{}

	var batchPackages []string
	var batchCapabilities []string
	var tail []Step

	for _, cap := range missing {
		selected := false
		helperMiss := ""

		for _, rem := range cap.Remediations {
			switch {
			case rem.Native != nil:
				pkgs, ok := rem.Native[profile.Family]
				if !ok {
					continue
				}
				batchCapabilities = append(batchCapabilities, cap.Name)
				batchPackages = appendUnique(batchPackages, pkgs)
				selected = true

			case rem.Helper != nil:
				helper := firstAvailable(runner, rem.Helper.Helpers)
				if helper == "" {
					helperMiss = fmt.Sprintf("no helper available (tried %s)",
						strings.Join(rem.Helper.Helpers, ", "))
					// Falling through to a source build is explicit
					// opt-in only.
					if !opts.BuildFallback {
						break
					}
					continue
				}
				tail = append(tail, Step{
					Kind:          StepHelperInstall,
					Capabilities:  []string{cap.Name},
					Helper:        helper,
					HelperPackage: rem.Helper.Package,
				})
				selected = true

			case rem.Source != nil:
				tail = append(tail, Step{
					Kind:         StepSourceBuild,
					Capabilities: []string{cap.Name},
					Source:       rem.Source,
				})
				selected = true
			}

			if selected || (helperMiss != "" && !opts.BuildFallback) {
				break
			}
		}

		if !selected {
			reason := helperMiss
			if reason == "" {
				reason = fmt.Sprintf("no remediation declared for family %q", profile.Family)
			}
			logger.Warn().
				Str("capability", cap.Name).
				Str("reason", reason).
				Msg("Capability unresolved, manual installation required")
			plan.Unresolved = append(plan.Unresolved, Unresolved{
				Capability: cap.Name,
				Mandatory:  cap.Mandatory,
				Reason:     reason,
			})
		}
	}

	if len(batchPackages) > 0 {
		plan.Steps = append(plan.Steps, Step{
			Kind:         StepPackageBatch,
			Capabilities: batchCapabilities,
			Packages:     batchPackages,
		})
	}
	plan.Steps = append(plan.Steps, tail...)

	logger.Info().
		Int("steps", len(plan.Steps)).
		Int("unresolved", len(plan.Unresolved)).
		Msg("Install plan resolved")
	return plan
}

// firstAvailable probes candidate helper tools in declared order and
// returns the first present on PATH, or "".
func firstAvailable(runner command.Runner, helpers []string) string {
	for _, h := range helpers {
		if _, err := runner.LookPath(h); err == nil {
			return h
		}
	}
	return ""
}

func appendUnique(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
