// pkg/resolve/resolve_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Fake command runner, embedded catalog
// PURPOSE: Test remediation selection, batching, and unresolved reporting

package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/resolve"
)

func catalog(t *testing.T) []capability.Capability {
	t.Helper()
	caps, err := capability.Catalog()
	require.NoError(t, err)
	return caps
}

func profileFor(family platform.Family) platform.Profile {
	return platform.Profile{
		Family:         family,
		Arch:           platform.ArchX8664,
		PackageManager: platform.PackageManagerFor(family),
	}
}

func TestResolve_NativeOnly_PackageListMatchesFamilyDeclaration(t *testing.T) {
	tests := []struct {
		family platform.Family
		want   []string
	}{
		// Package order follows capability declaration order within
		// the catalog: pe-linker, then binary-runner.
		{platform.FamilyDebian, []string{"binutils-mingw-w64-i686", "gcc-mingw-w64-i686", "wine"}},
		{platform.FamilyArch, []string{"mingw-w64-gcc", "wine"}},
		{platform.FamilyFedora, []string{"mingw32-binutils", "mingw32-gcc", "wine"}},
		{platform.FamilySuse, []string{"mingw32-cross-binutils", "mingw32-cross-gcc", "wine"}},
	}

	all := catalog(t)
	var nativeOnly []capability.Capability
	for _, c := range all {
		if c.Name == "pe-linker" || c.Name == "binary-runner" {
			nativeOnly = append(nativeOnly, c)
		}
	}
	require.Len(t, nativeOnly, 2)

	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			plan := resolve.Resolve(context.Background(), command.NewFake(), nativeOnly, profileFor(tt.family), resolve.Options{})

			require.Len(t, plan.Steps, 1)
			require.Equal(t, resolve.StepPackageBatch, plan.Steps[0].Kind)
			assert.Equal(t, tt.want, plan.Steps[0].Packages)
			assert.Empty(t, plan.Unresolved)
		})
	}
}

func TestResolve_BatchesAllNativeIntoOneInvocation(t *testing.T) {
	plan := resolve.Resolve(context.Background(), command.NewFake(), catalog(t), profileFor(platform.FamilyDebian), resolve.Options{})

	batches := 0
	for _, s := range plan.Steps {
		if s.Kind == resolve.StepPackageBatch {
			batches++
			assert.ElementsMatch(t, []string{"assembler", "pe-linker", "binary-runner", "source-toolchain"}, s.Capabilities)
		}
	}
	assert.Equal(t, 1, batches)
	assert.Empty(t, plan.Unresolved)
}

func TestResolve_ArchAssembler_HelperPresent(t *testing.T) {
	runner := command.NewFake()
	runner.AddPath("paru")

	plan := resolve.Resolve(context.Background(), runner, catalog(t), profileFor(platform.FamilyArch), resolve.Options{})

	var helperStep *resolve.Step
	for i := range plan.Steps {
		if plan.Steps[i].Kind == resolve.StepHelperInstall {
			helperStep = &plan.Steps[i]
		}
	}
	require.NotNil(t, helperStep, "assembler should resolve through the AUR helper")
	assert.Equal(t, "paru", helperStep.Helper)
	assert.Equal(t, "jwasm", helperStep.HelperPackage)
	assert.Empty(t, plan.Unresolved)
}

func TestResolve_ArchAssembler_NoHelper_Unresolved(t *testing.T) {
	// Scenario: Arch host, assembler only available via AUR, no AUR
	// helper installed. The capability is unresolved, not silently
	// retried as a source build.
	plan := resolve.Resolve(context.Background(), command.NewFake(), catalog(t), profileFor(platform.FamilyArch), resolve.Options{})

	require.Len(t, plan.Unresolved, 1)
	assert.Equal(t, "assembler", plan.Unresolved[0].Capability)
	assert.Contains(t, plan.Unresolved[0].Reason, "yay, paru, trizen")
	assert.False(t, plan.HasSourceBuilds())
}

func TestResolve_ArchAssembler_BuildFallback(t *testing.T) {
	plan := resolve.Resolve(context.Background(), command.NewFake(), catalog(t), profileFor(platform.FamilyArch), resolve.Options{BuildFallback: true})

	require.True(t, plan.HasSourceBuilds())
	assert.Empty(t, plan.Unresolved)

	var source *capability.BuildFromSource
	for _, s := range plan.Steps {
		if s.Kind == resolve.StepSourceBuild {
			source = s.Source
		}
	}
	require.NotNil(t, source)
	assert.Equal(t, "v2.19", source.Ref)
}

func TestResolve_UnknownFamily_AllUnresolvedButNotFatal(t *testing.T) {
	plan := resolve.Resolve(context.Background(), command.NewFake(), catalog(t), profileFor(platform.FamilyUnknown), resolve.Options{})

	assert.Empty(t, plan.Steps)
	require.Len(t, plan.Unresolved, 4)

	mandatory := make(map[string]bool)
	for _, u := range plan.Unresolved {
		assert.NotEmpty(t, u.Reason)
		mandatory[u.Capability] = u.Mandatory
	}
	// Unresolved mandatory capabilities still only warn; the verify
	// subcommand is what turns them into a non-zero exit.
	assert.True(t, mandatory["assembler"])
	assert.True(t, mandatory["pe-linker"])
	assert.False(t, mandatory["binary-runner"])
	assert.False(t, mandatory["source-toolchain"])
}

func TestResolve_SourceOnlyCapability(t *testing.T) {
	caps := []capability.Capability{{
		Name:    "assembler",
		Command: "jwasm",
		Remediations: []capability.Remediation{{
			Source: &capability.BuildFromSource{
				RepoURL:      "https://example.com/jwasm.git",
				Ref:          "v2.19",
				BuildCommand: []string{"make"},
				ArtifactPath: "jwasm",
				InstallAs:    "jwasm",
			},
		}},
	}}

	plan := resolve.Resolve(context.Background(), command.NewFake(), caps, profileFor(platform.FamilyUnknown), resolve.Options{})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, resolve.StepSourceBuild, plan.Steps[0].Kind)
	assert.True(t, plan.HasSourceBuilds())
}
