// pkg/capability/capability_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Fake command runner
// PURPOSE: Test capability probing and catalog parsing

package capability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/platform"
)

func TestProbe_NotFound(t *testing.T) {
	runner := command.NewFake()
	cap := capability.Capability{Name: "assembler", Command: "jwasm"}

	result := cap.Probe(context.Background(), runner)
	assert.False(t, result.Present)
	assert.Contains(t, result.Detail, "jwasm")
}

func TestProbe_FoundWithVersion(t *testing.T) {
	runner := command.NewFake()
	runner.AddPath("wine")
	runner.Script("wine", command.FakeResponse{
		Result: command.Result{Stdout: "wine-9.0\n"},
	})

	cap := capability.Capability{Name: "binary-runner", Command: "wine", VersionArgs: []string{"--version"}}
	result := cap.Probe(context.Background(), runner)

	assert.True(t, result.Present)
	assert.Equal(t, "wine-9.0", result.Detail)
}

func TestProbe_AlternatesInOrder(t *testing.T) {
	runner := command.NewFake()
	runner.AddPath("x86_64-w64-mingw32-ld")

	cap := capability.Capability{
		Name:       "pe-linker",
		Command:    "i686-w64-mingw32-ld",
		Alternates: []string{"x86_64-w64-mingw32-ld"},
	}
	result := cap.Probe(context.Background(), runner)

	assert.True(t, result.Present)
	assert.Contains(t, result.Detail, "x86_64-w64-mingw32-ld")
}

func TestProbe_NonZeroVersionQueryStillPresent(t *testing.T) {
	// jwasm prints its banner and exits non-zero on "-?".
	runner := command.NewFake()
	runner.AddPath("jwasm")
	runner.Script("jwasm", command.FakeResponse{
		Result: command.Result{Stdout: "JWasm v2.19, Masm-compatible assembler.\n", ExitCode: 1},
		Err:    assert.AnError,
	})

	cap := capability.Capability{Name: "assembler", Command: "jwasm", VersionArgs: []string{"-?"}}
	result := cap.Probe(context.Background(), runner)

	assert.True(t, result.Present)
	assert.Contains(t, result.Detail, "JWasm v2.19")
}

// hangingRunner answers LookPath but blocks every Run until the
// probe's context expires.
type hangingRunner struct {
	*command.Fake
}

func (h hangingRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	<-ctx.Done()
	return command.Result{}, ctx.Err()
}

func TestProbe_HungVersionQueryReportsAbsent(t *testing.T) {
	old := capability.ProbeTimeout
	capability.ProbeTimeout = 10 * time.Millisecond
	defer func() { capability.ProbeTimeout = old }()

	fake := command.NewFake()
	fake.AddPath("wine")

	cap := capability.Capability{Name: "binary-runner", Command: "wine", VersionArgs: []string{"--version"}}
	result := cap.Probe(context.Background(), hangingRunner{fake})

	assert.False(t, result.Present)
	assert.Contains(t, result.Detail, "timed out")
}

func TestCatalog(t *testing.T) {
	caps, err := capability.Catalog()
	require.NoError(t, err)
	require.Len(t, caps, 4)

	byName := make(map[string]capability.Capability, len(caps))
	for _, c := range caps {
		byName[c.Name] = c
	}

	assembler, ok := byName["assembler"]
	require.True(t, ok)
	require.Len(t, assembler.Remediations, 3)

	// Declaration order: native, then helper, then source.
	native := assembler.Remediations[0]
	require.NotNil(t, native.Native)
	assert.Equal(t, []string{"jwasm"}, native.Native[platform.FamilyDebian])
	_, hasArch := native.Native[platform.FamilyArch]
	assert.False(t, hasArch, "jwasm has no native Arch package, only AUR")

	helper := assembler.Remediations[1]
	require.NotNil(t, helper.Helper)
	assert.Equal(t, []string{"yay", "paru", "trizen"}, helper.Helper.Helpers)
	assert.Equal(t, "jwasm", helper.Helper.Package)

	source := assembler.Remediations[2]
	require.NotNil(t, source.Source)
	assert.Equal(t, "v2.19", source.Source.Ref)
	assert.Equal(t, "jwasm", source.Source.InstallAs)

	linker, ok := byName["pe-linker"]
	require.True(t, ok)
	assert.Equal(t, "i686-w64-mingw32-ld", linker.Command)
	require.Len(t, linker.Remediations, 1)
	assert.Contains(t, linker.Remediations[0].Native, platform.FamilyArch)

	runnerCap, ok := byName["binary-runner"]
	require.True(t, ok)
	assert.Equal(t, "wine", runnerCap.Command)

	toolchain, ok := byName["source-toolchain"]
	require.True(t, ok)
	assert.Equal(t, []string{"base-devel", "git"}, toolchain.Remediations[0].Native[platform.FamilyArch])
}
