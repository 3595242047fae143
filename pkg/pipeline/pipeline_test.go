// pkg/pipeline/pipeline_test.go
// TEST TYPE: Integration Test (in-memory)
// DEPENDENCIES: Memory FS, Fake command runner, fake release fetcher
// PURPOSE: Test the end-to-end install scenarios: fresh Debian host,
// Arch host with an AUR-only assembler, and an already-provisioned host

package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/masmide/setup/pkg/artifact"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/filesystem"
	"github.com/masmide/setup/pkg/paths"
	"github.com/masmide/setup/pkg/pipeline"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/privilege"
	"github.com/masmide/setup/pkg/prompt"
	"github.com/masmide/setup/pkg/resolve"
	"github.com/masmide/setup/pkg/types"
)

// simRunner fakes package installation: running a package manager
// registers the binaries it would have provided on the fake PATH, so
// the post-install audit sees them.
type simRunner struct {
	*command.Fake
	provides map[string][]string
}

func (r *simRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	if bins, ok := r.provides[name]; ok {
		for _, b := range bins {
			r.AddPath(b)
		}
	}
	return r.Fake.Run(ctx, name, args...)
}

// fakeFetcher materializes a plausible extracted archive in the memory
// FS instead of touching the network.
type fakeFetcher struct {
	fs           types.FS
	version      string
	resolveCalls int
	fetchCalls   int
}

func (f *fakeFetcher) ResolveVersion(ctx context.Context) (string, error) {
	f.resolveCalls++
	return f.version, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, version string, arch platform.Arch, workDir string) (string, error) {
	f.fetchCalls++
	root := workDir + "/masmide-" + version
	if err := f.fs.MkdirAll(root+"/bin", 0755); err != nil {
		return "", err
	}
	if err := f.fs.WriteFile(root+"/bin/masmide", []byte("elf "+version), 0755); err != nil {
		return "", err
	}
	if err := f.fs.MkdirAll(root+"/lib/irvine", 0755); err != nil {
		return "", err
	}
	if err := f.fs.WriteFile(root+"/lib/irvine/Irvine32.lib", []byte("lib32"), 0644); err != nil {
		return "", err
	}
	return root, nil
}

func testEnv(t *testing.T, osRelease string) (types.FS, *simRunner) {
	t.Helper()
	t.Setenv(paths.EnvConfigDir, "/home/user/.config/masmide")
	t.Setenv(paths.EnvStateDir, "/home/user/.local/state/masmide-setup")

	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/etc", 0755))
	require.NoError(t, fs.WriteFile("/etc/os-release", []byte(osRelease), 0644))
	require.NoError(t, fs.MkdirAll("/work", 0755))

	runner := &simRunner{Fake: command.NewFake(), provides: map[string][]string{}}
	runner.AddPath("tar")
	return fs, runner
}

func baseOptions(fs types.FS, runner command.Runner, fetcher pipeline.Fetcher) pipeline.Options {
	return pipeline.Options{
		Runner:       runner,
		FS:           fs,
		Fetcher:      fetcher,
		Confirmer:    &prompt.Scripted{Answers: []bool{true}},
		Privilege:    privilege.Options{Elevated: func() bool { return true }},
		SystemPlacer: artifact.NewFSPlacer(fs),
		WorkDir:      "/work",
	}
}

func TestInstall_ScenarioFreshDebianHost(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	runner.provides["apt-get"] = []string{"jwasm", "i686-w64-mingw32-ld", "wine", "cc", "git"}
	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}

	opts := baseOptions(fs, runner, fetcher)
	opts.Version = "v0.4.2"

	result, err := pipeline.Install(context.Background(), opts)
	require.NoError(t, err)

	// One batched package-manager invocation covering every capability,
	// package names in declaration order.
	require.Len(t, result.Plan.Steps, 1)
	batch := result.Plan.Steps[0]
	assert.Equal(t, resolve.StepPackageBatch, batch.Kind)
	assert.Equal(t, []string{
		"jwasm",
		"binutils-mingw-w64-i686", "gcc-mingw-w64-i686",
		"wine",
		"build-essential", "git",
	}, batch.Packages)
	assert.True(t, runner.CalledWith("apt-get", "install", "-y"))

	// Pinned version: the registry is never asked for the latest tag.
	assert.Equal(t, 0, fetcher.resolveCalls)
	assert.Equal(t, "v0.4.2", result.Version)

	data, err := fs.ReadFile("/usr/local/bin/masmide")
	require.NoError(t, err)
	assert.Equal(t, "elf v0.4.2", string(data))

	assert.True(t, result.Report.AllSatisfied)
	assert.Empty(t, result.Plan.Unresolved)

	manifest, err := artifact.LoadManifest(fs, paths.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, "v0.4.2", manifest.Version)
	assert.Contains(t, manifest.Files, "/usr/local/bin/masmide")
}

func TestInstall_ScenarioArchWithoutAURHelper(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=arch\n")
	// pacman provides everything except the AUR-only assembler.
	runner.provides["pacman"] = []string{"i686-w64-mingw32-ld", "wine", "cc", "git"}
	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}

	result, err := pipeline.Install(context.Background(), baseOptions(fs, runner, fetcher))
	require.NoError(t, err)

	// The assembler is unresolved but the primary artifact still lands.
	require.Len(t, result.Plan.Unresolved, 1)
	assert.Equal(t, "assembler", result.Plan.Unresolved[0].Capability)

	_, err = fs.Stat("/usr/local/bin/masmide")
	require.NoError(t, err, "primary artifact must install despite the unresolved assembler")

	assert.False(t, result.Report.AllSatisfied)
	assert.Equal(t, []string{"assembler"}, result.Report.Unresolved())
}

func TestInstall_ScenarioAlreadyProvisioned(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	for _, bin := range []string{"jwasm", "i686-w64-mingw32-ld", "wine", "cc"} {
		runner.AddPath(bin)
	}
	require.NoError(t, fs.MkdirAll("/home/user/.config/masmide", 0755))
	existingConfig := []byte("theme_name = \"solarized\"\n")
	require.NoError(t, fs.WriteFile(paths.ConfigFilePath(), existingConfig, 0644))
	require.NoError(t, fs.MkdirAll("/usr/local/bin", 0755))
	require.NoError(t, fs.WriteFile("/usr/local/bin/masmide", []byte("elf v0.4.2"), 0755))

	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}
	confirmer := &prompt.Scripted{Answers: []bool{true}}
	opts := baseOptions(fs, runner, fetcher)
	opts.Confirmer = confirmer

	result, err := pipeline.Install(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, result.Plan.Steps, "nothing to remediate")
	assert.True(t, result.Report.AllSatisfied)

	// Re-install overwrote the binary with identical bytes.
	data, err := fs.ReadFile("/usr/local/bin/masmide")
	require.NoError(t, err)
	assert.Equal(t, "elf v0.4.2", string(data))

	// Existing config untouched.
	cfg, err := fs.ReadFile(paths.ConfigFilePath())
	require.NoError(t, err)
	assert.Equal(t, existingConfig, cfg)

	// Exactly the one top-level confirmation, nothing else.
	require.Len(t, confirmer.Requests, 1)
	assert.Equal(t, "Proceed with installation?", confirmer.Requests[0].Title)
}

func TestInstall_DryRunStopsBeforeAnyMutation(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}
	confirmer := &prompt.Scripted{}

	opts := baseOptions(fs, runner, fetcher)
	opts.Confirmer = confirmer
	opts.DryRun = true

	result, err := pipeline.Install(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.NotEmpty(t, result.Plan.Steps)

	assert.Empty(t, confirmer.Requests, "dry run must not prompt")
	assert.Equal(t, 0, fetcher.fetchCalls)
	assert.False(t, runner.CalledWith("apt-get"), "dry run must not install packages")
	_, err = fs.Stat("/usr/local/bin/masmide")
	assert.Error(t, err)
}

func TestInstall_DeclinedConfirmationCancelsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}

	opts := baseOptions(fs, runner, fetcher)
	opts.Confirmer = &prompt.Scripted{Answers: []bool{false}}

	result, err := pipeline.Install(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, fetcher.fetchCalls)
	_, err = fs.Stat("/usr/local/bin/masmide")
	assert.Error(t, err)
}

func TestInstall_MissingTarIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, _ := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	runner := command.NewFake() // no tar on PATH
	fetcher := &fakeFetcher{fs: fs, version: "v0.4.2"}

	_, err := pipeline.Install(context.Background(), baseOptions(fs, runner, fetcher))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tar")
}

func TestInstall_LatestVersionResolvedWhenUnpinned(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs, runner := testEnv(t, "ID=ubuntu\nID_LIKE=debian\n")
	runner.provides["apt-get"] = []string{"jwasm", "i686-w64-mingw32-ld", "wine", "cc"}
	fetcher := &fakeFetcher{fs: fs, version: "v0.5.0"}

	result, err := pipeline.Install(context.Background(), baseOptions(fs, runner, fetcher))
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.resolveCalls)
	assert.Equal(t, "v0.5.0", result.Version)
}
