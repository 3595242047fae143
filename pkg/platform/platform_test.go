// pkg/platform/platform_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Memory FS
// PURPOSE: Test distro family classification and architecture mapping

package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/filesystem"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/types"
)

func fsWithOSRelease(t *testing.T, content string) types.FS {
	t.Helper()
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("/etc/os-release", []byte(content), 0644))
	return fs
}

func TestDetectFamily_OSRelease(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantID     string
		wantFamily platform.Family
	}{
		{
			name:       "debian",
			content:    "ID=debian\nVERSION_CODENAME=bookworm\n",
			wantID:     "debian",
			wantFamily: platform.FamilyDebian,
		},
		{
			name:       "ubuntu_quoted",
			content:    "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n",
			wantID:     "ubuntu",
			wantFamily: platform.FamilyDebian,
		},
		{
			name:       "arch",
			content:    "ID=arch\n",
			wantID:     "arch",
			wantFamily: platform.FamilyArch,
		},
		{
			name:       "manjaro_via_id",
			content:    "ID=manjaro\nID_LIKE=arch\n",
			wantID:     "manjaro",
			wantFamily: platform.FamilyArch,
		},
		{
			name:       "fedora",
			content:    "ID=fedora\n",
			wantID:     "fedora",
			wantFamily: platform.FamilyFedora,
		},
		{
			name:       "tumbleweed",
			content:    "ID=opensuse-tumbleweed\nID_LIKE=\"opensuse suse\"\n",
			wantID:     "opensuse-tumbleweed",
			wantFamily: platform.FamilySuse,
		},
		{
			name:       "unclassified_via_id_like",
			content:    "ID=weirdos\nID_LIKE=\"rhel fedora\"\n",
			wantID:     "weirdos",
			wantFamily: platform.FamilyFedora,
		},
		{
			name:       "fully_unknown",
			content:    "ID=nixos\n",
			wantID:     "nixos",
			wantFamily: platform.FamilyUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, family := platform.DetectFamily(fsWithOSRelease(t, tt.content))
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantFamily, family)
		})
	}
}

func TestDetectFamily_MarkerFallback(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("/etc/debian_version", []byte("12.5\n"), 0644))

	id, family := platform.DetectFamily(fs)
	assert.Empty(t, id)
	assert.Equal(t, platform.FamilyDebian, family)
}

func TestDetectFamily_NothingMatches(t *testing.T) {
	_, family := platform.DetectFamily(filesystem.NewMemory())
	assert.Equal(t, platform.FamilyUnknown, family)
}

func TestMapArch(t *testing.T) {
	tests := []struct {
		machine string
		want    platform.Arch
		wantErr bool
	}{
		{machine: "x86_64", want: platform.ArchX8664},
		{machine: "amd64", want: platform.ArchX8664},
		{machine: "aarch64", want: platform.ArchAarch64},
		{machine: "arm64", want: platform.ArchAarch64},
		{machine: "riscv64", wantErr: true},
		{machine: "i686", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.machine, func(t *testing.T) {
			arch, err := platform.MapArch(tt.machine)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedArch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, arch)
		})
	}
}

func TestPackageManagerFor(t *testing.T) {
	pm := platform.PackageManagerFor(platform.FamilyArch)
	assert.Equal(t, "pacman", pm.Name)
	assert.Contains(t, pm.InstallArgs, "--noconfirm")

	pm = platform.PackageManagerFor(platform.FamilyDebian)
	assert.Equal(t, "apt-get", pm.Name)
	assert.Contains(t, pm.InstallArgs, "-y")

	assert.Empty(t, platform.PackageManagerFor(platform.FamilyUnknown).Name)
}

func TestParseOSRelease(t *testing.T) {
	vals := platform.ParseOSRelease("# comment\nID=\"ubuntu\"\nID_LIKE=debian\n\nBROKEN\n")
	assert.Equal(t, "ubuntu", vals["ID"])
	assert.Equal(t, "debian", vals["ID_LIKE"])
	_, ok := vals["BROKEN"]
	assert.False(t, ok)
}
