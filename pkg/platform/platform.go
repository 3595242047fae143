// Package platform identifies the host environment: CPU architecture
// and distribution family. The resulting Profile is computed exactly
// once per run and treated as immutable by every later stage.
package platform

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/types"
)

// Family classifies the host distribution by package ecosystem.
type Family string

const (
	FamilyArch    Family = "arch"
	FamilyDebian  Family = "debian"
	FamilyFedora  Family = "fedora"
	FamilySuse    Family = "suse"
	FamilyUnknown Family = "unknown"
)

// Arch is the closed set of supported CPU architectures.
type Arch string

const (
	ArchX8664   Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
)

// PackageManager describes how to invoke the family's native package
// manager non-interactively for an install.
type PackageManager struct {
	// Name is the executable, e.g. "apt-get"
	Name string
	// InstallArgs precede the package names, including the
	// assume-yes flag
	InstallArgs []string
}

// Profile is the detected identity of the host. Immutable for the
// lifetime of a run.
type Profile struct {
	// ID is the raw os-release ID value, e.g. "ubuntu"
	ID string
	// Family is the package-ecosystem classification
	Family Family
	// Arch is the CPU architecture
	Arch Arch
	// PackageManager is the family's native package manager;
	// zero-valued for FamilyUnknown
	PackageManager PackageManager
}

const osReleasePath = "/etc/os-release"

// Marker files consulted when os-release is absent or inconclusive.
var markerFiles = map[string]Family{
	"/etc/arch-release":   FamilyArch,
	"/etc/debian_version": FamilyDebian,
	"/etc/fedora-release": FamilyFedora,
	"/etc/SuSE-release":   FamilySuse,
}

var packageManagers = map[Family]PackageManager{
	FamilyArch:   {Name: "pacman", InstallArgs: []string{"-S", "--noconfirm", "--needed"}},
	FamilyDebian: {Name: "apt-get", InstallArgs: []string{"install", "-y"}},
	FamilyFedora: {Name: "dnf", InstallArgs: []string{"install", "-y"}},
	FamilySuse:   {Name: "zypper", InstallArgs: []string{"--non-interactive", "install"}},
}

// Probe inspects the host and returns its Profile. It is a pure
// function of host state: deterministic and free of side effects.
// An architecture outside the supported set is a fatal error.
func Probe(fsys types.FS) (Profile, error) {
	machine, err := unameMachine()
	if err != nil {
		return Profile{}, errors.Wrap(err, errors.ErrInternal, "failed to read kernel machine type")
	}
	return probe(fsys, machine)
}

func probe(fsys types.FS, machine string) (Profile, error) {
	logger := logging.GetLogger("platform")

	arch, err := MapArch(machine)
	if err != nil {
		return Profile{}, err
	}

	id, family := DetectFamily(fsys)
	profile := Profile{
		ID:             id,
		Family:         family,
		Arch:           arch,
		PackageManager: PackageManagerFor(family),
	}

	logger.Info().
		Str("id", id).
		Str("family", string(family)).
		Str("arch", string(arch)).
		Msg("Host environment detected")
	return profile, nil
}

// PackageManagerFor returns the native package manager for a family,
// or the zero value for FamilyUnknown.
func PackageManagerFor(family Family) PackageManager {
	return packageManagers[family]
}

// MapArch maps a kernel machine type into the supported architecture
// set. Anything else is fatal: an unsupported architecture must not
// produce a broken partial install.
func MapArch(machine string) (Arch, error) {
	switch machine {
	case "x86_64", "amd64":
		return ArchX8664, nil
	case "aarch64", "arm64":
		return ArchAarch64, nil
	default:
		return "", errors.Newf(errors.ErrUnsupportedArch,
			"machine type %q is not supported (need x86_64 or aarch64)", machine)
	}
}

// DetectFamily reads /etc/os-release, then distro marker files,
// falling back to FamilyUnknown.
func DetectFamily(fsys types.FS) (string, Family) {
	if data, err := fsys.ReadFile(osReleasePath); err == nil {
		vals := ParseOSRelease(string(data))
		id := vals["ID"]
		if family := classify(id); family != FamilyUnknown {
			return id, family
		}
		for _, like := range strings.Fields(vals["ID_LIKE"]) {
			if family := classify(like); family != FamilyUnknown {
				return id, family
			}
		}
		// Keep the ID for reporting even if unclassified.
		if id != "" {
			if family := probeMarkers(fsys); family != FamilyUnknown {
				return id, family
			}
			return id, FamilyUnknown
		}
	}

	return "", probeMarkers(fsys)
}

func probeMarkers(fsys types.FS) Family {
	// Deterministic order: Debian's marker is the most widely
	// imitated, so check the narrower ones first.
	for _, path := range []string{"/etc/arch-release", "/etc/fedora-release", "/etc/SuSE-release", "/etc/debian_version"} {
		if _, err := fsys.Stat(path); err == nil {
			return markerFiles[path]
		}
	}
	return FamilyUnknown
}

func classify(id string) Family {
	switch strings.ToLower(id) {
	case "arch", "archarm", "manjaro", "endeavouros", "artix":
		return FamilyArch
	case "debian", "ubuntu", "linuxmint", "pop", "raspbian":
		return FamilyDebian
	case "fedora", "rhel", "centos", "rocky", "almalinux":
		return FamilyFedora
	case "opensuse", "opensuse-leap", "opensuse-tumbleweed", "sles", "suse":
		return FamilySuse
	default:
		return FamilyUnknown
	}
}

// ParseOSRelease parses the key=value lines of an os-release file,
// stripping surrounding quotes.
func ParseOSRelease(content string) map[string]string {
	vals := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		vals[parts[0]] = strings.Trim(parts[1], `"'`)
	}
	return vals
}

func unameMachine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
