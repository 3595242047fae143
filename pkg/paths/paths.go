// Package paths provides centralized path handling for masmide-setup.
// System destinations are fixed canonical locations; user-scoped
// locations follow the XDG Base Directory specification.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvConfigDir overrides the user configuration directory
	EnvConfigDir = "MASMIDE_CONFIG_DIR"

	// EnvStateDir overrides the installer state directory
	EnvStateDir = "MASMIDE_SETUP_STATE_DIR"
)

// Canonical system locations. These are NOT user-configurable: the
// masmide editor resolves its toolchain and data libraries against
// these paths, so the installer and the editor must agree on them.
const (
	// BinDir holds the primary executable and bundled tools
	BinDir = "/usr/local/bin"

	// IrvineLibDir holds the Irvine32 link libraries
	IrvineLibDir = "/usr/local/lib/irvine"

	// IrvineIncDir holds the Irvine32 include files
	IrvineIncDir = "/usr/local/include/irvine"
)

// Well-known file and directory names
const (
	// BinaryName is the primary executable
	BinaryName = "masmide"

	// FormatterName is the bundled formatter, an optional secondary tool
	FormatterName = "masmide-fmt"

	// ConfigFileName is the user configuration document
	ConfigFileName = "config.toml"

	// TemplatesDir is the templates subdirectory of the config dir
	TemplatesDir = "templates"

	// ManifestFileName records what the installer placed on disk
	ManifestFileName = "manifest.yaml"
)

// ConfigDir returns the user-scoped configuration directory for the
// masmide editor (the installer materializes the editor's config).
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, "masmide")
}

// ConfigFilePath returns the path of the user configuration document.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// TemplatesPath returns the user-scoped templates directory.
func TemplatesPath() string {
	return filepath.Join(ConfigDir(), TemplatesDir)
}

// StateDir returns the installer's own state directory.
func StateDir() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.StateHome, "masmide-setup")
}

// ManifestPath returns the path of the install manifest.
func ManifestPath() string {
	return filepath.Join(StateDir(), ManifestFileName)
}

// BinaryPath returns the canonical path of the installed editor binary.
func BinaryPath() string {
	return filepath.Join(BinDir, BinaryName)
}

// FormatterPath returns the canonical path of the bundled formatter.
func FormatterPath() string {
	return filepath.Join(BinDir, FormatterName)
}
