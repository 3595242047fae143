// Package configfile materializes the editor's default user
// configuration. An existing document is sacrosanct: it is never
// overwritten, and the write itself is atomic so an interrupted run
// cannot leave a truncated file behind.
package configfile

import (
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/paths"
	"github.com/masmide/setup/pkg/types"
)

// LinkerCandidates are probed in order when populating the toolchain
// section; the first one found on PATH wins, and the first candidate
// is the best-guess default when none are found. The i686 spellings
// come first because Irvine32 programs are 32-bit PE binaries.
var LinkerCandidates = []string{
	"i686-w64-mingw32-ld",
	"x86_64-w64-mingw32-ld",
	"i686-w64-mingw32-gcc",
	"x86_64-w64-mingw32-gcc",
}

// Document is the editor's configuration document. Field names match
// what the masmide editor itself reads; unknown keys in an existing
// file are ignored on load, never rejected.
type Document struct {
	ThemeName string    `toml:"theme_name"`
	Toolchain Toolchain `toml:"toolchain"`
	Editor    Editor    `toml:"editor"`
	Layout    Layout    `toml:"layout"`
}

// Toolchain holds the external tool paths the editor invokes.
type Toolchain struct {
	JwasmPath     string `toml:"jwasm_path"`
	LinkerPath    string `toml:"linker_path"`
	WinePath      string `toml:"wine_path"`
	IrvineLibPath string `toml:"irvine_lib_path"`
	IrvineIncPath string `toml:"irvine_inc_path"`
}

// Editor holds editing preferences.
type Editor struct {
	TabSize              int  `toml:"tab_size"`
	InsertSpaces         bool `toml:"insert_spaces"`
	AutoIndent           bool `toml:"auto_indent"`
	ShowLineNumbers      bool `toml:"show_line_numbers"`
	Autosave             bool `toml:"autosave"`
	AutosaveIntervalSecs int  `toml:"autosave_interval_secs"`
}

// Layout holds panel sizing.
type Layout struct {
	FileTreeWidth    int `toml:"file_tree_width"`
	OutputHeight     int `toml:"output_height"`
	FileTreeMinWidth int `toml:"file_tree_min_width"`
	FileTreeMaxWidth int `toml:"file_tree_max_width"`
	OutputMinHeight  int `toml:"output_min_height"`
	OutputMaxHeight  int `toml:"output_max_height"`
}

// Default builds the default document, probing the environment for
// the linker binary name actually present on this host.
func Default(runner command.Runner) Document {
	return Document{
		ThemeName: "gruvbox",
		Toolchain: Toolchain{
			JwasmPath:     "jwasm",
			LinkerPath:    detectLinker(runner),
			WinePath:      "wine",
			IrvineLibPath: paths.IrvineLibDir,
			IrvineIncPath: paths.IrvineIncDir,
		},
		Editor: Editor{
			TabSize:              4,
			InsertSpaces:         true,
			AutoIndent:           true,
			ShowLineNumbers:      true,
			Autosave:             true,
			AutosaveIntervalSecs: 30,
		},
		Layout: Layout{
			FileTreeWidth:    22,
			OutputHeight:     16,
			FileTreeMinWidth: 15,
			FileTreeMaxWidth: 50,
			OutputMinHeight:  5,
			OutputMaxHeight:  40,
		},
	}
}

func detectLinker(runner command.Runner) string {
	for _, candidate := range LinkerCandidates {
		if _, err := runner.LookPath(candidate); err == nil {
			return candidate
		}
	}
	// Still written with a best-guess value; the editor reports a
	// clear error if the guess turns out wrong.
	return LinkerCandidates[0]
}

// Materialize writes the default document to targetPath unless a file
// already exists there. Returns whether a file was written.
func Materialize(fsys types.FS, runner command.Runner, targetPath string) (bool, error) {
	logger := logging.GetLogger("configfile")

	if _, err := fsys.Stat(targetPath); err == nil {
		logger.Info().Str("path", targetPath).Msg("Configuration already exists, leaving untouched")
		return false, nil
	}

	doc := Default(runner)
	data, err := toml.Marshal(doc)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrConfigWrite, "failed to serialize configuration")
	}

	if err := fsys.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return false, errors.Wrap(err, errors.ErrDirCreate, "failed to create configuration directory")
	}

	// Atomic: write a sibling temp file, then rename into place.
	tmpPath := targetPath + ".tmp"
	if err := fsys.WriteFile(tmpPath, data, 0644); err != nil {
		return false, errors.Wrap(err, errors.ErrConfigWrite, "failed to write configuration")
	}
	if err := fsys.Rename(tmpPath, targetPath); err != nil {
		_ = fsys.Remove(tmpPath)
		return false, errors.Wrap(err, errors.ErrConfigWrite, "failed to move configuration into place")
	}

	logger.Info().Str("path", targetPath).Str("linker", doc.Toolchain.LinkerPath).Msg("Default configuration written")
	return true, nil
}

// Load reads an existing configuration document. Unknown keys are
// preserved by the format contract and simply ignored here.
func Load(fsys types.FS, path string) (*Document, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to read configuration")
	}
	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse configuration")
	}
	return &doc, nil
}
