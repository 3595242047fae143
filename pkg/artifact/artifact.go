// Package artifact copies the primary binary and its bundled support
// files into canonical system paths. Installation is idempotent:
// re-running with the same inputs overwrites in place and converges
// on the same files and permissions.
package artifact

import (
	"io/fs"
	"path/filepath"

	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/types"
)

// Spec declares one artifact to place.
type Spec struct {
	// Name for messages, e.g. "editor binary"
	Name string

	// Source path inside the extracted archive
	Source string

	// Dest is the canonical destination: a file path for file specs,
	// a directory for directory specs
	Dest string

	// Mode applied to every placed file
	Mode fs.FileMode

	// Optional artifacts are skipped with a warning when the source
	// is missing; a missing mandatory artifact is fatal
	Optional bool

	// Dir marks a directory spec: files matching Pattern under
	// Source are copied into Dest. Zero matches is not an error;
	// some archives omit optional file groups.
	Dir bool

	// Pattern filters directory specs; empty means every file
	Pattern string
}

// Warning records a non-fatal installation condition.
type Warning struct {
	Artifact string
	Detail   string
}

// Install places each artifact. The source side is read through fsys
// (the extraction directory); writes go through the placer. Returns
// the paths it placed, for the install manifest.
func Install(fsys types.FS, placer Placer, specs []Spec) (*Manifest, []Warning, error) {
	logger := logging.GetLogger("artifact")
	manifest := &Manifest{}
	var warnings []Warning

	for _, spec := range specs {
		info, err := fsys.Stat(spec.Source)
		if err != nil {
			if spec.Optional {
				logger.Warn().Str("artifact", spec.Name).Str("source", spec.Source).Msg("Optional artifact missing, skipping")
				warnings = append(warnings, Warning{
					Artifact: spec.Name,
					Detail:   "not present in archive, skipped",
				})
				continue
			}
			return nil, warnings, errors.Wrapf(err, errors.ErrArtifactMissing,
				"mandatory artifact %q missing from archive", spec.Name).
				WithDetail("source", spec.Source)
		}

		if spec.Dir {
			if !info.IsDir() {
				return nil, warnings, errors.Newf(errors.ErrArtifactMissing,
					"artifact %q: expected a directory at %s", spec.Name, spec.Source)
			}
			if err := installDir(fsys, placer, spec, manifest); err != nil {
				return nil, warnings, err
			}
		} else {
			if err := installFile(placer, spec, manifest); err != nil {
				return nil, warnings, err
			}
		}

		logger.Info().Str("artifact", spec.Name).Str("dest", spec.Dest).Msg("Artifact installed")
	}

	return manifest, warnings, nil
}

func installFile(placer Placer, spec Spec, manifest *Manifest) error {
	if err := placer.MkdirAll(filepath.Dir(spec.Dest), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create directory for %q", spec.Name)
	}
	if err := placer.CopyFile(spec.Source, spec.Dest, spec.Mode); err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to install %q", spec.Name)
	}
	manifest.Files = append(manifest.Files, spec.Dest)
	return nil
}

func installDir(fsys types.FS, placer Placer, spec Spec, manifest *Manifest) error {
	pattern := spec.Pattern
	if pattern == "" {
		pattern = "*"
	}

	matches, err := fsys.Glob(filepath.Join(spec.Source, pattern))
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to scan %q", spec.Name)
	}

	if err := placer.MkdirAll(spec.Dest, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", spec.Dest)
	}
	manifest.Dirs = append(manifest.Dirs, spec.Dest)

	for _, match := range matches {
		info, err := fsys.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		dest := filepath.Join(spec.Dest, filepath.Base(match))
		if err := placer.CopyFile(match, dest, spec.Mode); err != nil {
			return errors.Wrapf(err, errors.ErrFileCopy, "failed to install %s", dest)
		}
	}
	return nil
}
