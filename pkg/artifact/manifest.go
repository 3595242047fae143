package artifact

import (
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/types"
)

// Manifest records exactly what the installer placed on disk. The
// uninstall planner removes only paths listed here, never anything it
// cannot prove it owns.
type Manifest struct {
	Version     string    `yaml:"version,omitempty"`
	InstalledAt time.Time `yaml:"installed_at,omitempty"`
	Files       []string  `yaml:"files,omitempty"`
	Dirs        []string  `yaml:"dirs,omitempty"`
}

// Save writes the manifest to path as YAML.
func (m *Manifest) Save(fsys types.FS, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to serialize install manifest")
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create state directory")
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to write install manifest")
	}
	return nil
}

// LoadManifest reads a manifest written by a previous install.
func LoadManifest(fsys types.FS, path string) (*Manifest, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "no install manifest found; was masmide installed by this tool?")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse install manifest")
	}
	return &m, nil
}
