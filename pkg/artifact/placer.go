package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/privilege"
	"github.com/masmide/setup/pkg/types"
)

// Placer performs the filesystem mutations of artifact placement and
// removal. The logic of what to place stays in the installer; how the
// bytes land on disk depends on whether the process owns the
// destination (direct filesystem calls) or elevates per operation
// (sudo-prefixed commands).
type Placer interface {
	MkdirAll(path string, mode fs.FileMode) error
	CopyFile(src, dest string, mode fs.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
}

// fsPlacer writes through a types.FS. Used when the process can write
// the destinations directly, and by tests against a memory FS.
type fsPlacer struct {
	fs types.FS
}

// NewFSPlacer returns a Placer backed by direct filesystem calls.
func NewFSPlacer(fsys types.FS) Placer {
	return &fsPlacer{fs: fsys}
}

func (p *fsPlacer) MkdirAll(path string, mode fs.FileMode) error {
	return p.fs.MkdirAll(path, mode)
}

func (p *fsPlacer) CopyFile(src, dest string, mode fs.FileMode) error {
	data, err := p.fs.ReadFile(src)
	if err != nil {
		return err
	}
	if err := p.fs.WriteFile(dest, data, mode); err != nil {
		return err
	}
	// WriteFile permissions only apply on creation; overwrite must
	// still converge on the declared mode.
	return p.fs.Chmod(dest, mode)
}

func (p *fsPlacer) Remove(path string) error {
	return p.fs.Remove(path)
}

func (p *fsPlacer) RemoveAll(path string) error {
	return p.fs.RemoveAll(path)
}

// sudoPlacer routes every mutation through the privilege token's
// command prefix. Sources are read by the spawned command, not this
// process, so unreadable-by-user sources still work.
type sudoPlacer struct {
	runner command.Runner
	token  *privilege.Token
}

// NewSudoPlacer returns a Placer that performs each operation through
// an elevated external command.
func NewSudoPlacer(runner command.Runner, token *privilege.Token) Placer {
	return &sudoPlacer{runner: runner, token: token}
}

func (p *sudoPlacer) run(args ...string) error {
	name, argv := p.token.Command(args[0], args[1:]...)
	res, err := p.runner.Run(context.Background(), name, argv...)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "%s failed", args[0]).
			WithDetail("output", res.Output())
	}
	return nil
}

func (p *sudoPlacer) MkdirAll(path string, mode fs.FileMode) error {
	return p.run("install", "-d", "-m", octal(mode), path)
}

func (p *sudoPlacer) CopyFile(src, dest string, mode fs.FileMode) error {
	return p.run("install", "-m", octal(mode), src, dest)
}

func (p *sudoPlacer) Remove(path string) error {
	return p.run("rm", "-f", path)
}

func (p *sudoPlacer) RemoveAll(path string) error {
	if path == "/" || filepath.Clean(path) == "/" {
		return errors.New(errors.ErrFileRemove, "refusing to remove /")
	}
	return p.run("rm", "-rf", path)
}

func octal(mode fs.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}
