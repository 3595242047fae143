// Package release talks to the remote release registry: it resolves
// the latest version tag, downloads the architecture-specific archive,
// and locates the extraction root. The registry itself is a black box
// behind plain HTTP.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/errors"
	"github.com/masmide/setup/pkg/logging"
	"github.com/masmide/setup/pkg/platform"
	"github.com/masmide/setup/pkg/types"
)

const (
	defaultAPIBase      = "https://api.github.com"
	defaultDownloadBase = "https://github.com"
	defaultRepo         = "masmide/masmide"
)

// Registry resolves versions and fetches release archives.
type Registry struct {
	APIBase      string
	DownloadBase string
	Repo         string
	HTTP         *http.Client
	Runner       command.Runner
	FS           types.FS
}

// New returns a Registry against the default release endpoint.
func New(runner command.Runner, fsys types.FS) *Registry {
	return &Registry{
		APIBase:      defaultAPIBase,
		DownloadBase: defaultDownloadBase,
		Repo:         defaultRepo,
		HTTP:         &http.Client{Timeout: 60 * time.Second},
		Runner:       runner,
		FS:           fsys,
	}
}

type releaseDoc struct {
	TagName string `json:"tag_name"`
}

// ResolveVersion returns the registry's latest version tag. An empty
// or missing tag means the latest version cannot be resolved, which
// is fatal unless the user pinned an explicit version.
func (r *Registry) ResolveVersion(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", r.APIBase, r.Repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrVersionResolve, "failed to build registry request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrVersionResolve, "failed to query release registry")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrVersionResolve, "release registry returned status %d", resp.StatusCode)
	}

	var doc releaseDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", errors.Wrap(err, errors.ErrVersionResolve, "failed to decode registry response")
	}
	if strings.TrimSpace(doc.TagName) == "" {
		return "", errors.New(errors.ErrVersionResolve, "release registry returned an empty version tag")
	}

	logger := logging.GetLogger("release")
	logger.Info().Str("version", doc.TagName).Msg("Latest version resolved")
	return doc.TagName, nil
}

// ArchiveURL returns the download URL of the release archive for a
// version and architecture.
func (r *Registry) ArchiveURL(version string, arch platform.Arch) string {
	return fmt.Sprintf("%s/%s/releases/download/%s/masmide-%s-linux-%s.tar.gz",
		r.DownloadBase, r.Repo, version, version, arch)
}

// Fetch downloads and extracts the archive for a version into workDir
// and returns the extraction root.
func (r *Registry) Fetch(ctx context.Context, version string, arch platform.Arch, workDir string) (string, error) {
	url := r.ArchiveURL(version, arch)
	tarball := filepath.Join(workDir, "masmide.tar.gz")

	if err := r.download(ctx, url, tarball); err != nil {
		return "", err
	}
	if err := r.extract(ctx, tarball, workDir); err != nil {
		return "", err
	}
	return LocateRoot(r.FS, workDir, version)
}

func (r *Registry) download(ctx context.Context, url, dest string) error {
	logger := logging.GetLogger("release")
	logger.Info().Str("url", url).Msg("Downloading release archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrDownload, "failed to build download request")
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrDownload, "failed to download release archive")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrDownload, "archive download returned status %d for %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, errors.ErrDownload, "failed to create archive file")
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, errors.ErrDownload, "failed to write archive file")
	}
	return nil
}

// extract shells out to tar, a preflight-checked hard prerequisite.
func (r *Registry) extract(ctx context.Context, tarball, workDir string) error {
	res, err := r.Runner.Run(ctx, "tar", "-xzf", tarball, "-C", workDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtract, "failed to extract %s", filepath.Base(tarball)).
			WithDetail("output", res.Output())
	}
	return nil
}

// LocateRoot finds the extraction root inside workDir. The versioned
// directory name is preferred; when absent, an archive with a single
// top-level directory is accepted with a warning rather than
// rejected, since upstream archives have shipped both shapes.
func LocateRoot(fsys types.FS, workDir, version string) (string, error) {
	versioned := filepath.Join(workDir, "masmide-"+version)
	if info, err := fsys.Stat(versioned); err == nil && info.IsDir() {
		return versioned, nil
	}

	entries, err := fsys.ReadDir(workDir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrExtract, "failed to inspect extracted archive")
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}

	if len(dirs) == 1 {
		logger := logging.GetLogger("release")
		logger.Warn().
			Str("expected", "masmide-"+version).
			Str("found", dirs[0]).
			Msg("Versioned directory missing, using archive's top-level directory")
		return filepath.Join(workDir, dirs[0]), nil
	}

	return "", errors.Newf(errors.ErrExtract,
		"cannot locate extraction root: expected %q or a single top-level directory, found %d directories",
		"masmide-"+version, len(dirs))
}
