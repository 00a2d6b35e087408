package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
)

// LocalProvider serves a manifest and its files from a directory, such as
// a mounted share or a checked-out repository. Entry locators may not
// escape the directory.
type LocalProvider struct {
	fileSystem   afero.Fs
	directory    string
	manifestPath string
}

func NewLocalProvider(fileSystem afero.Fs, config contracts.LocalConfig) (*LocalProvider, error) {
	if strings.TrimSpace(config.Directory) == "" {
		return nil, fmt.Errorf("%w: local directory is required", contracts.ConfigurationErr)
	}
	manifestPath := config.ManifestPath
	if strings.TrimSpace(manifestPath) == "" {
		manifestPath = contracts.DefaultManifestPath
	}
	return &LocalProvider{fileSystem: fileSystem, directory: config.Directory, manifestPath: manifestPath}, nil
}

func (this *LocalProvider) OpenManifest(ctx context.Context) (io.ReadCloser, error) {
	return this.open(ctx, this.manifestPath)
}

// OpenFile resolves the entry locator below the directory. Only relative
// paths and file:// URLs can be served from a directory.
func (this *LocalProvider) OpenFile(ctx context.Context, entry contracts.ManifestEntry) (io.ReadCloser, error) {
	locator := entry.Locator()
	if strings.HasPrefix(strings.ToLower(locator), fileScheme) {
		return this.open(ctx, locator[len(fileScheme):])
	}
	if parsed, err := url.Parse(locator); err == nil && len(parsed.Scheme) > 1 {
		return nil, fmt.Errorf("%w: the local provider cannot open '%s'", contracts.ConfigurationErr, locator)
	}
	return this.open(ctx, locator)
}

const fileScheme = "file://"

func (this *LocalProvider) open(ctx context.Context, relative string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := core.JoinAndConfine(this.directory, relative)
	if err != nil {
		return nil, err
	}
	file, err := this.fileSystem.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", contracts.NotFoundErr, err)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
