package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

// RepositoryClient fetches the manifest and downloads the files it names.
// Every call fetches a fresh manifest.
type RepositoryClient struct {
	provider   contracts.Provider
	downloader *Downloader
	defaults   contracts.DownloadOptions
}

func NewRepositoryClient(provider contracts.Provider, downloader *Downloader, defaults contracts.DownloadOptions) *RepositoryClient {
	return &RepositoryClient{provider: provider, downloader: downloader, defaults: defaults}
}

func NewDefaultRepositoryClient(provider contracts.Provider, fileSystem afero.Fs) *RepositoryClient {
	return NewRepositoryClient(provider, NewDownloader(provider, fileSystem), contracts.DefaultDownloadOptions())
}

func (this *RepositoryClient) GetManifest(ctx context.Context) ([]contracts.ManifestEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stream, err := this.provider.OpenManifest(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()
	return ReadManifest(stream)
}

// Download fetches the named entry to destinationPath. A nil options uses
// the client's defaults.
func (this *RepositoryClient) Download(ctx context.Context, filename, destinationPath string, options *contracts.DownloadOptions) (bool, error) {
	if strings.TrimSpace(destinationPath) == "" {
		return false, fmt.Errorf("%w: destination path is required", contracts.ConfigurationErr)
	}
	entry, err := this.entry(ctx, filename)
	if err != nil {
		return false, err
	}
	return this.downloader.Download(ctx, entry, destinationPath, this.options(options))
}

// DownloadToDirectory fetches the named entry below directory, at the
// entry's own (confined) relative filename.
func (this *RepositoryClient) DownloadToDirectory(ctx context.Context, filename, directory string, options *contracts.DownloadOptions) (bool, error) {
	if strings.TrimSpace(directory) == "" {
		return false, fmt.Errorf("%w: destination directory is required", contracts.ConfigurationErr)
	}
	entry, err := this.entry(ctx, filename)
	if err != nil {
		return false, err
	}
	destinationPath, err := JoinAndConfine(directory, entry.Filename)
	if err != nil {
		return false, err
	}
	return this.downloader.Download(ctx, entry, destinationPath, this.options(options))
}

func (this *RepositoryClient) entry(ctx context.Context, filename string) (contracts.ManifestEntry, error) {
	if strings.TrimSpace(filename) == "" {
		return contracts.ManifestEntry{}, fmt.Errorf("%w: filename is required", contracts.ConfigurationErr)
	}
	entries, err := this.GetManifest(ctx)
	if err != nil {
		return contracts.ManifestEntry{}, err
	}
	return FindEntry(entries, filename)
}

func (this *RepositoryClient) options(options *contracts.DownloadOptions) contracts.DownloadOptions {
	if options == nil {
		return this.defaults
	}
	return *options
}

// FindEntry returns the first entry whose filename equals filename,
// ignoring case.
func FindEntry(entries []contracts.ManifestEntry, filename string) (contracts.ManifestEntry, error) {
	for _, entry := range entries {
		if strings.EqualFold(entry.Filename, filename) {
			return entry, nil
		}
	}
	return contracts.ManifestEntry{}, fmt.Errorf("%w: manifest entry for '%s'", contracts.NotFoundErr, filename)
}

func GetTypedManifest[T any](ctx context.Context, client *RepositoryClient, decoder MetadataDecoder) ([]contracts.TypedManifestEntry[T], error) {
	entries, err := client.GetManifest(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectMetadata[T](entries, decoder)
}
