package main

import (
	"io"
	"net/http"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
	"github.com/smarty/repofiles/shell"
)

// newProvider assembles the configured provider: the transport adapter,
// manifest decompression and the retry decorator, in that order.
func newProvider(config contracts.Config, fileSystem afero.Fs, client *http.Client) (contracts.Provider, io.Closer, error) {
	repoFiles := config.RepoFiles
	var (
		provider contracts.Provider
		closer   io.Closer = nopCloser{}
		err      error
	)
	switch repoFiles.Provider {
	case contracts.GCSProviderName:
		var gcsProvider *shell.GoogleCloudStorageProvider
		gcsProvider, err = shell.NewGoogleCloudStorageProvider(repoFiles.GCS, config.GCSCredentials, client)
		provider, closer = gcsProvider, gcsProvider
	case contracts.LocalProviderName:
		provider, err = shell.NewLocalProvider(fileSystem, repoFiles.Local)
	default:
		var gitHubProvider *shell.GitHubProvider
		gitHubProvider, err = shell.NewGitHubProvider(repoFiles.GitHub, client)
		provider, closer = gitHubProvider, gitHubProvider
	}
	if err != nil {
		return nil, nil, err
	}
	provider = shell.NewCompressedManifestProvider(provider, repoFiles.ManifestPath())
	return core.NewRetryProvider(provider, repoFiles.MaxRetry), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
