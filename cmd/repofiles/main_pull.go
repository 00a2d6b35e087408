package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
	"github.com/smarty/repofiles/shell"
)

func pullMain(ctx context.Context, config contracts.Config, fileSystem afero.Fs) error {
	client := shell.NewHTTPClient()
	defer client.CloseIdleConnections()

	provider, closer, err := newProvider(config, fileSystem, client)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	directory, err := filepath.Abs(config.Destination)
	if err != nil {
		return err
	}
	filename := config.Arguments[0]
	options := config.RepoFiles.Download
	options.TargetDirectory = directory

	downloader := core.NewDownloader(provider, fileSystem).WithProgress(reportProgress)
	repository := core.NewRepositoryClient(provider, downloader, config.RepoFiles.Download)
	downloaded, err := repository.DownloadToDirectory(ctx, filename, directory, &options)
	if err != nil {
		return err
	}
	if downloaded {
		_, err = fmt.Fprintf(os.Stdout, "Downloaded '%s' to '%s'.\n", filename, directory)
	} else {
		_, err = fmt.Fprintf(os.Stdout, "'%s' is up to date in '%s'.\n", filename, directory)
	}
	return err
}

func reportProgress(written, total string, done bool) {
	if done {
		return
	}
	log.Printf("[INFO] %s of %s", written, total)
}
