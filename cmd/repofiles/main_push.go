package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
	"github.com/smarty/repofiles/shell"
)

// pushMain publishes once. A conflict is reported, never retried.
func pushMain(ctx context.Context, config contracts.Config, fileSystem afero.Fs) error {
	store, err := shell.NewGitHubContentStore(config.RepoFiles.GitHubPublisher, nil)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	source, destination := config.Arguments[0], config.Arguments[1]
	publisher := core.NewPublisher(store, fileSystem, config.RepoFiles.GitHubPublisher)
	if err = publisher.Publish(ctx, source, destination, config.Message); err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Published '%s' to '%s'.\n", source, destination)
	return err
}
