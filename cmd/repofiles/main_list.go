package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
	"github.com/smarty/repofiles/shell"
)

func listMain(ctx context.Context, config contracts.Config, fileSystem afero.Fs) error {
	client := shell.NewHTTPClient()
	defer client.CloseIdleConnections()

	provider, closer, err := newProvider(config, fileSystem, client)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	entries, err := core.NewDefaultRepositoryClient(provider, fileSystem).GetManifest(ctx)
	if err != nil {
		return err
	}
	return writeListing(os.Stdout, core.Filter(entries, config.Arguments))
}

const listingDateLayout = "2006-01-02 15:04:05Z"

func writeListing(writer io.Writer, entries []contracts.ManifestEntry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintln(writer, formatEntry(entry)); err != nil {
			return err
		}
	}
	return nil
}

func formatEntry(entry contracts.ManifestEntry) string {
	modified := "-"
	if entry.HasModifyDate() {
		modified = entry.ModifyDate.UTC().Format(listingDateLayout)
	}
	return strings.Join([]string{
		entry.Filename,
		strconv.FormatInt(entry.Size, 10),
		modified,
		entry.MetadataJSON,
	}, "\t")
}
