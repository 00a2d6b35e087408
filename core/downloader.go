package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/smartystreets/logging"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

type Downloader struct {
	logger     *logging.Logger
	provider   contracts.Provider
	fileSystem afero.Fs
	progress   ProgressReporter
}

func NewDownloader(provider contracts.Provider, fileSystem afero.Fs) *Downloader {
	return &Downloader{provider: provider, fileSystem: fileSystem}
}

// WithProgress installs a reporter that observes each transfer.
func (this *Downloader) WithProgress(progress ProgressReporter) *Downloader {
	this.progress = progress
	return this
}

// Download fetches entry into destinationPath when ShouldDownload says so
// and reports whether a transfer took place. Nothing is retried.
func (this *Downloader) Download(ctx context.Context, entry contracts.ManifestEntry, destinationPath string, options contracts.DownloadOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	local, err := StatLocalFile(this.fileSystem, destinationPath)
	if err != nil {
		return false, fmt.Errorf("inspect %q: %w", destinationPath, err)
	}
	if !ShouldDownload(entry, local, options) {
		this.logger.Printf("[INFO] '%s' is up to date at %s", entry.Filename, destinationPath)
		return false, nil
	}

	if options.EnsureDirectoryExists {
		if err = this.fileSystem.MkdirAll(filepath.Dir(destinationPath), 0755); err != nil {
			return false, fmt.Errorf("create directory for %q: %w", destinationPath, err)
		}
	}

	source, err := this.provider.OpenFile(ctx, entry)
	if err != nil {
		return false, err
	}
	defer func() { _ = source.Close() }()

	if err = ctx.Err(); err != nil {
		return false, err
	}
	written, err := this.copyToFile(source, destinationPath, entry.Size, options.Overwrite)
	if err != nil {
		return true, err
	}

	if options.VerifySize {
		if err = this.verifySize(entry, destinationPath, written); err != nil {
			return true, err
		}
	}

	if options.SetLastWriteTimeFromManifest && entry.HasModifyDate() {
		modified := entry.ModifyDate.UTC()
		if err = this.fileSystem.Chtimes(destinationPath, modified, modified); err != nil {
			return true, fmt.Errorf("set modification time of %q: %w", destinationPath, err)
		}
	}

	this.logger.Printf("[INFO] Downloaded '%s' to %s (%s)", entry.Filename, destinationPath, HumanFileSize(float64(written)))
	return true, nil
}

func (this *Downloader) copyToFile(source io.Reader, destinationPath string, expectedSize int64, overwrite bool) (int64, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	target, err := this.fileSystem.OpenFile(destinationPath, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("open %q for writing: %w", destinationPath, err)
	}

	var writer io.Writer = target
	if this.progress != nil {
		counter := NewProgressCounter(expectedSize, this.progress)
		defer closeResource(counter)
		writer = io.MultiWriter(target, counter)
	}

	written, err := io.Copy(writer, source)
	closeErr := target.Close()
	if err != nil {
		return written, fmt.Errorf("write %q: %w", destinationPath, err)
	}
	if closeErr != nil {
		return written, fmt.Errorf("close %q: %w", destinationPath, closeErr)
	}
	return written, nil
}

// verifySize removes a transferred file whose length contradicts a
// declared (non-zero) manifest size.
func (this *Downloader) verifySize(entry contracts.ManifestEntry, destinationPath string, written int64) error {
	if entry.Size == 0 || entry.Size == written {
		return nil
	}
	_ = this.fileSystem.Remove(destinationPath)
	return fmt.Errorf("%w: file size mismatch for '%s' (expected: [%d], actual: [%d])",
		contracts.IntegrityErr, entry.Filename, entry.Size, written)
}

func closeResource(resource io.Closer) {
	_ = resource.Close()
}
