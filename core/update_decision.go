package core

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

// Tolerance absorbs file system timestamp truncation when comparing a
// local modification time with the manifest's.
const Tolerance = 2 * time.Second

// ShouldDownload decides whether entry must be fetched over the local file
// described by local. A missing file is always fetched. A file matching
// the entry's size and date is skipped when the options ask for it;
// otherwise the overwrite option decides.
//
// An entry without size or date information matches any existing file,
// so with default options such a file is only ever downloaded once.
func ShouldDownload(entry contracts.ManifestEntry, local contracts.LocalFileState, options contracts.DownloadOptions) bool {
	if !local.Exists {
		return true
	}
	if options.SkipIfSameSizeAndDate && matches(entry, local) {
		return false
	}
	return options.Overwrite
}

func matches(entry contracts.ManifestEntry, local contracts.LocalFileState) bool {
	return sizeMatches(entry, local) && dateMatches(entry, local)
}

func sizeMatches(entry contracts.ManifestEntry, local contracts.LocalFileState) bool {
	return entry.Size == 0 || entry.Size == local.Size
}

func dateMatches(entry contracts.ManifestEntry, local contracts.LocalFileState) bool {
	if !entry.HasModifyDate() {
		return true
	}
	difference := local.ModTime.UTC().Sub(entry.ModifyDate.UTC())
	if difference < 0 {
		difference = -difference
	}
	return difference <= Tolerance
}

// StatLocalFile resolves the state ShouldDownload needs for path.
func StatLocalFile(fileSystem afero.Fs, path string) (contracts.LocalFileState, error) {
	info, err := fileSystem.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return contracts.LocalFileState{}, nil
	}
	if err != nil {
		return contracts.LocalFileState{}, err
	}
	return contracts.LocalFileState{
		Exists:  true,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}, nil
}
