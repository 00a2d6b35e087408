package contracts

import (
	"strings"
	"time"
)

// UnknownModifyDate marks an entry whose manifest record carried no usable
// modification date.
var UnknownModifyDate = time.Time{}

type ManifestEntry struct {
	Filename     string
	URL          string
	Size         int64
	ModifyDate   time.Time
	MetadataJSON string
	HasMetadata  bool
}

func (this ManifestEntry) HasModifyDate() bool {
	return !this.ModifyDate.Equal(UnknownModifyDate)
}

func (this ManifestEntry) Locator() string {
	if url := strings.TrimSpace(this.URL); url != "" {
		return url
	}
	return this.Filename
}

type TypedManifestEntry[T any] struct {
	ManifestEntry
	Metadata *T
}

type LocalFileState struct {
	Exists  bool
	Size    int64
	ModTime time.Time
}
