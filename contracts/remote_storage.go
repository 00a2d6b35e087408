package contracts

import (
	"context"
	"io"
)

// Provider opens byte streams for a remotely hosted file collection. Entry
// locators are resolved by the provider: an absolute entry URL wins,
// otherwise the entry URL (or filename) is taken relative to the
// provider's own base location.
type Provider interface {
	OpenManifest(ctx context.Context) (io.ReadCloser, error)
	OpenFile(ctx context.Context, entry ManifestEntry) (io.ReadCloser, error)
}

// ContentStore is the remote side of the optimistic-concurrency write
// protocol. LookupVersion reports found=false (and no error) when nothing
// exists yet at the path.
type ContentStore interface {
	LookupVersion(ctx context.Context, path string) (token string, found bool, err error)
	Write(ctx context.Context, request WriteRequest) error
}

type WriteRequest struct {
	Path      string
	Message   string
	Content   string // base64
	Branch    string
	Version   string // omitted from the payload when blank
	Committer *Committer
}

type Committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
