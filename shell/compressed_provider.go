package shell

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/smarty/repofiles/contracts"
)

// CompressedManifestProvider decompresses the manifest stream of inner
// according to the manifest path's extension (.gz or .zst). Files are
// passed through untouched.
type CompressedManifestProvider struct {
	contracts.Provider
	extension string
}

func NewCompressedManifestProvider(inner contracts.Provider, manifestPath string) contracts.Provider {
	extension := strings.ToLower(path.Ext(strings.ReplaceAll(manifestPath, `\`, "/")))
	if extension != ".gz" && extension != ".zst" {
		return inner
	}
	return &CompressedManifestProvider{Provider: inner, extension: extension}
}

func (this *CompressedManifestProvider) OpenManifest(ctx context.Context) (io.ReadCloser, error) {
	stream, err := this.Provider.OpenManifest(ctx)
	if err != nil {
		return nil, err
	}
	reader, err := this.decompress(stream)
	if err != nil {
		_ = stream.Close()
		return nil, &contracts.FormatError{Reason: fmt.Sprintf("manifest is not valid %s data", this.extension), Err: err}
	}
	return &compositeReadCloser{Reader: reader, closers: []io.Closer{reader, stream}}, nil
}

func (this *CompressedManifestProvider) decompress(stream io.Reader) (io.ReadCloser, error) {
	switch this.extension {
	case ".zst":
		decoder, err := zstd.NewReader(stream)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	default:
		return gzip.NewReader(stream)
	}
}

type compositeReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (this *compositeReadCloser) Close() (err error) {
	for _, closer := range this.closers {
		if closeErr := closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
