package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/smartystreets/clock"
	"github.com/smartystreets/logging"

	"github.com/smarty/repofiles/contracts"
)

const retryDelay = time.Second * 3

// RetryProvider re-issues reads that failed with a transient error
// (contracts.RetryErr). Anything else is returned immediately.
type RetryProvider struct {
	inner    contracts.Provider
	maxRetry int
	sleeper  *clock.Sleeper
	logger   *logging.Logger
}

func NewRetryProvider(inner contracts.Provider, maxRetry int) *RetryProvider {
	return &RetryProvider{inner: inner, maxRetry: maxRetry}
}

func (this *RetryProvider) OpenManifest(ctx context.Context) (body io.ReadCloser, err error) {
	return this.retry(ctx, "manifest", func() (io.ReadCloser, error) {
		return this.inner.OpenManifest(ctx)
	})
}

func (this *RetryProvider) OpenFile(ctx context.Context, entry contracts.ManifestEntry) (body io.ReadCloser, err error) {
	return this.retry(ctx, entry.Filename, func() (io.ReadCloser, error) {
		return this.inner.OpenFile(ctx, entry)
	})
}

func (this *RetryProvider) retry(ctx context.Context, name string, open func() (io.ReadCloser, error)) (body io.ReadCloser, err error) {
	for x := 0; x <= this.maxRetry; x++ {
		body, err = open()
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, contracts.RetryErr) {
			return nil, err
		}
		if x < this.maxRetry {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			this.logger.Printf("[WARN] reading '%s' failed, retry imminent: %s", name, err)
			this.sleeper.Sleep(retryDelay)
		}
	}
	return nil, err
}
