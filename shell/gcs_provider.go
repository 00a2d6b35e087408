package shell

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/smarty/gcs"
	"github.com/smartystreets/logging"

	"github.com/smarty/repofiles/contracts"
)

// GoogleCloudStorageProvider reads the manifest and files from a bucket
// using signed requests. Relative entry locators resolve below the
// configured gcs://bucket/prefix address.
type GoogleCloudStorageProvider struct {
	logger        *logging.Logger
	client        *http.Client
	ownsClient    bool
	credentials   gcs.Credentials
	remoteAddress url.URL
	manifestPath  string
}

func NewGoogleCloudStorageProvider(config contracts.GCSConfig, credentials gcs.Credentials, client *http.Client) (*GoogleCloudStorageProvider, error) {
	remoteAddress := *config.RemoteAddress.Value()
	if remoteAddress.Host == "" {
		return nil, fmt.Errorf("%w: GCS remote address must name a bucket (gcs://bucket/prefix)", contracts.ConfigurationErr)
	}
	manifestPath := config.ManifestPath
	if strings.TrimSpace(manifestPath) == "" {
		manifestPath = contracts.DefaultManifestPath
	}
	client, owned := ownedClient(client)
	return &GoogleCloudStorageProvider{
		client:        client,
		ownsClient:    owned,
		credentials:   credentials,
		remoteAddress: remoteAddress,
		manifestPath:  manifestPath,
	}, nil
}

func (this *GoogleCloudStorageProvider) OpenManifest(ctx context.Context) (io.ReadCloser, error) {
	return this.download(ctx, contracts.AppendRemotePath(this.remoteAddress, this.manifestPath))
}

func (this *GoogleCloudStorageProvider) OpenFile(ctx context.Context, entry contracts.ManifestEntry) (io.ReadCloser, error) {
	locator := strings.TrimSpace(entry.Locator())
	if locator == "" {
		return nil, fmt.Errorf("%w: entry has neither url nor filename", contracts.ConfigurationErr)
	}
	parsed, err := url.Parse(locator)
	if err == nil && parsed.IsAbs() {
		switch strings.ToLower(parsed.Scheme) {
		case "http", "https":
			return openStream(ctx, this.client, locator)
		case "gs", "gcs":
			return this.download(ctx, *parsed)
		}
	}
	return this.download(ctx, contracts.AppendRemotePath(this.remoteAddress, strings.ReplaceAll(locator, `\`, "/")))
}

func (this *GoogleCloudStorageProvider) download(ctx context.Context, object url.URL) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gcsRequest, err := gcs.NewRequest("GET",
		gcs.WithCredentials(this.credentials),
		gcs.WithBucket(object.Host),
		gcs.WithResource(object.Path),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
	}
	gcsRequest = gcsRequest.WithContext(ctx)
	gcsRequest.Header.Set("User-Agent", userAgent)

	response, err := this.client.Do(gcsRequest)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: gcs://%s%s: %w", contracts.RetryErr, object.Host, object.Path, err)
	}
	if response.StatusCode != http.StatusOK {
		this.dump(gcsRequest, response)
		defer func() { _ = response.Body.Close() }()
		return nil, newAPIError("download", response)
	}
	return response.Body, nil
}

func (this *GoogleCloudStorageProvider) dump(request *http.Request, response *http.Response) {
	requestDump, _ := httputil.DumpRequestOut(request, false)
	responseDump, _ := httputil.DumpResponse(response, false)
	this.logger.Printf("[WARN] unexpected status code: \nrequest: \n%s\nresponse:\n%s", requestDump, responseDump)
}

func (this *GoogleCloudStorageProvider) Close() error {
	if this.ownsClient {
		this.client.CloseIdleConnections()
	}
	return nil
}
