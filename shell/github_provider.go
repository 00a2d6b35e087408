package shell

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smarty/repofiles/contracts"
)

const gitHubRawBase = "https://raw.githubusercontent.com"

// GitHubProvider reads the manifest and files from a repository branch
// through the raw-content host.
type GitHubProvider struct {
	client     *http.Client
	ownsClient bool
	config     contracts.GitHubConfig
	rawBase    string
}

// NewGitHubProvider uses client when given; otherwise it builds (and
// later closes) its own.
func NewGitHubProvider(config contracts.GitHubConfig, client *http.Client) (*GitHubProvider, error) {
	if strings.TrimSpace(config.Branch) == "" {
		config.Branch = contracts.DefaultBranch
	}
	if strings.TrimSpace(config.ManifestPath) == "" {
		config.ManifestPath = contracts.DefaultManifestPath
	}
	if strings.TrimSpace(config.Owner) == "" || strings.TrimSpace(config.Repository) == "" {
		return nil, fmt.Errorf("%w: GitHub owner and repository are required", contracts.ConfigurationErr)
	}
	client, owned := ownedClient(client)
	return &GitHubProvider{client: client, ownsClient: owned, config: config, rawBase: gitHubRawBase}, nil
}

func (this *GitHubProvider) OpenManifest(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return openStream(ctx, this.client, this.rawAddress(this.config.ManifestPath))
}

func (this *GitHubProvider) OpenFile(ctx context.Context, entry contracts.ManifestEntry) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	address, err := this.resolve(entry)
	if err != nil {
		return nil, err
	}
	return openStream(ctx, this.client, address)
}

// resolve uses an absolute entry URL verbatim. A relative URL, or else the
// filename, is a path within the repository branch.
func (this *GitHubProvider) resolve(entry contracts.ManifestEntry) (string, error) {
	locator := entry.Locator()
	if strings.TrimSpace(locator) == "" {
		return "", fmt.Errorf("%w: entry has neither url nor filename", contracts.ConfigurationErr)
	}
	if parsed, err := url.Parse(locator); err == nil && parsed.IsAbs() && parsed.Host != "" {
		return locator, nil
	}
	return this.rawAddress(locator), nil
}

func (this *GitHubProvider) rawAddress(path string) string {
	return strings.Join([]string{
		this.rawBase,
		url.PathEscape(this.config.Owner),
		url.PathEscape(this.config.Repository),
		escapeSegments(this.config.Branch),
		escapeSegments(path),
	}, "/")
}

// Close releases idle connections of a client this provider created.
func (this *GitHubProvider) Close() error {
	if this.ownsClient {
		this.client.CloseIdleConnections()
	}
	return nil
}
