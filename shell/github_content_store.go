package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smarty/repofiles/contracts"
)

const (
	gitHubAPIBase       = "https://api.github.com"
	gitHubJSONMediaType = "application/vnd.github+json"
)

// GitHubContentStore reads version tokens (blob SHAs) and writes files
// through the repository contents API.
type GitHubContentStore struct {
	client     *http.Client
	ownsClient bool
	config     contracts.PublishConfig
	apiBase    string
}

func NewGitHubContentStore(config contracts.PublishConfig, client *http.Client) (*GitHubContentStore, error) {
	if strings.TrimSpace(config.Owner) == "" || strings.TrimSpace(config.Repository) == "" {
		return nil, fmt.Errorf("%w: GitHub publisher owner and repository are required", contracts.ConfigurationErr)
	}
	if strings.TrimSpace(config.Branch) == "" {
		config.Branch = contracts.DefaultBranch
	}
	client, owned := ownedClient(client)
	return &GitHubContentStore{client: client, ownsClient: owned, config: config, apiBase: gitHubAPIBase}, nil
}

// LookupVersion reports the SHA of path on the configured branch. A 404
// means the file does not exist yet.
func (this *GitHubContentStore) LookupVersion(ctx context.Context, path string) (string, bool, error) {
	request, err := this.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", false, err
	}
	query := request.URL.Query()
	query.Set("ref", this.config.Branch)
	request.URL.RawQuery = query.Encode()

	response, err := send(this.client, request, "fetch")
	if err != nil {
		var apiErr *contracts.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	defer func() { _ = response.Body.Close() }()

	var payload struct {
		SHA string `json:"sha"`
	}
	if err = json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", false, fmt.Errorf("%w: decode contents response: %w", contracts.APIErr, err)
	}
	if strings.TrimSpace(payload.SHA) == "" {
		return "", false, fmt.Errorf("%w: contents response did not include the file sha", contracts.APIErr)
	}
	return payload.SHA, true, nil
}

func (this *GitHubContentStore) Write(ctx context.Context, write contracts.WriteRequest) error {
	body, err := json.Marshal(contentsPayload{
		Message:   write.Message,
		Content:   write.Content,
		Branch:    write.Branch,
		SHA:       write.Version,
		Committer: write.Committer,
	})
	if err != nil {
		return err
	}
	request, err := this.newRequest(ctx, http.MethodPut, write.Path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", jsonMediaType)

	response, err := send(this.client, request, "publish")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return response.Body.Close()
}

type contentsPayload struct {
	Message   string               `json:"message"`
	Content   string               `json:"content"`
	Branch    string               `json:"branch"`
	SHA       string               `json:"sha,omitempty"`
	Committer *contracts.Committer `json:"committer,omitempty"`
}

func (this *GitHubContentStore) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	escaped := escapeSegments(path)
	if escaped == "" {
		return nil, fmt.Errorf("%w: remote path is required", contracts.ConfigurationErr)
	}
	address := strings.Join([]string{
		this.apiBase, "repos",
		url.PathEscape(this.config.Owner),
		url.PathEscape(this.config.Repository),
		"contents", escaped,
	}, "/")
	request, err := http.NewRequestWithContext(ctx, method, address, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", gitHubJSONMediaType)
	request.Header.Set("Authorization", authorization(this.config.Token))
	return request, nil
}

// authorization honors an explicit "Bearer " or "token " scheme and
// defaults to Bearer.
func authorization(token string) string {
	token = strings.TrimSpace(token)
	for _, scheme := range []string{"Bearer", "token"} {
		if len(token) > len(scheme) && strings.EqualFold(token[:len(scheme)+1], scheme+" ") {
			return scheme + " " + strings.TrimSpace(token[len(scheme)+1:])
		}
	}
	return "Bearer " + token
}

func (this *GitHubContentStore) Close() error {
	if this.ownsClient {
		this.client.CloseIdleConnections()
	}
	return nil
}
