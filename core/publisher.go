package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/smartystreets/logging"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

const ConflictGuidance = "The remote file may have changed; fetch the latest version token and retry."

// Publisher writes a local file to a ContentStore under optimistic
// concurrency: the current version token is read first and sent back with
// the write, so a concurrent change makes the write fail instead of being
// silently overwritten. A failed write is never retried here.
type Publisher struct {
	logger     *logging.Logger
	store      contracts.ContentStore
	fileSystem afero.Fs
	config     contracts.PublishConfig
}

func NewPublisher(store contracts.ContentStore, fileSystem afero.Fs, config contracts.PublishConfig) *Publisher {
	if strings.TrimSpace(config.Branch) == "" {
		config.Branch = contracts.DefaultBranch
	}
	return &Publisher{store: store, fileSystem: fileSystem, config: config}
}

func (this *Publisher) Publish(ctx context.Context, sourcePath, destinationPath, note string) error {
	if strings.TrimSpace(sourcePath) == "" {
		return fmt.Errorf("%w: source path is required", contracts.ConfigurationErr)
	}
	if strings.TrimSpace(destinationPath) == "" {
		return fmt.Errorf("%w: destination path is required", contracts.ConfigurationErr)
	}
	if strings.TrimSpace(this.config.Token) == "" {
		return fmt.Errorf("%w: a token is required to publish files", contracts.ConfigurationErr)
	}
	committer, err := this.committer()
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	content, err := this.readSource(sourcePath)
	if err != nil {
		return err
	}

	path := NormalizeRemotePath(destinationPath)
	version, found, err := this.store.LookupVersion(ctx, path)
	if err != nil {
		return err
	}
	request := contracts.WriteRequest{
		Path:      path,
		Message:   commitMessage(note, path),
		Content:   base64.StdEncoding.EncodeToString(content),
		Branch:    this.config.Branch,
		Committer: committer,
	}
	if found {
		request.Version = version
	}

	if err = this.store.Write(ctx, request); err != nil {
		return withConflictGuidance(err)
	}
	this.logger.Printf("[INFO] Published %s to %s (branch %s)", sourcePath, path, this.config.Branch)
	return nil
}

func (this *Publisher) readSource(sourcePath string) ([]byte, error) {
	info, err := this.fileSystem.Stat(sourcePath)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: source file '%s'", contracts.NotFoundErr, sourcePath)
	}
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(this.fileSystem, sourcePath)
}

// committer requires both name and email, or neither.
func (this *Publisher) committer() (*contracts.Committer, error) {
	name := strings.TrimSpace(this.config.CommitterName)
	email := strings.TrimSpace(this.config.CommitterEmail)
	if name == "" && email == "" {
		return nil, nil
	}
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: both committer name and committer email must be set when specifying a committer", contracts.ConfigurationErr)
	}
	return &contracts.Committer{Name: this.config.CommitterName, Email: this.config.CommitterEmail}, nil
}

func commitMessage(note, path string) string {
	if strings.TrimSpace(note) == "" {
		return "Publish " + path
	}
	return note
}

func withConflictGuidance(err error) error {
	var apiErr *contracts.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsConflict() {
		return err
	}
	guided := *apiErr
	guided.Guidance = ConflictGuidance
	return &guided
}

// NormalizeRemotePath converts separators to slashes and strips leading
// slashes.
func NormalizeRemotePath(path string) string {
	return strings.TrimLeft(strings.ReplaceAll(path, `\`, "/"), "/")
}
