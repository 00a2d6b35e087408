package core

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/smarty/assertions/should"
	"github.com/smarty/gunit"
	"github.com/smartystreets/logging"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

func TestPublisherFixture(t *testing.T) {
	gunit.Run(new(PublisherFixture), t)
}

type PublisherFixture struct {
	*gunit.Fixture
	store      *FakeContentStore
	fileSystem afero.Fs
	config     contracts.PublishConfig
}

func (this *PublisherFixture) Setup() {
	this.store = NewFakeContentStore()
	this.fileSystem = afero.NewMemMapFs()
	_ = afero.WriteFile(this.fileSystem, "/work/report.txt", []byte("hello"), 0644)
	this.config = contracts.PublishConfig{Owner: "smarty", Repository: "files", Token: "ghp_token"}
}

func (this *PublisherFixture) publisher() *Publisher {
	publisher := NewPublisher(this.store, this.fileSystem, this.config)
	publisher.logger = logging.Capture()
	return publisher
}

func (this *PublisherFixture) TestCreateOmitsVersion() {
	err := this.publisher().Publish(context.Background(), "/work/report.txt", `\docs\report.txt`, "")

	this.So(err, should.BeNil)
	this.So(this.store.lookups, should.Resemble, []string{"docs/report.txt"})
	this.So(this.store.writes, should.Resemble, []contracts.WriteRequest{{
		Path:    "docs/report.txt",
		Message: "Publish docs/report.txt",
		Content: base64.StdEncoding.EncodeToString([]byte("hello")),
		Branch:  "main",
	}})
}

func (this *PublisherFixture) TestUpdateIncludesVersion() {
	this.store.versions["docs/report.txt"] = "abc123"
	this.config.Branch = "release"

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "/docs/report.txt", "weekly numbers")

	this.So(err, should.BeNil)
	this.So(this.store.writes, should.HaveLength, 1)
	this.So(this.store.writes[0].Version, should.Equal, "abc123")
	this.So(this.store.writes[0].Branch, should.Equal, "release")
	this.So(this.store.writes[0].Message, should.Equal, "weekly numbers")
}

func (this *PublisherFixture) TestCommitterIsIncludedWhenComplete() {
	this.config.CommitterName = "Jo"
	this.config.CommitterEmail = "jo@example.com"

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(err, should.BeNil)
	this.So(this.store.writes[0].Committer, should.Resemble, &contracts.Committer{Name: "Jo", Email: "jo@example.com"})
}

func (this *PublisherFixture) TestHalfACommitterIsAConfigurationError() {
	this.config.CommitterEmail = "jo@example.com"

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(errors.Is(err, contracts.ConfigurationErr), should.BeTrue)
	this.So(this.store.calls(), should.Equal, 0)
}

func (this *PublisherFixture) TestEmptyTokenFailsBeforeAnyRequest() {
	this.config.Token = "  "

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(errors.Is(err, contracts.ConfigurationErr), should.BeTrue)
	this.So(this.store.calls(), should.Equal, 0)
}

func (this *PublisherFixture) TestMissingSourceFailsBeforeAnyRequest() {
	err := this.publisher().Publish(context.Background(), "/work/missing.txt", "report.txt", "")

	this.So(errors.Is(err, contracts.NotFoundErr), should.BeTrue)
	this.So(this.store.calls(), should.Equal, 0)
}

func (this *PublisherFixture) TestDirectorySourceIsNotFound() {
	err := this.publisher().Publish(context.Background(), "/work", "report.txt", "")

	this.So(errors.Is(err, contracts.NotFoundErr), should.BeTrue)
}

func (this *PublisherFixture) TestBlankPaths() {
	err1 := this.publisher().Publish(context.Background(), "", "report.txt", "")
	err2 := this.publisher().Publish(context.Background(), "/work/report.txt", " ", "")

	this.So(errors.Is(err1, contracts.ConfigurationErr), should.BeTrue)
	this.So(errors.Is(err2, contracts.ConfigurationErr), should.BeTrue)
}

func (this *PublisherFixture) TestLookupFailureStopsThePublish() {
	this.store.lookupErr = &contracts.APIError{Action: "lookup", StatusCode: 403, Status: "403 Forbidden"}

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(errors.Is(err, contracts.APIErr), should.BeTrue)
	this.So(this.store.writes, should.BeEmpty)
}

func (this *PublisherFixture) TestConflictCarriesGuidance() {
	this.store.writeErr = &contracts.APIError{Action: "publish", StatusCode: 409, Status: "409 Conflict", Message: "is at abc but expected def"}

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	var apiErr *contracts.APIError
	this.So(errors.As(err, &apiErr), should.BeTrue)
	this.So(apiErr.Guidance, should.Equal, ConflictGuidance)
	this.So(err.Error(), should.Equal,
		"remote publish failed (409 Conflict). is at abc but expected def "+ConflictGuidance)
	this.So(this.store.writes, should.HaveLength, 1)
}

func (this *PublisherFixture) TestUnprocessableCarriesGuidance() {
	this.store.writeErr = &contracts.APIError{Action: "publish", StatusCode: 422}

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(err.Error(), should.ContainSubstring, ConflictGuidance)
}

func (this *PublisherFixture) TestOtherFailuresHaveNoGuidance() {
	this.store.writeErr = &contracts.APIError{Action: "publish", StatusCode: 500}

	err := this.publisher().Publish(context.Background(), "/work/report.txt", "report.txt", "")

	this.So(err, should.Equal, this.store.writeErr)
	this.So(err.Error(), should.NotContainSubstring, ConflictGuidance)
	this.So(this.store.writes, should.HaveLength, 1)
}

func (this *PublisherFixture) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := this.publisher().Publish(ctx, "/work/report.txt", "report.txt", "")

	this.So(errors.Is(err, context.Canceled), should.BeTrue)
	this.So(this.store.calls(), should.Equal, 0)
}

func (this *PublisherFixture) TestNormalizeRemotePath() {
	this.So(NormalizeRemotePath(`\\a\b.txt`), should.Equal, "a/b.txt")
	this.So(NormalizeRemotePath("//a/b.txt"), should.Equal, "a/b.txt")
	this.So(NormalizeRemotePath("a/b.txt"), should.Equal, "a/b.txt")
}

/////////////////////////////////////////////////////////////////////////////////

type FakeContentStore struct {
	versions  map[string]string
	lookups   []string
	lookupErr error
	writes    []contracts.WriteRequest
	writeErr  error
}

func NewFakeContentStore() *FakeContentStore {
	return &FakeContentStore{versions: make(map[string]string)}
}

func (this *FakeContentStore) LookupVersion(_ context.Context, path string) (string, bool, error) {
	this.lookups = append(this.lookups, path)
	if this.lookupErr != nil {
		return "", false, this.lookupErr
	}
	version, found := this.versions[path]
	return version, found, nil
}

func (this *FakeContentStore) Write(_ context.Context, request contracts.WriteRequest) error {
	this.writes = append(this.writes, request)
	return this.writeErr
}

func (this *FakeContentStore) calls() int {
	return len(this.lookups) + len(this.writes)
}
