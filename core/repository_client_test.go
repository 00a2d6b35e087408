package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/smarty/assertions/should"
	"github.com/smarty/gunit"
	"github.com/smartystreets/logging"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

func TestRepositoryClientFixture(t *testing.T) {
	gunit.Run(new(RepositoryClientFixture), t)
}

type RepositoryClientFixture struct {
	*gunit.Fixture
	provider   *FakeProvider
	fileSystem afero.Fs
	client     *RepositoryClient
	modified   time.Time
}

func (this *RepositoryClientFixture) Setup() {
	this.modified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	this.provider = NewFakeProvider(`[
		{"filename":"a.txt","size":10,"modifydate":"2024-01-01T00:00:00Z"},
		{"filename":"docs/b.txt","size":3,"metadata":"{\"minAppVersion\":\"1.0\"}"},
		{"filename":"A.TXT","size":1},
		{"filename":"../evil.txt","size":1}
	]`)
	this.provider.files["a.txt"] = "0123456789"
	this.provider.files["docs/b.txt"] = "bbb"
	this.provider.files["../evil.txt"] = "x"
	this.fileSystem = afero.NewMemMapFs()
	downloader := NewDownloader(this.provider, this.fileSystem)
	downloader.logger = logging.Capture()
	this.client = NewRepositoryClient(this.provider, downloader, contracts.DefaultDownloadOptions())
}

func (this *RepositoryClientFixture) TestGetManifest() {
	entries, err := this.client.GetManifest(context.Background())

	this.So(err, should.BeNil)
	this.So(entries, should.HaveLength, 4)
	this.So(this.provider.manifestCalls, should.Equal, 1)
}

func (this *RepositoryClientFixture) TestManifestFailurePropagates() {
	this.provider.manifestErr = anError

	entries, err := this.client.GetManifest(context.Background())

	this.So(entries, should.BeNil)
	this.So(err, should.Equal, anError)
}

func (this *RepositoryClientFixture) TestFirstCaseInsensitiveMatchWins() {
	entries, _ := this.client.GetManifest(context.Background())

	entry, err := FindEntry(entries, "a.TXT")

	this.So(err, should.BeNil)
	this.So(entry.Filename, should.Equal, "a.txt")
	this.So(entry.Size, should.Equal, int64(10))
}

func (this *RepositoryClientFixture) TestUnknownFilename() {
	_, err := this.client.Download(context.Background(), "missing.txt", "/data/missing.txt", nil)

	this.So(errors.Is(err, contracts.NotFoundErr), should.BeTrue)
	this.So(this.provider.fileCalls, should.Equal, 0)
}

func (this *RepositoryClientFixture) TestDownloadToPath() {
	downloaded, err := this.client.Download(context.Background(), "a.txt", "/data/copy.txt", nil)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
	raw, _ := afero.ReadFile(this.fileSystem, "/data/copy.txt")
	this.So(string(raw), should.Equal, "0123456789")
	info, _ := this.fileSystem.Stat("/data/copy.txt")
	this.So(info.ModTime().Equal(this.modified), should.BeTrue)
}

func (this *RepositoryClientFixture) TestSecondPullOfUnchangedFileIsSkipped() {
	_, _ = this.client.Download(context.Background(), "a.txt", "/data/a.txt", nil)

	downloaded, err := this.client.Download(context.Background(), "a.txt", "/data/a.txt", nil)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeFalse)
	this.So(this.provider.fileCalls, should.Equal, 1)
	this.So(this.provider.manifestCalls, should.Equal, 2)
}

func (this *RepositoryClientFixture) TestOptionsOverrideDefaults() {
	_ = afero.WriteFile(this.fileSystem, "/data/a.txt", []byte("stale"), 0644)
	options := contracts.DefaultDownloadOptions()
	options.Overwrite = true

	downloaded, err := this.client.Download(context.Background(), "a.txt", "/data/a.txt", &options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
}

func (this *RepositoryClientFixture) TestDownloadToDirectoryKeepsRelativeLayout() {
	base := filepath.Join(string(filepath.Separator), "data")

	downloaded, err := this.client.DownloadToDirectory(context.Background(), "docs/b.txt", base, nil)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
	raw, _ := afero.ReadFile(this.fileSystem, filepath.Join(base, "docs", "b.txt"))
	this.So(string(raw), should.Equal, "bbb")
}

func (this *RepositoryClientFixture) TestDownloadToDirectoryRejectsTraversal() {
	downloaded, err := this.client.DownloadToDirectory(context.Background(), "../evil.txt", "/data", nil)

	this.So(downloaded, should.BeFalse)
	this.So(errors.Is(err, contracts.ContainmentErr), should.BeTrue)
	this.So(this.provider.fileCalls, should.Equal, 0)
}

func (this *RepositoryClientFixture) TestBlankArguments() {
	_, err1 := this.client.Download(context.Background(), " ", "/data/a.txt", nil)
	_, err2 := this.client.Download(context.Background(), "a.txt", "", nil)
	_, err3 := this.client.DownloadToDirectory(context.Background(), "a.txt", "", nil)

	this.So(errors.Is(err1, contracts.ConfigurationErr), should.BeTrue)
	this.So(errors.Is(err2, contracts.ConfigurationErr), should.BeTrue)
	this.So(errors.Is(err3, contracts.ConfigurationErr), should.BeTrue)
	this.So(this.provider.manifestCalls, should.Equal, 0)
}

func (this *RepositoryClientFixture) TestTypedManifest() {
	entries, err := GetTypedManifest[sampleMetadata](context.Background(), this.client, nil)

	this.So(err, should.BeNil)
	this.So(entries, should.HaveLength, 4)
	this.So(entries[0].Metadata, should.BeNil)
	this.So(entries[1].Metadata, should.Resemble, &sampleMetadata{MinAppVersion: "1.0"})
}
