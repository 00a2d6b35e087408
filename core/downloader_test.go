package core

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/smarty/assertions/should"
	"github.com/smarty/gunit"
	"github.com/smartystreets/logging"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

func TestDownloaderFixture(t *testing.T) {
	gunit.Run(new(DownloaderFixture), t)
}

type DownloaderFixture struct {
	*gunit.Fixture
	provider   *FakeProvider
	fileSystem afero.Fs
	downloader *Downloader
	entry      contracts.ManifestEntry
	options    contracts.DownloadOptions
	modified   time.Time
}

func (this *DownloaderFixture) Setup() {
	this.modified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	this.provider = NewFakeProvider("[]")
	this.provider.files["a.txt"] = "0123456789"
	this.fileSystem = afero.NewMemMapFs()
	this.downloader = NewDownloader(this.provider, this.fileSystem)
	this.downloader.logger = logging.Capture()
	this.entry = contracts.ManifestEntry{Filename: "a.txt", Size: 10, ModifyDate: this.modified}
	this.options = contracts.DefaultDownloadOptions()
}

func (this *DownloaderFixture) TestMissingFileIsDownloadedAndStamped() {
	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
	this.So(this.readFile("/data/a.txt"), should.Equal, "0123456789")
	info, _ := this.fileSystem.Stat("/data/a.txt")
	this.So(info.ModTime().UTC(), should.Equal, this.modified)
}

func (this *DownloaderFixture) TestMatchingLocalFileIsNotTransferred() {
	this.writeFile("/data/a.txt", "local-copy", this.modified)

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeFalse)
	this.So(this.provider.fileCalls, should.Equal, 0)
	this.So(this.readFile("/data/a.txt"), should.Equal, "local-copy")
}

func (this *DownloaderFixture) TestStaleLocalFileIsReplacedWithOverwrite() {
	this.writeFile("/data/a.txt", "old", this.modified.Add(-time.Hour))
	this.options.Overwrite = true

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
	this.So(this.readFile("/data/a.txt"), should.Equal, "0123456789")
}

func (this *DownloaderFixture) TestStaleLocalFileIsKeptWithoutOverwrite() {
	this.writeFile("/data/a.txt", "old", this.modified.Add(-time.Hour))

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeFalse)
	this.So(this.readFile("/data/a.txt"), should.Equal, "old")
}

func (this *DownloaderFixture) TestExistingFileWithoutOverwriteFailsTheWrite() {
	this.writeFile("/data/a.txt", "old", this.modified)

	_, err := this.downloader.copyToFile(strings.NewReader("new"), "/data/a.txt", 3, false)

	this.So(errors.Is(err, fs.ErrExist), should.BeTrue)
	this.So(this.readFile("/data/a.txt"), should.Equal, "old")
}

func (this *DownloaderFixture) TestUnknownDateLeavesModificationTimeAlone() {
	this.entry.ModifyDate = contracts.UnknownModifyDate

	_, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	info, _ := this.fileSystem.Stat("/data/a.txt")
	this.So(info.ModTime().Equal(this.modified), should.BeFalse)
}

func (this *DownloaderFixture) TestModificationTimeOptionDisabled() {
	this.options.SetLastWriteTimeFromManifest = false

	_, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	info, _ := this.fileSystem.Stat("/data/a.txt")
	this.So(info.ModTime().Equal(this.modified), should.BeFalse)
}

func (this *DownloaderFixture) TestProviderFailurePropagates() {
	this.provider.fileErr = anError

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(downloaded, should.BeFalse)
	this.So(err, should.Equal, anError)
	exists, _ := afero.Exists(this.fileSystem, "/data/a.txt")
	this.So(exists, should.BeFalse)
}

func (this *DownloaderFixture) TestCanceledContextStopsBeforeAnyWork() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	downloaded, err := this.downloader.Download(ctx, this.entry, "/data/a.txt", this.options)

	this.So(downloaded, should.BeFalse)
	this.So(errors.Is(err, context.Canceled), should.BeTrue)
	this.So(this.provider.fileCalls, should.Equal, 0)
}

func (this *DownloaderFixture) TestSizeIsNotVerifiedByDefault() {
	this.entry.Size = 99

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
	this.So(this.readFile("/data/a.txt"), should.Equal, "0123456789")
}

func (this *DownloaderFixture) TestVerifySizeRemovesMismatchedFile() {
	this.entry.Size = 99
	this.options.VerifySize = true

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(downloaded, should.BeTrue)
	this.So(errors.Is(err, contracts.IntegrityErr), should.BeTrue)
	exists, _ := afero.Exists(this.fileSystem, "/data/a.txt")
	this.So(exists, should.BeFalse)
}

func (this *DownloaderFixture) TestVerifySizeAcceptsMatchingFile() {
	this.options.VerifySize = true

	downloaded, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(downloaded, should.BeTrue)
}

func (this *DownloaderFixture) TestProgressIsReported() {
	var reports []string
	this.downloader.WithProgress(func(written, total string, done bool) {
		if done {
			reports = append(reports, written+"/"+total)
		}
	})

	_, err := this.downloader.Download(context.Background(), this.entry, "/data/a.txt", this.options)

	this.So(err, should.BeNil)
	this.So(reports, should.Resemble, []string{"10 B/10 B"})
}

func (this *DownloaderFixture) writeFile(path, content string, modified time.Time) {
	_ = afero.WriteFile(this.fileSystem, path, []byte(content), 0644)
	_ = this.fileSystem.Chtimes(path, modified, modified)
}

func (this *DownloaderFixture) readFile(path string) string {
	raw, _ := afero.ReadFile(this.fileSystem, path)
	return string(raw)
}
