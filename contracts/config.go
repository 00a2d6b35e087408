package contracts

import "github.com/smarty/gcs"

const (
	GitHubProviderName = "GitHub"
	GCSProviderName    = "GCS"
	LocalProviderName  = "Local"

	DefaultBranch       = "main"
	DefaultManifestPath = "manifest.json"
	DefaultMaxRetry     = 3
)

// DownloadOptions is a configuration snapshot. It is passed by value, so
// every operation works on its own copy.
type DownloadOptions struct {
	TargetDirectory              string `json:"TargetDirectory" yaml:"targetDirectory"`
	SkipIfSameSizeAndDate        bool   `json:"SkipIfSameSizeAndDate" yaml:"skipIfSameSizeAndDate"`
	Overwrite                    bool   `json:"Overwrite" yaml:"overwrite"`
	EnsureDirectoryExists        bool   `json:"EnsureDirectoryExists" yaml:"ensureDirectoryExists"`
	SetLastWriteTimeFromManifest bool   `json:"SetLastWriteTimeFromManifest" yaml:"setLastWriteTimeFromManifest"`
	VerifySize                   bool   `json:"VerifySize" yaml:"verifySize"`
}

func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		SkipIfSameSizeAndDate:        true,
		Overwrite:                    false,
		EnsureDirectoryExists:        true,
		SetLastWriteTimeFromManifest: true,
		VerifySize:                   false,
	}
}

type PublishConfig struct {
	Owner          string `json:"Owner" yaml:"owner"`
	Repository     string `json:"Repository" yaml:"repository"`
	Branch         string `json:"Branch" yaml:"branch"`
	Token          string `json:"Token" yaml:"token"`
	CommitterName  string `json:"CommitterName" yaml:"committerName"`
	CommitterEmail string `json:"CommitterEmail" yaml:"committerEmail"`
}

type GitHubConfig struct {
	Owner        string `json:"Owner" yaml:"owner"`
	Repository   string `json:"Repository" yaml:"repository"`
	Branch       string `json:"Branch" yaml:"branch"`
	ManifestPath string `json:"ManifestPath" yaml:"manifestPath"`
}

type GCSConfig struct {
	RemoteAddress URL    `json:"RemoteAddress" yaml:"remoteAddress"`
	ManifestPath  string `json:"ManifestPath" yaml:"manifestPath"`
}

type LocalConfig struct {
	Directory    string `json:"Directory" yaml:"directory"`
	ManifestPath string `json:"ManifestPath" yaml:"manifestPath"`
}

type RepoFilesConfig struct {
	Provider        string          `json:"Provider" yaml:"provider"`
	GitHub          GitHubConfig    `json:"GitHub" yaml:"github"`
	GCS             GCSConfig       `json:"GCS" yaml:"gcs"`
	Local           LocalConfig     `json:"Local" yaml:"local"`
	GitHubPublisher PublishConfig   `json:"GitHubPublisher" yaml:"githubPublisher"`
	Download        DownloadOptions `json:"Download" yaml:"download"`
	MaxRetry        int             `json:"MaxRetry" yaml:"maxRetry"`
}

// ManifestPath reports the manifest location of the selected provider.
func (this RepoFilesConfig) ManifestPath() string {
	switch this.Provider {
	case GCSProviderName:
		return this.GCS.ManifestPath
	case LocalProviderName:
		return this.Local.ManifestPath
	default:
		return this.GitHub.ManifestPath
	}
}

func DefaultRepoFilesConfig() RepoFilesConfig {
	return RepoFilesConfig{
		GitHub:          GitHubConfig{Branch: DefaultBranch, ManifestPath: DefaultManifestPath},
		GCS:             GCSConfig{ManifestPath: DefaultManifestPath},
		Local:           LocalConfig{ManifestPath: DefaultManifestPath},
		GitHubPublisher: PublishConfig{Branch: DefaultBranch},
		Download:        DefaultDownloadOptions(),
		MaxRetry:        DefaultMaxRetry,
	}
}

// Config is the fully resolved configuration of one command invocation.
type Config struct {
	Command        string
	Arguments      []string
	ConfigPath     string
	Destination    string
	Message        string
	RepoFiles      RepoFilesConfig
	GCSCredentials gcs.Credentials
}
