package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/smarty/repofiles/contracts"
)

const (
	ListCommand = "list"
	PullCommand = "pull"
	PushCommand = "push"
)

// DefaultConfigFiles are probed, in order, when no --config is given.
var DefaultConfigFiles = []string{"repofiles.json", "repofiles.yaml", "repofiles.yml", "appsettings.json"}

type configDocument struct {
	RepoFiles *contracts.RepoFilesConfig `json:"RepoFiles" yaml:"repoFiles"`
}

// ConfigLoader resolves a command's configuration from defaults, a config
// file, the environment and finally the command line.
type ConfigLoader struct {
	credentials CredentialParser
	fileSystem  afero.Fs
	environment contracts.Environment
	stderr      io.Writer
}

func NewConfigLoader(fileSystem afero.Fs, environment contracts.Environment, stderr io.Writer) *ConfigLoader {
	return &ConfigLoader{
		credentials: NewGoogleCredentialParser(fileSystem, environment),
		fileSystem:  fileSystem,
		environment: environment,
		stderr:      stderr,
	}
}

func (this *ConfigLoader) LoadConfig(command string, args []string) (config contracts.Config, err error) {
	flags, overrides, err := this.parseCLI(command, args)
	if err != nil {
		return contracts.Config{}, err
	}
	config = overrides.config
	config.RepoFiles, err = this.parseConfigFile(config.ConfigPath)
	if err != nil {
		return contracts.Config{}, err
	}
	this.applyEnvironment(&config.RepoFiles)
	overrides.apply(flags, &config)

	if err = this.validate(&config); err != nil {
		return contracts.Config{}, err
	}
	if config.Command != PushCommand && config.RepoFiles.Provider == contracts.GCSProviderName {
		config.GCSCredentials, err = this.credentials.Parse()
		if err != nil {
			return contracts.Config{}, err
		}
	}
	return config, nil
}

type commandLine struct {
	config     contracts.Config
	maxRetry   int
	overwrite  bool
	verifySize bool
}

func (this *ConfigLoader) parseCLI(command string, args []string) (*pflag.FlagSet, *commandLine, error) {
	line := &commandLine{config: contracts.Config{Command: command}}
	flags := pflag.NewFlagSet("repofiles "+command, pflag.ContinueOnError)
	flags.SetOutput(this.stderr)
	flags.StringVarP(&line.config.ConfigPath, "config", "c", "",
		"Path to the configuration file (json, jsonc or yaml). Defaults to the first of "+strings.Join(DefaultConfigFiles, ", ")+" found in the working directory.")
	flags.IntVar(&line.maxRetry, "max-retry", contracts.DefaultMaxRetry,
		"Number of extra attempts for transient download failures.")

	switch command {
	case PullCommand:
		flags.StringVarP(&line.config.Destination, "dest", "d", "",
			"Directory to download into. Defaults to Download.TargetDirectory, else the working directory.")
		flags.BoolVar(&line.overwrite, "overwrite", false,
			"When set, replace an existing local file.")
		flags.BoolVar(&line.verifySize, "verify-size", false,
			"When set, fail (and remove the file) when the transferred size contradicts the manifest.")
	case PushCommand:
		flags.StringVarP(&line.config.Message, "message", "m", "",
			"Commit message. Defaults to 'Publish <destination>'.")
	case ListCommand:
	default:
		return nil, nil, fmt.Errorf("%w: unknown command '%s'", contracts.ConfigurationErr, command)
	}

	flags.Usage = func() {
		_, _ = fmt.Fprintf(this.stderr, "Usage of repofiles %s %s:\n", command, usageArguments[command])
		flags.PrintDefaults()
		_, _ = fmt.Fprintln(this.stderr, `
exit code 0: success
exit code 1: failure (see stderr for details)`)
	}
	if err := flags.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
	}
	line.config.Arguments = flags.Args()
	return flags, line, nil
}

var usageArguments = map[string]string{
	ListCommand: "[pattern...]",
	PullCommand: "<filename>",
	PushCommand: "<source> <destination>",
}

func (this *commandLine) apply(flags *pflag.FlagSet, config *contracts.Config) {
	if flags.Changed("max-retry") {
		config.RepoFiles.MaxRetry = this.maxRetry
	}
	if flags.Changed("overwrite") {
		config.RepoFiles.Download.Overwrite = this.overwrite
	}
	if flags.Changed("verify-size") {
		config.RepoFiles.Download.VerifySize = this.verifySize
	}
}

func (this *ConfigLoader) parseConfigFile(path string) (contracts.RepoFilesConfig, error) {
	config := contracts.DefaultRepoFilesConfig()
	path, err := this.locateConfigFile(path)
	if err != nil || path == "" {
		return config, err
	}
	raw, err := afero.ReadFile(this.fileSystem, path)
	if err != nil {
		return config, fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
	}
	document := configDocument{RepoFiles: &config}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &document)
	default:
		err = json.Unmarshal(jsonc.ToJSON(raw), &document)
	}
	if err != nil {
		return config, fmt.Errorf("%w: config file '%s': %w", contracts.ConfigurationErr, path, err)
	}
	if document.RepoFiles == nil {
		return contracts.DefaultRepoFilesConfig(), nil
	}
	return *document.RepoFiles, nil
}

func (this *ConfigLoader) locateConfigFile(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := homedir.Expand(strings.TrimSpace(path))
		if err != nil {
			return "", fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
		}
		return expanded, nil
	}
	for _, candidate := range DefaultConfigFiles {
		_, err := this.fileSystem.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
		}
	}
	return "", nil
}

func (this *ConfigLoader) applyEnvironment(config *contracts.RepoFilesConfig) {
	this.override("REPOFILES_PROVIDER", &config.Provider)
	this.override("REPOFILES_GITHUB_OWNER", &config.GitHub.Owner)
	this.override("REPOFILES_GITHUB_REPOSITORY", &config.GitHub.Repository)
	this.override("REPOFILES_GITHUB_BRANCH", &config.GitHub.Branch)
	this.override("REPOFILES_GITHUB_MANIFEST_PATH", &config.GitHub.ManifestPath)
	this.override("REPOFILES_COMMITTER_NAME", &config.GitHubPublisher.CommitterName)
	this.override("REPOFILES_COMMITTER_EMAIL", &config.GitHubPublisher.CommitterEmail)
	if !this.override("REPOFILES_PUBLISHER_TOKEN", &config.GitHubPublisher.Token) &&
		strings.TrimSpace(config.GitHubPublisher.Token) == "" {
		this.override("GITHUB_TOKEN", &config.GitHubPublisher.Token)
	}
}

func (this *ConfigLoader) override(key string, target *string) bool {
	value, found := this.environment.LookupEnv(key)
	value = strings.TrimSpace(value)
	if !found || value == "" {
		return false
	}
	*target = value
	return true
}

func (this *ConfigLoader) validate(config *contracts.Config) error {
	repoFiles := &config.RepoFiles
	if repoFiles.MaxRetry < 0 {
		return fmt.Errorf("%w: max-retry must not be negative", contracts.ConfigurationErr)
	}
	if err := validateArguments(config.Command, config.Arguments); err != nil {
		return err
	}
	if config.Command == PushCommand {
		publisher := &repoFiles.GitHubPublisher
		if strings.TrimSpace(publisher.Owner) == "" {
			publisher.Owner = repoFiles.GitHub.Owner
		}
		if strings.TrimSpace(publisher.Repository) == "" {
			publisher.Repository = repoFiles.GitHub.Repository
		}
		return requireAll("GitHubPublisher", map[string]string{
			"Owner":      publisher.Owner,
			"Repository": publisher.Repository,
		})
	}

	provider, err := normalizeProvider(repoFiles.Provider)
	if err != nil {
		return err
	}
	repoFiles.Provider = provider
	if config.Command == PullCommand {
		config.Destination = firstNonBlank(config.Destination, repoFiles.Download.TargetDirectory, ".")
	}

	switch provider {
	case contracts.GCSProviderName:
		return requireAll("GCS", map[string]string{
			"RemoteAddress (bucket)": repoFiles.GCS.RemoteAddress.Host,
			"ManifestPath":           repoFiles.GCS.ManifestPath,
		})
	case contracts.LocalProviderName:
		return requireAll("Local", map[string]string{
			"Directory":    repoFiles.Local.Directory,
			"ManifestPath": repoFiles.Local.ManifestPath,
		})
	default:
		return requireAll("GitHub", map[string]string{
			"Owner":        repoFiles.GitHub.Owner,
			"Repository":   repoFiles.GitHub.Repository,
			"Branch":       repoFiles.GitHub.Branch,
			"ManifestPath": repoFiles.GitHub.ManifestPath,
		})
	}
}

func validateArguments(command string, arguments []string) error {
	switch {
	case command == PullCommand && len(arguments) != 1:
		return fmt.Errorf("%w: pull requires exactly one filename", contracts.ConfigurationErr)
	case command == PushCommand && len(arguments) != 2:
		return fmt.Errorf("%w: push requires a source and a destination", contracts.ConfigurationErr)
	default:
		return nil
	}
}

func normalizeProvider(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return contracts.GitHubProviderName, nil
	}
	for _, known := range []string{contracts.GitHubProviderName, contracts.GCSProviderName, contracts.LocalProviderName} {
		if strings.EqualFold(name, known) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown provider '%s'", contracts.ConfigurationErr, name)
}

func requireAll(section string, fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s.%s is required", contracts.ConfigurationErr, section, strings.Join(missing, ", "+section+"."))
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
