package core

import (
	"fmt"
	"strings"

	"github.com/smarty/gcs"
	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

const googleCredentialsVariable = "GOOGLE_APPLICATION_CREDENTIALS"

type CredentialParser struct {
	fileSystem  afero.Fs
	environment contracts.Environment
}

func NewGoogleCredentialParser(fileSystem afero.Fs, environment contracts.Environment) CredentialParser {
	return CredentialParser{fileSystem: fileSystem, environment: environment}
}

func (this CredentialParser) Parse() (gcs.Credentials, error) {
	googleCredentialsPath, found := this.environment.LookupEnv(googleCredentialsVariable)
	googleCredentialsPath = strings.TrimSpace(googleCredentialsPath)
	if !found || googleCredentialsPath == "" {
		return gcs.Credentials{}, fmt.Errorf("%w: the %s is required", contracts.ConfigurationErr, googleCredentialsVariable)
	}
	data, err := afero.ReadFile(this.fileSystem, googleCredentialsPath)
	if err != nil {
		return gcs.Credentials{}, fmt.Errorf("%w: %w", contracts.ConfigurationErr, err)
	}
	credentials, err := gcs.ParseCredentialsFromJSON(data)
	if err != nil {
		return gcs.Credentials{}, fmt.Errorf("%w: google credentials: %w", contracts.ConfigurationErr, err)
	}
	return credentials, nil
}
