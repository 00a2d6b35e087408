package shell

import (
	"os"

	"github.com/spf13/afero"

	"github.com/smarty/repofiles/contracts"
)

type Environment struct{}

func NewEnvironment() *Environment {
	return &Environment{}
}

func (this *Environment) LookupEnv(key string) (value string, set bool) {
	return os.LookupEnv(key)
}

var _ contracts.Environment = new(Environment)

// NewDiskFileSystem is the operating system's file system, relative paths
// resolving against the working directory.
func NewDiskFileSystem() afero.Fs {
	return afero.NewOsFs()
}
