package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/smarty/repofiles/contracts"
	"github.com/smarty/repofiles/core"
	"github.com/smarty/repofiles/shell"
)

func main() {
	log.SetFlags(log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]
	if command == "version" {
		versionMain()
		return
	}
	if command == "-h" || command == "--help" || command == "help" {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, command, args)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Println("[ERROR]", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	fileSystem := shell.NewDiskFileSystem()
	loader := core.NewConfigLoader(fileSystem, shell.NewEnvironment(), os.Stderr)
	config, err := loader.LoadConfig(command, args)
	if err != nil {
		return err
	}

	switch config.Command {
	case core.ListCommand:
		return listMain(ctx, config, fileSystem)
	case core.PullCommand:
		return pullMain(ctx, config, fileSystem)
	case core.PushCommand:
		return pushMain(ctx, config, fileSystem)
	default:
		return fmt.Errorf("%w: unknown command '%s'", contracts.ConfigurationErr, config.Command)
	}
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, `Usage of repofiles:
  repofiles list [pattern...] [--config path]
  repofiles pull <filename> [--dest dir] [--overwrite] [--verify-size] [--config path]
  repofiles push <source> <destination> [--message note] [--config path]
  repofiles version

Run 'repofiles <command> --help' for the flags of a command.`)
}

func versionMain() {
	fmt.Printf("repofiles [%s]\n", ldflagsSoftwareVersion)
}

var ldflagsSoftwareVersion = "debug"
