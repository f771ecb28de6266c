package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aexvir/quickinstall"
	"github.com/aexvir/quickinstall/config"
)

const usage = `USAGE:
    cargo quickinstall [OPTIONS] -- CRATE_NAME[@VERSION]...

For more information try --help
`

// cargo runs subcommands as `cargo-<name> <name> args...`
const subcommand = "quickinstall"

type flags struct {
	version      string
	target       string
	noFallback   bool
	noBinstall   bool
	force        bool
	dryRun       bool
	verbose      bool
	printVersion bool
}

// newRootCmd creates the cargo-quickinstall command.
// Environment lookups go through lookupEnv and extra pipeline options can be
// appended, so tests don't depend on the machine they run on.
func newRootCmd(lookupEnv config.LookupEnv, extra ...quickinstall.Option) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "cargo-quickinstall [OPTIONS] [--] CRATE[@VERSION]...",
		Short: "Install prebuilt binaries of rust crates",
		Long: "Installs prebuilt binaries of rust crates, falling back to `cargo install` " +
			"when no prebuilt binary exists for the crate version and target.",
		Example: "  cargo quickinstall ripgrep\n" +
			"  cargo quickinstall --version 13.0.0 ripgrep\n" +
			"  cargo quickinstall --dry-run --no-binstall bat@0.24.0 fd-find",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, f, lookupEnv, extra)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.version, "version", "", "Specify a version to install")
	fs.StringVar(&f.target, "target", "", "Install package for the target triple")
	fs.BoolVar(&f.noFallback, "no-fallback", false, "Don't fall back to `cargo install`")
	fs.BoolVar(&f.noBinstall, "no-binstall", false, "Don't use `cargo binstall` to install packages")
	fs.BoolVar(&f.force, "force", false, "Install the crate even if it's already installed")
	fs.BoolVar(&f.dryRun, "dry-run", false, `Print the "curl | tar" command that would be run to fetch the binary`)
	fs.BoolVar(&f.verbose, "verbose", false, "Print debug logs to stderr")
	fs.BoolVarP(&f.printVersion, "print-version", "V", false, "Print version info and exit")

	return cmd
}

func run(cmd *cobra.Command, args []string, f flags, lookupEnv config.LookupEnv, extra []quickinstall.Option) error {
	if f.printVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "cargo-quickinstall %s\n", quickinstall.Version)
		return nil
	}

	reqs, err := requests(args, f.version)
	if err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if f.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(quickinstall.Version, lookupEnv)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("component", "cli").
		Str("root", cfg.Root).
		Strs("crates", args).
		Msg("starting installation")

	opts := append([]quickinstall.Option{
		quickinstall.WithTarget(f.target),
		quickinstall.WithFallback(!f.noFallback),
		quickinstall.WithBinstall(!f.noBinstall),
		quickinstall.WithForce(f.force),
		quickinstall.WithDryRun(f.dryRun),
		quickinstall.WithOutput(cmd.OutOrStdout()),
	}, extra...)

	return quickinstall.New(cfg, opts...).InstallAll(ctx, reqs...)
}

// requests parses the positional arguments, applying the --version flag if set.
func requests(args []string, version string) ([]quickinstall.Request, error) {
	if len(args) > 0 && args[0] == subcommand {
		args = args[1:]
	}

	if len(args) == 0 {
		return nil, &quickinstall.MissingCrateError{Usage: usage}
	}
	if version != "" && len(args) > 1 {
		return nil, errors.New("--version can only be used when installing a single crate")
	}

	reqs := make([]quickinstall.Request, 0, len(args))
	for _, arg := range args {
		req, err := quickinstall.ParseRequest(arg)
		if err != nil {
			return nil, err
		}

		if version != "" {
			if req.Version != "" && req.Version != version {
				return nil, fmt.Errorf("conflicting versions for %s: %s and %s", req.Crate, req.Version, version)
			}
			req.Version = version
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}
