package quickinstall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/aexvir/quickinstall/archive"
	"github.com/aexvir/quickinstall/command"
	"github.com/aexvir/quickinstall/config"
	"github.com/aexvir/quickinstall/transfer"
)

// Installer defines how a resolved target gets installed.
type Installer interface {
	// Install places the binaries of target into the installation directory.
	Install(ctx context.Context, target Target) (Outcome, error)
	// DryRun returns the shell commands Install would run, without changing anything.
	DryRun(ctx context.Context, target Target) (string, error)
}

// Direct installs prebuilt artifacts by streaming them into tar, and falls back
// to `cargo install` when none of the artifact locations has one.
type Direct struct {
	cfg      *config.Config
	client   transfer.Client
	out      io.Writer
	fallback bool
	force    bool
}

// NewDirect creates a [Direct] installer.
// With fallback disabled a missing artifact is reported as a [*NoFallbackError].
func NewDirect(cfg *config.Config, client transfer.Client, out io.Writer, fallback, force bool) *Direct {
	return &Direct{
		cfg:      cfg,
		client:   client,
		out:      out,
		fallback: fallback,
		force:    force,
	}
}

func (d *Direct) Install(ctx context.Context, target Target) (Outcome, error) {
	if err := os.MkdirAll(d.cfg.BinDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination folder %s: %w", d.cfg.BinDir, err)
	}

	urls, err := Candidates(d.cfg.ArtifactTemplates, target)
	if err != nil {
		return 0, err
	}

	var report string
	_, err = firstAvailable(
		ctx,
		urls,
		func(url string) error {
			stream, err := d.client.Stream(ctx, url)
			if err != nil {
				return err
			}
			report, err = archive.Extract(ctx, stream, d.cfg.BinDir)
			return err
		},
		func(string) {
			logdetail(d.out, "Fallback to old release schema")
		},
	)

	switch {
	case err == nil:
		// tar output carries its own trailing newline
		fmt.Fprintf(d.out, "Installed %s@%s to %s:\n%s", target.Crate, target.Version, d.cfg.BinDir, report)
		return InstalledFromArtifact, nil
	case !transfer.IsNotFound(err):
		return 0, err
	case !d.fallback:
		return 0, &NoFallbackError{Target: target}
	}

	fmt.Fprintf(d.out, "Could not find a pre-built package for %s %s on %s.\n", target.Crate, target.Version, target.Triple)
	fmt.Fprintln(d.out, "We have reported your installation request, so it should be built soon.")
	fmt.Fprintln(d.out, "Falling back to `cargo install`.")

	if err := CargoInstallCommand(ctx, target, d.force).Run(); err != nil {
		var failed *command.FailedError
		if errors.As(err, &failed) {
			return 0, ErrBuildFailed
		}
		return 0, err
	}

	return BuiltFromSource, nil
}

func (d *Direct) DryRun(ctx context.Context, target Target) (string, error) {
	urls, err := Candidates(d.cfg.ArtifactTemplates, target)
	if err != nil {
		return "", err
	}

	url, err := firstAvailable(
		ctx,
		urls,
		func(url string) error { return d.client.Head(ctx, url) },
		nil,
	)

	switch {
	case err == nil:
		return archive.DryRunUntar(ctx, d.cfg.UserAgent, url, d.cfg.BinDir), nil
	case !transfer.IsNotFound(err):
		return "", err
	case !d.fallback:
		return "", &NoFallbackError{Target: target}
	default:
		return CargoInstallCommand(ctx, target, d.force).String(), nil
	}
}

// CargoInstallCommand builds the `cargo install` invocation that builds target from source.
func CargoInstallCommand(ctx context.Context, target Target, force bool) *command.Invocation {
	args := []string{"install", target.Crate, "--version", target.Version}
	if force {
		args = append(args, "--force")
	}
	return command.Must(ctx, "cargo", command.WithArgs(args...))
}

// firstAvailable calls try on each url in order and returns the first one that succeeds.
// A 404 moves on to the next url, reporting the miss to onmiss if there is one left;
// any other failure is returned right away. When every url is missing the last
// 404 is returned.
func firstAvailable(ctx context.Context, urls []string, try func(url string) error, onmiss func(url string)) (string, error) {
	if len(urls) == 0 {
		return "", &transfer.Error{StatusCode: http.StatusNotFound, Err: errors.New("no artifact locations configured")}
	}

	var err error
	for i, url := range urls {
		err = try(url)
		if err == nil {
			return url, nil
		}
		if !transfer.IsNotFound(err) {
			return "", err
		}

		zerolog.Ctx(ctx).Debug().
			Str("component", "pipeline").
			Str("url", url).
			Msg("artifact not found")

		if onmiss != nil && i < len(urls)-1 {
			onmiss(url)
		}
	}

	return "", err
}
