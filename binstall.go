package quickinstall

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"

	"github.com/aexvir/quickinstall/archive"
	"github.com/aexvir/quickinstall/command"
	"github.com/aexvir/quickinstall/config"
	"github.com/aexvir/quickinstall/transfer"
)

const binstallCrate = "cargo-binstall"

// BinstallCompatible reports whether the given cargo-binstall version supports
// every flag passed by [BinstallCommand]; that's any release from 0.17 onwards.
func BinstallCompatible(version string) bool {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return false
	}

	// `cargo binstall -V` prints the bare version, but be lenient about a leading name
	v := fields[len(fields)-1]
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return false
	}

	if semver.Major(v) != "v0" {
		return true
	}
	return semver.Compare(semver.MajorMinor(v), "v0.17") >= 0
}

// BinstallVersion returns the version of the installed cargo-binstall, if any.
func BinstallVersion(ctx context.Context) (string, bool) {
	logger := zerolog.Ctx(ctx).With().Str("component", "binstall").Logger()

	res, err := command.Must(ctx, "cargo", command.WithArgs("binstall", "-V")).Output()
	if err != nil {
		logger.Debug().Err(err).Msg("cargo-binstall not available")
		return "", false
	}

	version := strings.TrimSpace(string(res.Stdout))
	logger.Debug().Str("version", version).Msg("found cargo-binstall")
	return version, true
}

// BinstallCommand builds the cargo-binstall invocation installing target.
// Binstall reporting is disabled since outcomes are reported here.
func BinstallCommand(ctx context.Context, target Target, fallback, force bool) *command.Invocation {
	args := []string{
		"binstall",
		"--no-confirm",
		"--disable-telemetry",
		"--version", target.Version,
		"--targets", target.Triple,
	}
	if force {
		args = append(args, "--force")
	}
	if !fallback {
		args = append(args, "--disable-strategies", "compile")
	}
	args = append(args, target.Crate)

	return command.Must(ctx, "cargo", command.WithArgs(args...))
}

// Binstall delegates installations to cargo-binstall.
type Binstall struct {
	fallback bool
	force    bool
	// bootstrap holds the commands that would install cargo-binstall itself,
	// only set on dry runs where it isn't installed yet.
	bootstrap string
}

// NewBinstall creates a [Binstall] installer.
func NewBinstall(fallback, force bool) *Binstall {
	return &Binstall{fallback: fallback, force: force}
}

// Install runs cargo-binstall attached to the terminal.
// Binstall's exit status doesn't tell how the crate got installed, so every
// success counts as installed from an artifact.
func (b *Binstall) Install(ctx context.Context, target Target) (Outcome, error) {
	if err := BinstallCommand(ctx, target, b.fallback, b.force).Run(); err != nil {
		return 0, err
	}
	return InstalledFromArtifact, nil
}

func (b *Binstall) DryRun(ctx context.Context, target Target) (string, error) {
	cmd := BinstallCommand(ctx, target, b.fallback, b.force).String()
	if b.bootstrap == "" {
		return cmd, nil
	}
	return b.bootstrap + "\n" + cmd, nil
}

// upstream provides cargo-binstall straight from its own github releases,
// for when no quickinstall artifact exists for the host.
type upstream struct {
	cfg    *config.Config
	client transfer.Client
	out    io.Writer
}

// locate returns the release url and archive format for triple.
// Only linux releases are published as tarballs.
func (u *upstream) locate(triple string) (string, string, error) {
	format := "zip"
	if strings.Contains(triple, "linux") {
		format = "tgz"
	}

	url, err := Template{Target: triple, ArchiveFormat: format}.Resolve(u.cfg.BinstallUpstreamTemplate)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve cargo-binstall release url: %w", err)
	}
	return url, format, nil
}

func (u *upstream) install(ctx context.Context, triple string) error {
	url, format, err := u.locate(triple)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(u.cfg.BinDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination folder %s: %w", u.cfg.BinDir, err)
	}

	logdetail(u.out, fmt.Sprintf("downloading %s", url))

	var report string
	if format == "tgz" {
		stream, err := u.client.Stream(ctx, url)
		if err != nil {
			return err
		}
		report, err = archive.Extract(ctx, stream, u.cfg.BinDir)
		if err != nil {
			return err
		}
	} else {
		report, err = archive.DownloadAndUnzip(ctx, u.client, url, u.cfg.BinDir)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(u.out, "Installed %s to %s:\n%s", binstallCrate, u.cfg.BinDir, report)
	return nil
}

func (u *upstream) dryrun(ctx context.Context, triple string) (string, error) {
	url, format, err := u.locate(triple)
	if err != nil {
		return "", err
	}

	if err := u.client.Head(ctx, url); err != nil {
		return "", err
	}

	if format == "tgz" {
		return archive.DryRunUntar(ctx, u.cfg.UserAgent, url, u.cfg.BinDir), nil
	}
	return archive.DryRunUnzipScript(ctx, u.cfg.UserAgent, url, u.cfg.BinDir), nil
}
