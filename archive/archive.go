// Package archive unpacks downloaded artifacts into the installation directory
// by handing them to the system tar and unzip tools.
//
// Creating the destination directory is up to the caller.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aexvir/quickinstall/command"
	"github.com/aexvir/quickinstall/transfer"
)

// UntarCommand builds the tar invocation that extracts a gzipped tarball read
// from stdin into dest.
func UntarCommand(ctx context.Context, dest string, opts ...command.Opt) *command.Invocation {
	opts = append([]command.Opt{command.WithArgs("-xzvvf", "-", "-C", dest)}, opts...)
	return command.Must(ctx, "tar", opts...)
}

// UnzipCommand builds the unzip invocation that extracts file into dest.
func UnzipCommand(ctx context.Context, file, dest string) *command.Invocation {
	return command.Must(ctx, "unzip", command.WithArgs("-o", file, "-d", dest))
}

// Untar pipes r into tar and returns everything tar printed,
// stdout followed by stderr, as the extraction report.
func Untar(ctx context.Context, r io.Reader, dest string) (string, error) {
	log(ctx).Debug().Str("dest", dest).Msg("extracting tarball")

	res, err := UntarCommand(ctx, dest, command.WithStdIn(r)).Output()
	if err != nil {
		return "", err
	}
	return report(res), nil
}

// Extract pipes an in-flight transfer into tar.
// The transfer is always joined, and its failure takes precedence over the
// one reported by tar: a download cut short usually makes tar fail too, but
// the transfer is what actually went wrong.
func Extract(ctx context.Context, stream transfer.Stream, dest string) (string, error) {
	out, untarerr := Untar(ctx, stream, dest)

	if err := stream.Wait(); err != nil {
		if untarerr != nil {
			log(ctx).Debug().Err(untarerr).Msg("tar failed after transfer failure")
		}
		return "", err
	}

	return out, untarerr
}

// Unzip extracts the zip archive at file into dest.
func Unzip(ctx context.Context, file, dest string) (string, error) {
	log(ctx).Debug().Str("file", file).Str("dest", dest).Msg("extracting zip archive")

	res, err := UnzipCommand(ctx, file, dest).Output()
	if err != nil {
		return "", err
	}
	return report(res), nil
}

// DownloadAndUnzip downloads url to a temporary file and extracts it into dest.
// Zip archives can't be extracted from a stream since their index sits at the end.
func DownloadAndUnzip(ctx context.Context, client transfer.Client, url, dest string) (string, error) {
	tmp, err := os.CreateTemp("", "quickinstall-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := client.Download(ctx, url, tmp); err != nil {
		tmp.Close()
		return "", err
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	return Unzip(ctx, tmp.Name(), dest)
}

// DryRunUntar renders the `curl | tar` pipeline equivalent to streaming url into [Extract].
func DryRunUntar(ctx context.Context, useragent, url, dest string) string {
	return fmt.Sprintf("%s | %s", transfer.CurlCommand(ctx, useragent, url), UntarCommand(ctx, dest))
}

// DryRunUnzipScript renders the shell script equivalent to [DownloadAndUnzip].
func DryRunUnzipScript(ctx context.Context, useragent, url, dest string) string {
	curl := transfer.CurlCommand(ctx, useragent, url)

	var bld strings.Builder
	bld.WriteString(`temp="$(mktemp)"` + "\n")
	fmt.Fprintf(&bld, "%s >\"$temp\"\n", curl)
	fmt.Fprintf(&bld, "unzip -o \"$temp\" -d %s", command.Quote(dest))

	return bld.String()
}

func report(res *command.Result) string {
	return string(res.Stdout) + string(res.Stderr)
}

func log(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx).With().Str("component", "archive").Logger()
	return &logger
}
