package quickinstall

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aexvir/quickinstall/command"
	"github.com/aexvir/quickinstall/transfer"
)

// LatestVersion asks the registry for the latest stable version of crate.
func LatestVersion(ctx context.Context, client transfer.Client, registry, crate string) (string, error) {
	endpoint := strings.TrimSuffix(registry, "/") + "/" + url.PathEscape(crate)

	var payload struct {
		Crate *struct {
			MaxStableVersion *string `json:"max_stable_version"`
		} `json:"crate"`
	}

	if err := transfer.FetchJSON(ctx, client, endpoint, &payload); err != nil {
		if transfer.IsNotFound(err) {
			return "", &CrateNotFoundError{Crate: crate}
		}
		return "", err
	}

	if payload.Crate == nil {
		return "", &transfer.ShapeError{Reason: `Key "crate" not found`}
	}
	if payload.Crate.MaxStableVersion == nil {
		return "", &transfer.ShapeError{Reason: `Key "max_stable_version" not found, or not a string`}
	}

	return strings.TrimSpace(*payload.Crate.MaxStableVersion), nil
}

// HostTriple returns the triple rustc builds for by default.
// If rustc can't tell, the triple is guessed from the platform this binary
// was built for; when that's not possible either the rustc error is returned.
func HostTriple(ctx context.Context) (string, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "pipeline").Logger()

	triple, err := rustcHostTriple(ctx)
	if err == nil {
		return triple, nil
	}

	guess, ok := GuessTriple(runtime.GOOS, runtime.GOARCH)
	if !ok {
		logger.Warn().Err(err).Msg("unable to get the host triple from rustc and no guess is available")
		return "", err
	}

	logger.Warn().Err(err).Str("triple", guess).Msg("unable to get the host triple from rustc, using a guess")
	return guess, nil
}

func rustcHostTriple(ctx context.Context) (string, error) {
	res, err := command.Must(ctx, "rustc", command.WithArgs("--version", "--verbose")).Output()
	if err != nil {
		return "", err
	}
	return ParseHostTriple(string(res.Stdout))
}

// ParseHostTriple extracts the triple from the `host: ` line of `rustc --version --verbose`.
// Distributions sometimes set their own vendor on linux (e.g. x86_64-alpine-linux-musl);
// it's replaced with `unknown` so the triple matches the standard rust targets.
func ParseHostTriple(output string) (string, error) {
	var host string
	found := false
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSuffix(line, "\r"), "host: "); ok {
			host, found = rest, true
			break
		}
	}
	if !found {
		return "", &ParseError{Reason: "Fail to find any line starts with 'host: '."}
	}

	parts := strings.SplitN(host, "-", 4)
	if len(parts) < 3 {
		return "", &ParseError{Reason: "rustc returned an invalid triple, contains less than three parts"}
	}
	if parts[2] == "linux" {
		parts[1] = "unknown"
	}

	return strings.Join(parts, "-"), nil
}

var guessedArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7",
	"riscv64": "riscv64gc",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
}

// GuessTriple maps a GOOS/GOARCH pair onto the closest rust target triple.
func GuessTriple(goos, goarch string) (string, bool) {
	arch, ok := guessedArch[goarch]
	if !ok {
		return "", false
	}

	switch goos {
	case "linux":
		if goarch == "arm" {
			return fmt.Sprintf("%s-unknown-linux-gnueabihf", arch), true
		}
		return fmt.Sprintf("%s-unknown-linux-gnu", arch), true
	case "darwin":
		return fmt.Sprintf("%s-apple-darwin", arch), true
	case "windows":
		return fmt.Sprintf("%s-pc-windows-msvc", arch), true
	case "freebsd", "netbsd":
		return fmt.Sprintf("%s-unknown-%s", arch, goos), true
	case "android":
		if goarch == "arm" {
			return "armv7-linux-androideabi", true
		}
		return fmt.Sprintf("%s-linux-android", arch), true
	default:
		return "", false
	}
}
