package quickinstall

import (
	"errors"

	"github.com/aexvir/quickinstall/command"
	"github.com/aexvir/quickinstall/transfer"
)

// Outcome of a successful installation.
type Outcome int

const (
	InstalledFromArtifact Outcome = iota + 1
	BuiltFromSource
)

func (o Outcome) String() string {
	switch o {
	case InstalledFromArtifact:
		return "installed from artifact"
	case BuiltFromSource:
		return "built from source"
	default:
		return "unknown"
	}
}

// Status is the value reported to the stats server.
// The set is closed so reports can't leak arbitrary data.
type Status string

const (
	StatusInstalledFromTarball Status = "installed-from-tarball"
	StatusBuiltFromSource      Status = "built-from-source"
	StatusMissingCrateName     Status = "missing-crate-name-argument"
	StatusCommandFailed        Status = "command-failed"
	StatusIOError              Status = "io-error"
	StatusCargoInstallFailed   Status = "cargo-install-failed"
	StatusCrateDoesNotExist    Status = "crate-does-not-exist"
	StatusNoFallback           Status = "no-fallback"
	StatusInvalidJSON          Status = "invalid-json"
	StatusJSONErr              Status = "json-err"
	StatusRustcOutput          Status = "fail-to-parse-rustc-output"
	StatusTransferFailed       Status = "transfer-failed"
)

// StatusOf classifies the result of an installation attempt.
func StatusOf(outcome Outcome, err error) Status {
	if err == nil {
		if outcome == BuiltFromSource {
			return StatusBuiltFromSource
		}
		return StatusInstalledFromTarball
	}

	var (
		missing  *MissingCrateError
		notfound *CrateNotFoundError
		nofall   *NoFallbackError
		parse    *ParseError
		payload  *transfer.PayloadError
		shape    *transfer.ShapeError
		failed   *command.FailedError
		terr     *transfer.Error
	)

	switch {
	case errors.As(err, &missing):
		return StatusMissingCrateName
	case errors.As(err, &notfound):
		return StatusCrateDoesNotExist
	case errors.As(err, &nofall):
		return StatusNoFallback
	case errors.Is(err, ErrBuildFailed):
		return StatusCargoInstallFailed
	case errors.As(err, &parse):
		return StatusRustcOutput
	case errors.As(err, &payload):
		return StatusInvalidJSON
	case errors.As(err, &shape):
		return StatusJSONErr
	// curl failures are transfer errors wrapping the failed command
	case errors.As(err, &failed):
		return StatusCommandFailed
	case errors.As(err, &terr):
		return StatusTransferFailed
	default:
		return StatusIOError
	}
}
