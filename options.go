package quickinstall

import (
	"io"

	"github.com/aexvir/quickinstall/report"
	"github.com/aexvir/quickinstall/transfer"
)

type Option func(p *Pipeline)

// WithTarget installs for triple instead of the host triple reported by rustc.
func WithTarget(triple string) Option {
	return func(p *Pipeline) {
		p.target = triple
	}
}

// WithFallback controls whether crates without a prebuilt artifact are built
// from source with `cargo install`. Enabled by default.
func WithFallback(enabled bool) Option {
	return func(p *Pipeline) {
		p.fallback = enabled
	}
}

// WithForce reinstalls crates that are already installed.
func WithForce(enabled bool) Option {
	return func(p *Pipeline) {
		p.force = enabled
	}
}

// WithDryRun prints the commands that would be run instead of running them.
// Nothing is reported in dry runs.
func WithDryRun(enabled bool) Option {
	return func(p *Pipeline) {
		p.dryrun = enabled
	}
}

// WithBinstall controls whether installations are delegated to cargo-binstall,
// bootstrapping it first if needed. Enabled by default.
func WithBinstall(enabled bool) Option {
	return func(p *Pipeline) {
		p.binstall = enabled
	}
}

// WithClient sets the client used for every remote request.
func WithClient(client transfer.Client) Option {
	return func(p *Pipeline) {
		p.client = client
	}
}

// WithReporter sets where installation outcomes are reported.
func WithReporter(reporter *report.Reporter) Option {
	return func(p *Pipeline) {
		p.reporter = reporter
	}
}

// WithOutput sets where progress messages and dry run commands are written.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithInstaller skips installer selection, using installer for every crate.
func WithInstaller(installer Installer) Option {
	return func(p *Pipeline) {
		p.installer = installer
	}
}
