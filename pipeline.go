package quickinstall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aexvir/quickinstall/config"
	"github.com/aexvir/quickinstall/report"
	"github.com/aexvir/quickinstall/transfer"
)

// Pipeline resolves and installs crates.
// Every crate goes through the same steps: resolve the version if it wasn't
// pinned, install through the selected [Installer] and report the outcome.
type Pipeline struct {
	cfg       *config.Config
	client    transfer.Client
	reporter  *report.Reporter
	installer Installer
	out       io.Writer

	target   string
	fallback bool
	force    bool
	dryrun   bool
	binstall bool

	// bootstrapping is set on the nested pipeline installing cargo-binstall,
	// which must never delegate to cargo-binstall itself.
	bootstrapping bool

	triple   string
	prepared bool
}

// New constructs a pipeline installing into the directories of cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := Pipeline{
		cfg:      cfg,
		out:      os.Stdout,
		fallback: true,
		binstall: true,
	}

	for _, opt := range opts {
		opt(&p)
	}

	if p.client == nil {
		p.client = transfer.Default(cfg.UserAgent)
	}
	if p.reporter == nil {
		p.reporter = report.New(p.client, cfg.StatsURL, cfg.Agent)
	}

	return &p
}

// Prepare resolves the target triple and selects the installer.
// Both probes run concurrently; if cargo-binstall is missing or too old it's
// bootstrapped through a nested pipeline before anything else gets installed.
// Calling Prepare more than once is a no-op.
func (p *Pipeline) Prepare(ctx context.Context) error {
	if p.prepared {
		return nil
	}

	logger := p.log(ctx)
	delegate := p.installer == nil && p.binstall && !p.bootstrapping

	var (
		host      string
		installed string
		found     bool
	)

	g, gctx := errgroup.WithContext(ctx)
	if p.target == "" {
		g.Go(func() error {
			triple, err := HostTriple(gctx)
			host = triple
			return err
		})
	}
	if delegate {
		g.Go(func() error {
			installed, found = BinstallVersion(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.triple = p.target
	if p.triple == "" {
		p.triple = host
	}

	logger.Debug().
		Str("triple", p.triple).
		Bool("binstall", found).
		Str("binstall_version", installed).
		Msg("startup probes done")

	switch {
	case p.installer != nil:
	case !delegate:
		p.installer = NewDirect(p.cfg, p.client, p.out, p.fallback, p.force)
	case found && BinstallCompatible(installed):
		p.installer = NewBinstall(p.fallback, p.force)
	default:
		// cargo-binstall runs on this machine, so it's always bootstrapped for the host
		if host == "" {
			var err error
			if host, err = HostTriple(ctx); err != nil {
				return err
			}
		}

		script, err := p.bootstrap(ctx, host)
		if err != nil {
			return fmt.Errorf("failed to bootstrap %s: %w", binstallCrate, err)
		}

		installer := NewBinstall(p.fallback, p.force)
		installer.bootstrap = script
		p.installer = installer
	}

	p.prepared = true
	return nil
}

// bootstrap installs cargo-binstall for host, first from quickinstall artifacts
// and then from the upstream releases. On dry runs it returns the commands
// that would be run instead.
func (p *Pipeline) bootstrap(ctx context.Context, host string) (string, error) {
	p.log(ctx).Debug().Str("triple", host).Msg("bootstrapping cargo-binstall")

	child := New(
		p.cfg,
		WithClient(p.client),
		WithReporter(p.reporter),
		WithOutput(p.out),
		WithTarget(host),
		WithFallback(false),
		WithForce(p.force),
		WithDryRun(p.dryrun),
		WithBinstall(false),
	)
	child.bootstrapping = true

	req := Request{Crate: binstallCrate}
	up := &upstream{cfg: p.cfg, client: p.client, out: p.out}

	var nofallback *NoFallbackError

	if p.dryrun {
		script, err := child.DryRun(ctx, req)
		if errors.As(err, &nofallback) {
			return up.dryrun(ctx, host)
		}
		return script, err
	}

	err := child.Install(ctx, req)
	if errors.As(err, &nofallback) {
		logstep(p.out, fmt.Sprintf("installing %s from upstream releases", binstallCrate))
		start := time.Now()
		err = up.install(ctx, host)
		logresult(p.out, start, err)
	}
	return "", err
}

// resolve turns req into a target, looking up the latest version if none was pinned.
func (p *Pipeline) resolve(ctx context.Context, req Request) (Target, error) {
	target := Target{Crate: req.Crate, Version: req.Version, Triple: p.triple}
	if target.Version != "" {
		return target, nil
	}

	version, err := LatestVersion(ctx, p.client, p.cfg.RegistryURL, req.Crate)
	if err != nil {
		return target, err
	}

	target.Version = version
	return target, nil
}

// DryRun returns the commands that installing req would run.
func (p *Pipeline) DryRun(ctx context.Context, req Request) (string, error) {
	if err := p.Prepare(ctx); err != nil {
		return "", err
	}

	target, err := p.resolve(ctx, req)
	if err != nil {
		return "", err
	}

	return p.installer.DryRun(ctx, target)
}

// Install installs a single crate and reports its outcome in the background.
// On dry runs the commands are printed instead.
func (p *Pipeline) Install(ctx context.Context, req Request) error {
	if p.dryrun {
		script, err := p.DryRun(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.out, script)
		return nil
	}

	if err := p.Prepare(ctx); err != nil {
		p.report(ctx, Target{Crate: req.Crate, Version: req.Version, Triple: p.target}, 0, err)
		return err
	}

	logstep(p.out, fmt.Sprintf("installing %s", req))
	start := time.Now()

	target, err := p.resolve(ctx, req)

	var outcome Outcome
	if err == nil {
		logdetail(p.out, fmt.Sprintf("resolved %s", target))
		outcome, err = p.installer.Install(ctx, target)
	}

	logresult(p.out, start, err)

	p.report(ctx, target, outcome, err)

	return err
}

// InstallAll installs every crate in order, stopping at the first failure.
// Unless dry running, a summary line with the total time is printed at the end.
func (p *Pipeline) InstallAll(ctx context.Context, reqs ...Request) error {
	start := time.Now()

	var err error
	for _, req := range reqs {
		if err = p.Install(ctx, req); err != nil {
			break
		}
	}

	if p.dryrun {
		return err
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Fprintf(p.out, "------------------------\n\n")

	if err != nil {
		color.New(color.FgRed).Fprintf(p.out, " ✘ finished with errors after %s\n\n", elapsed)
		return err
	}

	color.New(color.FgGreen).Fprintf(p.out, " ✔ all good after %s\n\n", elapsed)
	return nil
}

// report publishes the result of one installation; it's never waited on.
func (p *Pipeline) report(ctx context.Context, target Target, outcome Outcome, err error) {
	status := StatusOf(outcome, err)
	p.log(ctx).Debug().
		Str("crate", target.Crate).
		Str("version", target.Version).
		Str("triple", target.Triple).
		Str("status", string(status)).
		Msg("installation finished")

	p.reporter.Report(ctx, report.Event{
		Crate:   target.Crate,
		Version: target.Version,
		Target:  target.Triple,
		Status:  string(status),
	})
}

func (p *Pipeline) log(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx).With().Str("component", "pipeline").Logger()
	return &logger
}
