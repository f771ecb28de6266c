package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Invocation holds the metadata for a single external command.
// An invocation can be rendered with [Invocation.String] without being executed,
// which is what dry runs rely on; once executed it can't be reused.
type Invocation struct {
	Program   string
	Arguments []string

	ctx context.Context
	cmd *exec.Cmd
}

// New builds an invocation for a specific program.
func New(ctx context.Context, program string, opts ...Opt) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, program)

	inv := Invocation{
		Program: program,
		ctx:     ctx,
		cmd:     cmd,
	}

	for _, opt := range opts {
		if err := opt(&inv); err != nil {
			return nil, err
		}
	}

	cmd.Args = append([]string{program}, inv.Arguments...)

	return &inv, nil
}

// Must is like [New] but panics if an option fails.
// None of the options in this package can.
func Must(ctx context.Context, program string, opts ...Opt) *Invocation {
	inv, err := New(ctx, program, opts...)
	if err != nil {
		panic(err)
	}
	return inv
}

// String renders the command line in a form a POSIX shell parses back
// into the exact same program and arguments.
func (i *Invocation) String() string {
	return Format(i.Program, i.Arguments...)
}

// Result is the captured output of a command that exited successfully.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Output runs the command to completion capturing both output streams.
// A non-zero exit status is reported as a [*FailedError] carrying everything
// the command printed.
func (i *Invocation) Output() (*Result, error) {
	var stdout, stderr bytes.Buffer
	if i.cmd.Stdout == nil {
		i.cmd.Stdout = &stdout
	}
	i.cmd.Stderr = &stderr

	i.log().Debug().Str("command", i.String()).Msg("running command")

	err := i.cmd.Run()
	if err != nil {
		return nil, i.classify(err, stdout.Bytes(), stderr.Bytes())
	}

	return &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// Run executes the command attached to the terminal streams of the current
// process, unless they were overridden with options.
func (i *Invocation) Run() error {
	if i.cmd.Stdout == nil {
		i.cmd.Stdout = os.Stdout
	}
	if i.cmd.Stderr == nil {
		i.cmd.Stderr = os.Stderr
	}
	if i.cmd.Stdin == nil {
		i.cmd.Stdin = os.Stdin
	}

	i.log().Debug().Str("command", i.String()).Msg("running attached command")

	if err := i.cmd.Run(); err != nil {
		return i.classify(err, nil, nil)
	}
	return nil
}

// Child is a command that was started with its stdout piped back to the caller.
type Child struct {
	// Stdout streams the standard output of the child process.
	// It must not be read after [Child.Wait] is called.
	Stdout io.ReadCloser

	inv    *Invocation
	stderr *bytes.Buffer
}

// Start spawns the command with stdout piped and stderr captured.
// The caller may read Stdout, or hand it to another process, before calling
// [Child.Wait]; the outcome returned by Wait is the authoritative one.
func (i *Invocation) Start() (*Child, error) {
	stdout, err := i.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout of %s: %w", i.Program, err)
	}

	stderr := new(bytes.Buffer)
	i.cmd.Stderr = stderr

	i.log().Debug().Str("command", i.String()).Msg("spawning command")

	if err := i.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", i.Program, err)
	}

	return &Child{Stdout: stdout, inv: i, stderr: stderr}, nil
}

// Wait releases the read end of the stdout pipe and waits for the child to exit.
// Closing the pipe first means a child blocked writing to a consumer that stopped
// early gets a broken pipe instead of hanging forever.
func (c *Child) Wait() error {
	_ = c.Stdout.Close()

	if err := c.inv.cmd.Wait(); err != nil {
		return c.inv.classify(err, nil, c.stderr.Bytes())
	}
	return nil
}

func (i *Invocation) classify(err error, stdout, stderr []byte) error {
	var exiterr *exec.ExitError
	if !errors.As(err, &exiterr) {
		return fmt.Errorf("failed to run %s: %w", i.Program, err)
	}

	failed := &FailedError{
		Command:  i.String(),
		Stdout:   lossy(stdout),
		Stderr:   lossy(stderr),
		ExitCode: exiterr.ExitCode(),
	}

	i.log().Debug().
		Str("command", failed.Command).
		Int("exit_code", failed.ExitCode).
		Str("stderr", failed.Stderr).
		Msg("command failed")

	return failed
}

func (i *Invocation) log() *zerolog.Logger {
	logger := zerolog.Ctx(i.ctx).With().Str("component", "command").Logger()
	return &logger
}

// FailedError is returned when a command ran but exited with a non-zero status.
type FailedError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *FailedError) Error() string {
	var bld strings.Builder

	fmt.Fprintf(&bld, "Command failed:\n    %s\n", e.Command)
	if e.Stdout != "" {
		fmt.Fprintf(&bld, "Stdout:\n%s\n", e.Stdout)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&bld, "Stderr:\n%s", e.Stderr)
	}

	return bld.String()
}

func lossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// Opt allows customizing the command before it's run.
type Opt func(i *Invocation) error

// WithArgs sets the command arguments.
func WithArgs(args ...string) Opt {
	return func(i *Invocation) error {
		i.Arguments = append(i.Arguments, args...)
		return nil
	}
}

// WithStdIn sets up the stdin reader.
func WithStdIn(read io.Reader) Opt {
	return func(i *Invocation) error {
		i.cmd.Stdin = read
		return nil
	}
}

// WithStdOut sets up the stdout writer.
func WithStdOut(w io.Writer) Opt {
	return func(i *Invocation) error {
		i.cmd.Stdout = w
		return nil
	}
}
