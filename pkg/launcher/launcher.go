// Package launcher starts a host assistant CLI after exporting the
// workspace env file, forwarding arguments and standard streams untouched.
package launcher

import (
	"context"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/envfile"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// Host describes an assistant CLI that agentkit can launch.
type Host struct {
	Name    string
	Binary  string
	EnvFile string
}

// builtinHosts are the launchers shipped with the workspace scripts.
var builtinHosts = map[string]Host{
	"claude":  {Name: "claude", Binary: "claude", EnvFile: envfile.DefaultPath},
	"copilot": {Name: "copilot", Binary: "copilot", EnvFile: envfile.DefaultPath},
}

// BuiltinHost returns the default definition for a named host.
func BuiltinHost(name string) (Host, bool) {
	h, ok := builtinHosts[name]
	return h, ok
}

// HostNames lists the built-in host names in sorted order.
func HostNames() []string {
	names := make([]string, 0, len(builtinHosts))
	for name := range builtinHosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Launcher runs host binaries.
type Launcher struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	lookPath func(string) (string, error)
	warn     func(string)
}

// Option configures a Launcher
type Option func(*Launcher)

// WithStreams overrides the standard streams handed to the child process.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin = stdin
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithWarningHandler sets the callback invoked for non-fatal problems such
// as a missing env file.
func WithWarningHandler(fn func(string)) Option {
	return func(l *Launcher) {
		l.warn = fn
	}
}

// WithLookPath replaces exec.LookPath, mainly for tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(l *Launcher) {
		l.lookPath = fn
	}
}

// New creates a Launcher wired to the process standard streams.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		lookPath: exec.LookPath,
		warn:     func(string) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run exports the host's env file, then runs the host binary with args and
// returns its exit code. A missing env file only produces a warning.
func (l *Launcher) Run(ctx context.Context, host Host, args []string) (int, error) {
	log := logger.G(ctx).WithField("host", host.Name)

	if host.EnvFile != "" {
		keys, err := envfile.Load(ctx, host.EnvFile)
		switch {
		case envfile.IsNotFound(err):
			l.warn("Warning: " + host.EnvFile + " file not found")
		case err != nil:
			return 1, err
		default:
			log.WithField("vars", len(keys)).Debug("loaded env file")
		}
	}

	binary, err := l.lookPath(host.Binary)
	if err != nil {
		return 1, errors.Wrapf(err, "%s not found on PATH", host.Binary)
	}

	// The host shares the terminal's process group and receives Ctrl-C
	// itself, so it is not tied to ctx. Cancelling ctx must not kill an
	// interactive session.
	cmd := exec.Command(binary, args...)
	cmd.Stdin = l.stdin
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	cmd.Env = os.Environ()

	log.WithField("binary", binary).WithField("args", args).Debug("launching host")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	if err := cmd.Start(); err != nil {
		return 1, errors.Wrapf(err, "failed to run %s", binary)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case sig := <-signals:
				// SIGINT already reached the host through the terminal.
				if sig == syscall.SIGTERM {
					if err := cmd.Process.Signal(sig); err != nil {
						log.WithError(err).Debug("failed to forward signal to host")
					}
				}
			case <-done:
				return
			}
		}
	}()

	return exitCode(cmd.Wait(), binary)
}

// exitCode maps the result of Wait to a shell-style exit code; a host
// killed by a signal exits with 128+signo.
func exitCode(err error, binary string) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, errors.Wrapf(err, "failed to run %s", binary)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
