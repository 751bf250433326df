package packages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInstallTimeout = 5 * time.Minute

	killGrace    = 5 * time.Second
	stderrTail   = 20
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

var (
	ErrInstallFailed   = errors.New("package install failed")
	ErrInstallTimeout  = errors.New("package install timed out")
	ErrManagerNotFound = errors.New("package manager not found")
	ErrInvalidPackage  = errors.New("invalid package spec")
)

var packageSpec = regexp.MustCompile(`(?i)^(@[a-z0-9][a-z0-9._-]*/)?[a-z0-9][a-z0-9._-]*(@[^\s]+)?$`)

// LineFunc receives each output line of an install run.
type LineFunc func(stream, line string)

// Installer runs package manager installs with a fixed timeout. On expiry
// the child receives SIGTERM, then SIGKILL after a short grace period.
type Installer struct {
	Timeout time.Duration
	logger  zerolog.Logger
}

func NewInstaller(timeout time.Duration, logger zerolog.Logger) *Installer {
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}
	return &Installer{
		Timeout: timeout,
		logger:  logger.With().Str("component", "installer").Logger(),
	}
}

// InstallAll installs every dependency declared in dir/package.json.
// onLine may be nil.
func (i *Installer) InstallAll(ctx context.Context, dir string, m Manager, onLine LineFunc) error {
	return i.run(ctx, dir, string(m), m.InstallArgs(), onLine)
}

// InstallPackages adds specific packages to the project in dir.
func (i *Installer) InstallPackages(ctx context.Context, dir string, m Manager, pkgs []string, dev bool, onLine LineFunc) error {
	if len(pkgs) == 0 {
		return fmt.Errorf("%w: no packages given", ErrInvalidPackage)
	}
	for _, p := range pkgs {
		if err := ValidatePackageSpec(p); err != nil {
			return err
		}
	}
	return i.run(ctx, dir, string(m), m.AddArgs(pkgs, dev), onLine)
}

// ValidatePackageSpec accepts "name", "@scope/name" and either with an
// "@version" suffix.
func ValidatePackageSpec(spec string) error {
	if !packageSpec.MatchString(spec) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, spec)
	}
	return nil
}

func (i *Installer) run(ctx context.Context, dir, name string, args []string, onLine LineFunc) error {
	ctx, cancel := context.WithTimeout(ctx, i.Timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		tail []string
	)
	emit := func(stream, line string) {
		if stream == StreamStderr {
			mu.Lock()
			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[len(tail)-stderrTail:]
			}
			mu.Unlock()
		}
		if onLine != nil {
			onLine(stream, line)
		}
	}
	stdout := &lineWriter{stream: StreamStdout, emit: emit}
	stderr := &lineWriter{stream: StreamStderr, emit: emit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	i.logger.Info().Str("dir", dir).Str("cmd", name+" "+strings.Join(args, " ")).Msg("running install")
	start := time.Now()
	err := cmd.Run()
	stdout.flush()
	stderr.flush()

	switch {
	case err == nil:
		i.logger.Info().Dur("took", time.Since(start)).Msg("install finished")
		return nil
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrManagerNotFound, name)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %s %s", ErrInstallTimeout, i.Timeout, name, strings.Join(args, " "))
	}

	mu.Lock()
	detail := strings.Join(tail, "\n")
	mu.Unlock()
	if detail == "" {
		detail = err.Error()
	}
	return fmt.Errorf("%w: %s %s: %s", ErrInstallFailed, name, strings.Join(args, " "), detail)
}

// lineWriter splits written bytes into lines.
type lineWriter struct {
	mu     sync.Mutex
	stream string
	buf    []byte
	emit   LineFunc
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.send(w.buf[:idx])
		w.buf = w.buf[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.send(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) send(line []byte) {
	s := strings.TrimRight(string(line), "\r")
	if strings.TrimSpace(s) != "" {
		w.emit(w.stream, s)
	}
}
