package pm2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBinary  = "pm2"
	defaultTimeout = 30 * time.Second
)

// Options configures the CLI client.
type Options struct {
	Binary  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type command struct {
	name string
	args []string
	dir  string
	env  []string
}

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, c command) ([]byte, error)

// CLI is a connected PM2 handle backed by the pm2 executable.
type CLI struct {
	binary  string
	timeout time.Duration
	version string
	run     runFunc
	now     func() time.Time
	logger  zerolog.Logger
}

var _ Client = &CLI{}

// Connect verifies that the pm2 executable is reachable and returns a handle
// for issuing commands. ErrNotInstalled is returned when it is not on PATH.
func Connect(ctx context.Context, opts Options) (*CLI, error) {
	c := newCLI(opts, execRun)
	out, err := c.exec(ctx, "", nil, "--version")
	if err != nil {
		return nil, err
	}
	c.version = strings.TrimSpace(lastLine(string(out)))
	c.logger.Info().Str("version", c.version).Msg("connected to pm2")
	return c, nil
}

func newCLI(opts Options, run runFunc) *CLI {
	if opts.Binary == "" {
		opts.Binary = defaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &CLI{
		binary:  opts.Binary,
		timeout: opts.Timeout,
		run:     run,
		now:     time.Now,
		logger:  opts.Logger.With().Str("component", "pm2").Logger(),
	}
}

// Version is the pm2 version reported at connect time.
func (c *CLI) Version() string {
	return c.version
}

func (c *CLI) List(ctx context.Context) ([]Process, error) {
	out, err := c.exec(ctx, "", nil, "jlist")
	if err != nil {
		return nil, err
	}
	return parseProcessList(out, c.now())
}

func (c *CLI) Describe(ctx context.Context, name string) (*Process, error) {
	procs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range procs {
		if procs[i].Name == name {
			return &procs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
}

func (c *CLI) Start(ctx context.Context, spec StartSpec) error {
	if spec.Name == "" || spec.Script == "" {
		return fmt.Errorf("%w: start requires a name and a script", ErrCommandFailed)
	}
	args := []string{"start", spec.Script, "--name", spec.Name}
	if spec.Cwd != "" {
		args = append(args, "--cwd", spec.Cwd)
	}
	if len(spec.Args) > 0 {
		args = append(args, "--")
		args = append(args, spec.Args...)
	}

	_, err := c.exec(ctx, spec.Cwd, spec.Env, args...)
	if err != nil {
		return err
	}
	c.logger.Info().Str("name", spec.Name).Str("cwd", spec.Cwd).Msg("pm2 process started")
	return nil
}

func (c *CLI) Stop(ctx context.Context, name string) error {
	return c.control(ctx, "stop", name)
}

func (c *CLI) Restart(ctx context.Context, name string) error {
	return c.control(ctx, "restart", name)
}

func (c *CLI) Delete(ctx context.Context, name string) error {
	return c.control(ctx, "delete", name)
}

func (c *CLI) Logs(ctx context.Context, name string, lines int) ([]string, error) {
	if lines <= 0 {
		lines = 100
	}
	out, err := c.exec(ctx, "", nil, "logs", name, "--lines", strconv.Itoa(lines), "--nostream", "--raw")
	if err != nil {
		return nil, notFound(err, name)
	}

	result := []string{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "[TAILING]") {
			continue
		}
		result = append(result, line)
	}
	return result, nil
}

func (c *CLI) control(ctx context.Context, action, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s requires a process name", ErrCommandFailed, action)
	}
	if _, err := c.exec(ctx, "", nil, action, name); err != nil {
		return notFound(err, name)
	}
	c.logger.Info().Str("name", name).Msgf("pm2 %s", action)
	return nil
}

func (c *CLI) exec(ctx context.Context, dir string, env map[string]string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug().Strs("args", args).Msg("running pm2")
	out, err := c.run(ctx, command{name: c.binary, args: args, dir: dir, env: envList(env)})
	if err == nil {
		return out, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrNotInstalled
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: pm2 %s timed out after %s", ErrCommandFailed, args[0], c.timeout)
	}

	msg := strings.TrimSpace(string(out))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		msg = strings.TrimSpace(string(exitErr.Stderr))
	}
	if msg == "" {
		msg = err.Error()
	}
	return nil, fmt.Errorf("%w: pm2 %s: %s", ErrCommandFailed, strings.Join(args, " "), msg)
}

// notFound rewrites pm2's "Process or Namespace x not found" failure.
func notFound(err error, name string) error {
	if errors.Is(err, ErrCommandFailed) && strings.Contains(strings.ToLower(err.Error()), "not found") {
		return fmt.Errorf("%w: %s", ErrProcessNotFound, name)
	}
	return err
}

func execRun(ctx context.Context, c command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Dir = c.dir
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}
	return cmd.Output()
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
