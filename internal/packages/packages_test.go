package packages

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, NPM, Detect(dir, ""))
	assert.Equal(t, Yarn, Detect(dir, Yarn))

	writeFile(t, filepath.Join(dir, "yarn.lock"), "")
	assert.Equal(t, Yarn, Detect(dir, NPM))

	writeFile(t, filepath.Join(dir, "pnpm-lock.yaml"), "")
	assert.Equal(t, PNPM, Detect(dir, NPM))
}

func TestParseManager(t *testing.T) {
	m, err := ParseManager("")
	require.NoError(t, err)
	assert.Equal(t, NPM, m)

	m, err = ParseManager("pnpm")
	require.NoError(t, err)
	assert.Equal(t, PNPM, m)

	_, err = ParseManager("bun")
	assert.Error(t, err)
}

func TestAddArgs(t *testing.T) {
	assert.Equal(t, []string{"install", "express"}, NPM.AddArgs([]string{"express"}, false))
	assert.Equal(t, []string{"install", "--save-dev", "jest"}, NPM.AddArgs([]string{"jest"}, true))
	assert.Equal(t, []string{"add", "--dev", "jest", "ts-node"}, Yarn.AddArgs([]string{"jest", "ts-node"}, true))
	assert.Equal(t, []string{"add", "@types/node@20"}, PNPM.AddArgs([]string{"@types/node@20"}, false))
	assert.Equal(t, []string{"install"}, Yarn.InstallArgs())
}

func TestValidatePackageSpec(t *testing.T) {
	for _, ok := range []string{"express", "@types/node", "lodash.merge@^4.6.2", "react@latest", "@scope/pkg@1.2.3"} {
		assert.NoError(t, ValidatePackageSpec(ok), ok)
	}
	for _, bad := range []string{"", "--registry=http://evil", "-g", "a b", "@scope", "../x"} {
		assert.ErrorIs(t, ValidatePackageSpec(bad), ErrInvalidPackage, bad)
	}
}

func TestReadInfo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{
  "name": "my-app",
  "version": "1.0.0",
  "scripts": {"start": "node index.js", "dev": "nodemon"},
  "dependencies": {"express": "^4.18.0", "@scope/util": "1.x"},
  "devDependencies": {"jest": "^29.0.0"}
}`)
	writeFile(t, filepath.Join(dir, "node_modules", "express", "package.json"), `{"name":"express","version":"4.18.2"}`)
	writeFile(t, filepath.Join(dir, "node_modules", "@scope", "util", "package.json"), `{"name":"@scope/util"}`)
	writeFile(t, filepath.Join(dir, "yarn.lock"), "")

	info, err := ReadInfo(dir, NPM)
	require.NoError(t, err)

	assert.Equal(t, "my-app", info.Name)
	assert.Equal(t, "node index.js", info.Scripts["start"])
	assert.Equal(t, Yarn, info.PackageManager)
	assert.True(t, info.NodeModules)
	require.Len(t, info.Dependencies, 3)

	assert.Equal(t, Dependency{Name: "@scope/util", Wanted: "1.x", Installed: "unknown", Present: true}, info.Dependencies[0])
	assert.Equal(t, Dependency{Name: "express", Wanted: "^4.18.0", Installed: "4.18.2", Present: true}, info.Dependencies[1])
	assert.Equal(t, Dependency{Name: "jest", Wanted: "^29.0.0", Dev: true}, info.Dependencies[2])
	assert.Equal(t, 2, info.InstalledCount)
	assert.Equal(t, 1, info.MissingCount)
}

func TestOutdated(t *testing.T) {
	tests := []struct {
		installed, wanted string
		want              bool
	}{
		{"4.17.1", "^4.18.0", true},
		{"4.18.2", "^4.18.0", false},
		{"1.2.0", "~1.2.3", true},
		{"2.0.0", ">= 1.5.0", false},
		{"0.9.0", "1.0.0", true},
		{"1.0.0", "1.x", false},
		{"unknown", "^1.0.0", false},
		{"", "^1.0.0", false},
		{"1.0.0", "latest", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outdated(tt.installed, tt.wanted), "%s vs %s", tt.installed, tt.wanted)
	}
}

func TestReadInfoErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadInfo(dir, NPM)
	assert.ErrorIs(t, err, ErrNoPackageJSON)

	writeFile(t, filepath.Join(dir, "package.json"), `{"name": `)
	_, err = ReadInfo(dir, NPM)
	assert.ErrorIs(t, err, ErrInvalidPackageJSON)
}

type lineRecorder struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (r *lineRecorder) record(stream, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = map[string][]string{}
	}
	r.lines[stream] = append(r.lines[stream], line)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestInstallerRunCapturesOutput(t *testing.T) {
	requireShell(t)
	rec := &lineRecorder{}
	inst := NewInstaller(time.Minute, zerolog.Nop())

	err := inst.run(context.Background(), t.TempDir(), "sh", []string{"-c", "echo added 3 packages; echo warn deprecated >&2; printf tail"}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, []string{"added 3 packages", "tail"}, rec.lines[StreamStdout])
	assert.Equal(t, []string{"warn deprecated"}, rec.lines[StreamStderr])
}

func TestInstallerRunFailure(t *testing.T) {
	requireShell(t)
	inst := NewInstaller(time.Minute, zerolog.Nop())

	err := inst.run(context.Background(), t.TempDir(), "sh", []string{"-c", "echo 'ERR! 404 not found' >&2; exit 1"}, nil)
	require.ErrorIs(t, err, ErrInstallFailed)
	assert.Contains(t, err.Error(), "ERR! 404 not found")
}

func TestInstallerRunTimeout(t *testing.T) {
	requireShell(t)
	inst := NewInstaller(100*time.Millisecond, zerolog.Nop())

	err := inst.run(context.Background(), t.TempDir(), "sh", []string{"-c", "exec sleep 5"}, nil)
	assert.ErrorIs(t, err, ErrInstallTimeout)
}

func TestInstallerMissingManager(t *testing.T) {
	inst := NewInstaller(time.Minute, zerolog.Nop())

	err := inst.run(context.Background(), t.TempDir(), "nodedeck-no-such-manager", nil, nil)
	assert.ErrorIs(t, err, ErrManagerNotFound)
}

func TestInstallPackagesValidates(t *testing.T) {
	inst := NewInstaller(time.Minute, zerolog.Nop())

	err := inst.InstallPackages(context.Background(), t.TempDir(), NPM, []string{"--global"}, false, nil)
	assert.ErrorIs(t, err, ErrInvalidPackage)

	err = inst.InstallPackages(context.Background(), t.TempDir(), NPM, nil, false, nil)
	assert.ErrorIs(t, err, ErrInvalidPackage)
}
