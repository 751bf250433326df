// Package packages inspects package.json dependency state and drives
// npm, yarn and pnpm installs.
package packages

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager is a Node.js package manager executable.
type Manager string

const (
	NPM  Manager = "npm"
	Yarn Manager = "yarn"
	PNPM Manager = "pnpm"
)

var lockfiles = []struct {
	name    string
	manager Manager
}{
	{"pnpm-lock.yaml", PNPM},
	{"yarn.lock", Yarn},
	{"package-lock.json", NPM},
}

// ParseManager validates a package manager name. Empty means npm.
func ParseManager(s string) (Manager, error) {
	switch Manager(s) {
	case "":
		return NPM, nil
	case NPM, Yarn, PNPM:
		return Manager(s), nil
	}
	return "", fmt.Errorf("unsupported package manager %q", s)
}

// Detect picks the package manager for dir from its lockfile, or fallback
// when there is none.
func Detect(dir string, fallback Manager) Manager {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, lf.name)); err == nil {
			return lf.manager
		}
	}
	if fallback == "" {
		return NPM
	}
	return fallback
}

// InstallArgs returns the arguments that install every declared dependency.
func (m Manager) InstallArgs() []string {
	return []string{"install"}
}

// AddArgs returns the arguments that add specific packages.
func (m Manager) AddArgs(pkgs []string, dev bool) []string {
	var args []string
	switch m {
	case Yarn:
		args = []string{"add"}
		if dev {
			args = append(args, "--dev")
		}
	case PNPM:
		args = []string{"add"}
		if dev {
			args = append(args, "--save-dev")
		}
	default:
		args = []string{"install"}
		if dev {
			args = append(args, "--save-dev")
		}
	}
	return append(args, pkgs...)
}

// RunArgs returns the arguments that run a package.json script.
func (m Manager) RunArgs(script string) []string {
	return []string{"run", script}
}
