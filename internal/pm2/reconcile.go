package pm2

import (
	"path/filepath"
	"strings"

	"nodedeck/internal/identity"

	"golang.org/x/text/unicode/norm"
)

// State is the project-level view of a PM2 process status.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// MatchRule records which rule paired a project with a process.
type MatchRule string

const (
	MatchNone  MatchRule = ""
	MatchID    MatchRule = "id"
	MatchCwd   MatchRule = "cwd"
	MatchFuzzy MatchRule = "name"
)

// Result is the outcome of reconciling a project with the PM2 process list.
type Result struct {
	Exists  bool      `json:"exists"`
	Status  State     `json:"status,omitempty"`
	Matched *Process  `json:"matchedProcess,omitempty"`
	Rule    MatchRule `json:"rule,omitempty"`
}

// Reconcile matches a project against procs using the id Generate would
// assign to it.
func Reconcile(name, path string, procs []Process) Result {
	return ReconcileID(identity.Generate(name, path), name, path, procs)
}

// ReconcileID matches a project with a known id against procs. Rules are
// tried in order across the whole list: exact id, working directory, then
// a fuzzy name match for processes created before stable ids existed.
func ReconcileID(id, name, path string, procs []Process) Result {
	if id != "" {
		for i := range procs {
			if procs[i].Name == id {
				return matched(&procs[i], MatchID)
			}
		}
	}

	if path != "" {
		want := filepath.Clean(path)
		for i := range procs {
			if procs[i].Cwd != "" && filepath.Clean(procs[i].Cwd) == want {
				return matched(&procs[i], MatchCwd)
			}
		}
	}

	if display := foldName(name); display != "" {
		for i := range procs {
			candidate := foldName(procs[i].Name)
			if candidate == "" {
				continue
			}
			if candidate == display || strings.Contains(candidate, display) || strings.Contains(display, candidate) {
				return matched(&procs[i], MatchFuzzy)
			}
		}
	}

	return Result{Exists: false}
}

// StateOf maps a PM2 status onto a project state.
func StateOf(s Status) State {
	switch s {
	case StatusOnline, StatusLaunching:
		return StateRunning
	case StatusErrored:
		return StateError
	default:
		return StateStopped
	}
}

func matched(p *Process, rule MatchRule) Result {
	cp := *p
	return Result{
		Exists:  true,
		Status:  StateOf(p.Status),
		Matched: &cp,
		Rule:    rule,
	}
}

func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
