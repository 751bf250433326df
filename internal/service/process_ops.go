package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nodedeck/internal/models"
	"nodedeck/internal/packages"
	"nodedeck/internal/pm2"
)

// Start launches the project under its stable id. A stopped process that
// already belongs to the project is restarted under its existing name.
func (s *ProjectService) Start(ctx context.Context, id string) (ProjectResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, match, err := s.match(ctx, id)
	if err != nil {
		return ProjectResult{}, err
	}

	switch {
	case match.Exists && match.Status == pm2.StateRunning:
		return ProjectResult{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, p.Name)
	case match.Exists:
		err = s.pm2.Restart(ctx, match.Matched.Name)
	default:
		err = s.pm2.Start(ctx, s.startSpec(p))
	}
	if err != nil {
		s.event(LevelError, p.ID, fmt.Sprintf("Failed to start %s: %v", p.Name, err))
		return ProjectResult{}, err
	}

	s.event(LevelInfo, p.ID, fmt.Sprintf("Started %s", p.Name))
	return s.projectResult(ctx, p), nil
}

func (s *ProjectService) Stop(ctx context.Context, id string) (ProjectResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, match, err := s.match(ctx, id)
	if err != nil {
		return ProjectResult{}, err
	}
	if !match.Exists || match.Status == pm2.StateStopped {
		return ProjectResult{}, fmt.Errorf("%w: %s", ErrNotRunning, p.Name)
	}

	if err := s.pm2.Stop(ctx, match.Matched.Name); err != nil {
		s.event(LevelError, p.ID, fmt.Sprintf("Failed to stop %s: %v", p.Name, err))
		return ProjectResult{}, err
	}

	s.event(LevelInfo, p.ID, fmt.Sprintf("Stopped %s", p.Name))
	return s.projectResult(ctx, p), nil
}

// Restart restarts the matched process, or starts one if none exists.
func (s *ProjectService) Restart(ctx context.Context, id string) (ProjectResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, match, err := s.match(ctx, id)
	if err != nil {
		return ProjectResult{}, err
	}

	if match.Exists {
		err = s.pm2.Restart(ctx, match.Matched.Name)
	} else {
		err = s.pm2.Start(ctx, s.startSpec(p))
	}
	if err != nil {
		s.event(LevelError, p.ID, fmt.Sprintf("Failed to restart %s: %v", p.Name, err))
		return ProjectResult{}, err
	}

	s.event(LevelInfo, p.ID, fmt.Sprintf("Restarted %s", p.Name))
	return s.projectResult(ctx, p), nil
}

// Delete removes the project's process from PM2. The project record stays.
func (s *ProjectService) Delete(ctx context.Context, id string) (ProjectResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, err := s.projects.Get(id)
	if err != nil {
		return ProjectResult{}, err
	}
	if err := s.deleteProcess(ctx, p); err != nil {
		return ProjectResult{}, err
	}
	return s.projectResult(ctx, p), nil
}

// Describe returns the project with its current process snapshot.
func (s *ProjectService) Describe(ctx context.Context, id string) (ProjectResult, error) {
	p, match, err := s.match(ctx, id)
	if err != nil {
		return ProjectResult{}, err
	}
	v := models.ProjectView{Project: p, Status: string(pm2.StateStopped)}
	if match.Exists {
		v.Status = string(match.Status)
		v.Process = snapshot(match.Matched, match.Rule)
	}
	return ProjectResult{Project: v}, nil
}

// Logs returns the last lines PM2 has recorded for the project's process.
func (s *ProjectService) Logs(ctx context.Context, id string, lines int) ([]string, error) {
	p, match, err := s.match(ctx, id)
	if err != nil {
		return nil, err
	}
	if !match.Exists {
		return nil, fmt.Errorf("%w: %s", ErrNoProcess, p.Name)
	}
	if lines <= 0 {
		lines = s.settings.Load().LogLines
	}
	return s.pm2.Logs(ctx, match.Matched.Name, lines)
}

// ListProcesses returns every process PM2 knows about, managed or not.
func (s *ProjectService) ListProcesses(ctx context.Context) ([]models.Process, error) {
	procs, err := s.listProcesses(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Process, 0, len(procs))
	for i := range procs {
		result = append(result, *snapshot(&procs[i], pm2.MatchNone))
	}
	return result, nil
}

func (s *ProjectService) deleteProcess(ctx context.Context, p models.Project) error {
	procs, err := s.listProcesses(ctx)
	if err != nil {
		return err
	}
	match := pm2.ReconcileID(p.ID, p.Name, p.Path, procs)
	if !match.Exists {
		return fmt.Errorf("%w: %s", ErrNoProcess, p.Name)
	}
	if err := s.pm2.Delete(ctx, match.Matched.Name); err != nil && !errors.Is(err, pm2.ErrProcessNotFound) {
		s.event(LevelError, p.ID, fmt.Sprintf("Failed to delete process %s: %v", match.Matched.Name, err))
		return err
	}
	s.event(LevelInfo, p.ID, fmt.Sprintf("Deleted process %s", match.Matched.Name))
	return nil
}

// match loads the project and reconciles it against the live process list.
// Unlike LoadProjects a failing list is an error here.
func (s *ProjectService) match(ctx context.Context, id string) (models.Project, pm2.Result, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return models.Project{}, pm2.Result{}, err
	}
	procs, err := s.listProcesses(ctx)
	if err != nil {
		return models.Project{}, pm2.Result{}, err
	}
	return p, pm2.ReconcileID(p.ID, p.Name, p.Path, procs), nil
}

// startSpec decides how PM2 launches the project: a package.json script via
// the package manager, or a script file run directly.
func (s *ProjectService) startSpec(p models.Project) pm2.StartSpec {
	spec := pm2.StartSpec{Name: p.ID, Cwd: p.Path, Env: p.Env}

	mgr, err := packages.ParseManager(p.PackageManager)
	if err != nil {
		mgr = packages.NPM
	}
	info, err := packages.ReadInfo(p.Path, mgr)
	if err != nil && !errors.Is(err, packages.ErrNoPackageJSON) {
		s.logger.Warn().Err(err).Str("project", p.ID).Msg("could not read package.json, guessing start script")
		s.event(LevelWarning, p.ID, fmt.Sprintf("Could not read package.json of %s: %v", p.Name, err))
	}

	script := p.StartScript
	if script == "" && info != nil {
		for _, candidate := range []string{"start", "dev"} {
			if _, ok := info.Scripts[candidate]; ok {
				script = candidate
				break
			}
		}
		if script == "" {
			script = info.Main
		}
	}
	if script == "" {
		script = "index.js"
	}

	if info != nil {
		if _, ok := info.Scripts[script]; ok {
			spec.Script = string(mgr)
			spec.Args = mgr.RunArgs(script)
			return spec
		}
	}
	if _, err := os.Stat(filepath.Join(p.Path, script)); err == nil {
		spec.Script = script
		return spec
	}

	spec.Script = string(mgr)
	spec.Args = mgr.RunArgs(script)
	return spec
}
