// Package service coordinates project records, PM2 processes, templates and
// package installs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nodedeck/internal/identity"
	"nodedeck/internal/models"
	"nodedeck/internal/packages"
	"nodedeck/internal/pm2"
	"nodedeck/internal/scaffold"
	"nodedeck/internal/store"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/rs/zerolog"
)

var (
	ErrPM2Unavailable = errors.New("pm2 is not available")
	ErrAlreadyRunning = errors.New("project already running")
	ErrNotRunning     = errors.New("project not running")
	ErrNoProcess      = errors.New("project has no pm2 process")
	ErrInvalidPath    = errors.New("invalid project path")
	ErrInvalidRequest = errors.New("invalid request")
)

// Deps are the collaborators of a ProjectService. PM2 may be nil when the
// pm2 executable could not be reached.
type Deps struct {
	Projects     *store.ProjectStore
	Settings     *store.SettingsStore
	PM2          pm2.Client
	PM2Err       error
	Installer    *packages.Installer
	TemplatesDir string
	Logs         *LogBuffer
	Logger       zerolog.Logger
}

type ProjectService struct {
	projects     *store.ProjectStore
	settings     *store.SettingsStore
	pm2          pm2.Client
	pm2Err       error
	installer    *packages.Installer
	templatesDir string
	logs         *LogBuffer
	logger       zerolog.Logger

	// opMu serializes check-then-act PM2 lifecycle operations.
	opMu sync.Mutex
}

func NewProjectService(d Deps) *ProjectService {
	if d.Logs == nil {
		d.Logs = NewLogBuffer(1000)
	}
	if d.PM2 == nil && d.PM2Err == nil {
		d.PM2Err = ErrPM2Unavailable
	}
	return &ProjectService{
		projects:     d.Projects,
		settings:     d.Settings,
		pm2:          d.PM2,
		pm2Err:       d.PM2Err,
		installer:    d.Installer,
		templatesDir: d.TemplatesDir,
		logs:         d.Logs,
		logger:       d.Logger.With().Str("component", "project_service").Logger(),
	}
}

type LoadResult struct {
	Projects []models.ProjectView `json:"projects"`
	Warning  string               `json:"warning,omitempty"`
}

type ProjectResult struct {
	Project models.ProjectView `json:"project"`
	Warning string             `json:"warning,omitempty"`
}

type ImportRequest struct {
	Path           string            `json:"path"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	PackageManager string            `json:"packageManager,omitempty"`
	StartScript    string            `json:"startScript,omitempty"`
	Env            map[string]string `json:"env,omitempty"`

	template string
}

type CreateRequest struct {
	Template    string            `json:"template"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ParentDir   string            `json:"parentDir,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	Install     *bool             `json:"install,omitempty"`
}

// ProjectPatch updates the mutable fields of a project. Nil fields are left
// unchanged.
type ProjectPatch struct {
	Name           *string           `json:"name,omitempty"`
	Description    *string           `json:"description,omitempty"`
	StartScript    *string           `json:"startScript,omitempty"`
	PackageManager *string           `json:"packageManager,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

// PM2Ready reports whether PM2 commands can be issued.
func (s *ProjectService) PM2Ready() error {
	if s.pm2 == nil {
		return s.pm2Err
	}
	return nil
}

// LoadProjects returns every project with its PM2 state. A failing process
// list is reported as a warning with every project shown as stopped.
func (s *ProjectService) LoadProjects(ctx context.Context) LoadResult {
	projects := s.projects.Load()
	procs, err := s.listProcesses(ctx)

	res := LoadResult{Projects: make([]models.ProjectView, 0, len(projects))}
	if err != nil {
		res.Warning = warning(err)
	}
	for _, p := range projects {
		res.Projects = append(res.Projects, view(p, procs))
	}
	return res
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (ProjectResult, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return ProjectResult{}, err
	}
	return s.projectResult(ctx, p), nil
}

// AddProject imports an existing directory. The stable id is derived here
// once and persisted.
func (s *ProjectService) AddProject(ctx context.Context, req ImportRequest) (ProjectResult, error) {
	if strings.TrimSpace(req.Path) == "" {
		return ProjectResult{}, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return ProjectResult{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return ProjectResult{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, path)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = filepath.Base(path)
	}

	settings := s.settings.Load()
	mgr := packages.Detect(path, packages.Manager(settings.DefaultPackageManager))
	if req.PackageManager != "" {
		if mgr, err = packages.ParseManager(req.PackageManager); err != nil {
			return ProjectResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	p, err := s.projects.Add(models.Project{
		ID:             identity.Generate(name, path),
		Name:           name,
		Path:           path,
		Description:    req.Description,
		Template:       req.template,
		PackageManager: string(mgr),
		StartScript:    req.StartScript,
		Env:            req.Env,
	})
	if err != nil {
		return ProjectResult{}, err
	}

	s.event(LevelInfo, p.ID, fmt.Sprintf("Imported project %s from %s", p.Name, p.Path))
	return s.projectResult(ctx, p), nil
}

// CreateProject renders a template into <parent>/<slug> and imports it.
// Install failures leave the project in place and come back as a warning.
func (s *ProjectService) CreateProject(ctx context.Context, req CreateRequest) (ProjectResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Template == "" {
		return ProjectResult{}, fmt.Errorf("%w: name and template are required", ErrInvalidRequest)
	}

	settings := s.settings.Load()
	parent := req.ParentDir
	if parent == "" {
		parent = settings.ProjectsDir
	}
	if parent == "" {
		return ProjectResult{}, fmt.Errorf("%w: no parent directory given and no projectsDir configured", ErrInvalidRequest)
	}

	tpl, err := scaffold.Find(s.templatesDir, req.Template)
	if err != nil {
		return ProjectResult{}, err
	}
	dest := filepath.Join(parent, scaffold.Slug(name))
	_, statErr := os.Stat(dest)
	existed := statErr == nil
	err = scaffold.Render(tpl, dest, scaffold.Options{
		Name:        name,
		Description: req.Description,
		Variables:   req.Variables,
	})
	if err != nil {
		return ProjectResult{}, err
	}
	s.event(LevelInfo, "", fmt.Sprintf("Created %s from template %s", dest, tpl.Name))

	res, err := s.AddProject(ctx, ImportRequest{
		Path:        dest,
		Name:        name,
		Description: req.Description,
		StartScript: tpl.StartScript,
		template:    tpl.Name,
	})
	if err != nil {
		if rmErr := scaffold.Discard(dest, existed); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", dest).Msg("could not clean up rendered project")
		}
		return ProjectResult{}, err
	}

	install := settings.AutoInstall
	if req.Install != nil {
		install = *req.Install
	}
	if install {
		if _, err := s.InstallDependencies(ctx, res.Project.ID); err != nil {
			res.Warning = joinWarnings(res.Warning, "dependency install failed: "+err.Error())
		}
	}
	return res, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (ProjectResult, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ProjectResult{}, fmt.Errorf("%w: name must not be empty", ErrInvalidRequest)
	}
	if patch.PackageManager != nil {
		if _, err := packages.ParseManager(*patch.PackageManager); err != nil {
			return ProjectResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	p, err := s.projects.Update(id, func(p *models.Project) {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.StartScript != nil {
			p.StartScript = *patch.StartScript
		}
		if patch.PackageManager != nil {
			p.PackageManager = *patch.PackageManager
		}
		if patch.Env != nil {
			p.Env = patch.Env
		}
	})
	if err != nil {
		return ProjectResult{}, err
	}
	return s.projectResult(ctx, p), nil
}

// RemoveProject drops the project record. With deleteProcess the matching
// PM2 process is deleted first; failing to do so is only a warning.
func (s *ProjectService) RemoveProject(ctx context.Context, id string, deleteProcess bool) (ProjectResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, err := s.projects.Get(id)
	if err != nil {
		return ProjectResult{}, err
	}

	var warn string
	if deleteProcess {
		if err := s.deleteProcess(ctx, p); err != nil && !errors.Is(err, ErrNoProcess) {
			warn = warning(err)
		}
	}

	if _, err := s.projects.Remove(id); err != nil {
		return ProjectResult{}, err
	}
	s.event(LevelInfo, id, fmt.Sprintf("Removed project %s", p.Name))
	return ProjectResult{Project: models.ProjectView{Project: p, Status: string(pm2.StateStopped)}, Warning: warn}, nil
}

func (s *ProjectService) Settings() models.Settings {
	return s.settings.Load()
}

func (s *ProjectService) UpdateSettings(settings models.Settings) (models.Settings, error) {
	saved, err := s.settings.Save(settings)
	if err != nil {
		return models.Settings{}, err
	}
	s.event(LevelInfo, "", "Settings updated")
	return saved, nil
}

// PatchSettings applies a JSON merge patch (RFC 7386) to the current
// settings, so fields absent from the patch keep their value.
func (s *ProjectService) PatchSettings(patch []byte) (models.Settings, error) {
	current, err := json.Marshal(s.settings.Load())
	if err != nil {
		return models.Settings{}, err
	}
	if len(patch) == 0 {
		patch = []byte("{}")
	}
	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return models.Settings{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var next models.Settings
	if err := json.Unmarshal(merged, &next); err != nil {
		return models.Settings{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.UpdateSettings(next)
}

func (s *ProjectService) Templates() ([]scaffold.Template, error) {
	return scaffold.List(s.templatesDir)
}

func (s *ProjectService) AppLogs(project, level string, limit int) []models.LogEntry {
	if limit <= 0 {
		limit = 100
	}
	return s.logs.Query(project, level, limit)
}

func (s *ProjectService) projectResult(ctx context.Context, p models.Project) ProjectResult {
	procs, err := s.listProcesses(ctx)
	res := ProjectResult{Project: view(p, procs)}
	if err != nil {
		res.Warning = warning(err)
	}
	return res
}

func (s *ProjectService) listProcesses(ctx context.Context) ([]pm2.Process, error) {
	if s.pm2 == nil {
		return nil, s.pm2Err
	}
	procs, err := s.pm2.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("pm2 list failed")
		return nil, err
	}
	return procs, nil
}

func (s *ProjectService) event(level, project, msg string) {
	s.logs.Log(level, project, msg)
	switch level {
	case LevelError:
		s.logger.Error().Str("project", project).Msg(msg)
	case LevelWarning:
		s.logger.Warn().Str("project", project).Msg(msg)
	default:
		s.logger.Info().Str("project", project).Msg(msg)
	}
}

func view(p models.Project, procs []pm2.Process) models.ProjectView {
	res := pm2.ReconcileID(p.ID, p.Name, p.Path, procs)
	v := models.ProjectView{Project: p, Status: string(pm2.StateStopped)}
	if res.Exists {
		v.Status = string(res.Status)
		v.Process = snapshot(res.Matched, res.Rule)
	}
	return v
}

func warning(err error) string {
	if errors.Is(err, pm2.ErrNotInstalled) || errors.Is(err, ErrPM2Unavailable) {
		return "pm2 unavailable, showing projects as stopped: " + err.Error()
	}
	return "could not query pm2: " + err.Error()
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
