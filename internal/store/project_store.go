package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"nodedeck/internal/models"

	"github.com/rs/zerolog"
)

const projectsFile = "projects.json"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
)

// ProjectStore keeps the project list in <dir>/projects.json.
type ProjectStore struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

func NewProjectStore(dir string, logger zerolog.Logger) *ProjectStore {
	return &ProjectStore{
		path:   filepath.Join(dir, projectsFile),
		logger: logger.With().Str("component", "project_store").Logger(),
		now:    time.Now,
	}
}

// Path is the location of the primary projects file.
func (s *ProjectStore) Path() string {
	return s.path
}

// Load returns the persisted projects. Unreadable data falls back to the
// backup, then to an empty list; it never fails.
func (s *ProjectStore) Load() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ProjectStore) Get(id string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load() {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

// Add appends p. Projects are unique by id and by cleaned path.
func (s *ProjectStore) Add(p models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := s.load()
	cleaned := filepath.Clean(p.Path)
	for _, existing := range projects {
		if existing.ID == p.ID || filepath.Clean(existing.Path) == cleaned {
			return models.Project{}, fmt.Errorf("%w: %s", ErrProjectExists, existing.Path)
		}
	}

	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := writeJSON(s.path, append(projects, p)); err != nil {
		return models.Project{}, err
	}
	s.logger.Info().Str("id", p.ID).Str("path", p.Path).Msg("project added")
	return p, nil
}

// Update applies fn to the project with the given id. The id and creation
// time are restored after fn runs.
func (s *ProjectStore) Update(id string, fn func(*models.Project)) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := s.load()
	for i := range projects {
		if projects[i].ID != id {
			continue
		}
		created := projects[i].CreatedAt
		fn(&projects[i])
		projects[i].ID = id
		projects[i].CreatedAt = created
		projects[i].UpdatedAt = s.now().UTC()

		if err := writeJSON(s.path, projects); err != nil {
			return models.Project{}, err
		}
		return projects[i], nil
	}
	return models.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

func (s *ProjectStore) Remove(id string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := s.load()
	for i, p := range projects {
		if p.ID != id {
			continue
		}
		rest := append(projects[:i:i], projects[i+1:]...)
		if err := writeJSON(s.path, rest); err != nil {
			return models.Project{}, err
		}
		s.logger.Info().Str("id", id).Msg("project removed")
		return p, nil
	}
	return models.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

func (s *ProjectStore) load() []models.Project {
	var projects []models.Project
	used, err := readJSON(s.path, &projects)
	switch {
	case errors.Is(err, errNoData):
		return []models.Project{}
	case err != nil:
		s.logger.Warn().Err(err).Msg("could not read projects or backup, starting with an empty list")
		return []models.Project{}
	case used != s.path:
		s.logger.Warn().Str("backup", used).Msg("projects file unreadable, loaded backup copy")
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects
}
