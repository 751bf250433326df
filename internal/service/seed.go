package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"nodedeck/internal/store"
)

// Seed is a project declared in configuration rather than imported by hand.
type Seed struct {
	ImportRequest
	AutoStart bool
}

// SeedProjects registers every seed that is not yet known and starts the
// autostart ones. Failures are logged per seed and do not stop the rest.
// It returns how many projects were started.
func (s *ProjectService) SeedProjects(ctx context.Context, seeds []Seed) int {
	started := 0
	for _, seed := range seeds {
		log := s.logger.With().Str("path", seed.Path).Logger()

		id, err := s.seedID(ctx, seed.ImportRequest)
		if err != nil {
			log.Warn().Err(err).Msg("could not register configured project")
			continue
		}
		if !seed.AutoStart {
			continue
		}
		if s.PM2Ready() != nil {
			log.Warn().Msg("skipping autostart, pm2 unavailable")
			continue
		}

		_, err = s.Start(ctx, id)
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrAlreadyRunning):
			log.Debug().Str("project", id).Msg("already running")
		default:
			log.Warn().Err(err).Str("project", id).Msg("autostart failed")
		}
	}
	return started
}

func (s *ProjectService) seedID(ctx context.Context, req ImportRequest) (string, error) {
	res, err := s.AddProject(ctx, req)
	if err == nil {
		return res.Project.ID, nil
	}
	if !errors.Is(err, store.ErrProjectExists) {
		return "", err
	}

	path, absErr := filepath.Abs(req.Path)
	if absErr != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, absErr)
	}
	path = filepath.Clean(path)
	for _, p := range s.projects.Load() {
		if filepath.Clean(p.Path) == path {
			return p.ID, nil
		}
	}
	return "", err
}
