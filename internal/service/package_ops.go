package service

import (
	"context"
	"fmt"
	"strings"

	"nodedeck/internal/models"
	"nodedeck/internal/packages"
)

func (s *ProjectService) PackageInfo(id string) (*packages.Info, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}
	return packages.ReadInfo(p.Path, s.manager(p))
}

// InstallDependencies runs a full install and returns the refreshed info.
func (s *ProjectService) InstallDependencies(ctx context.Context, id string) (*packages.Info, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}
	mgr := s.manager(p)

	s.event(LevelInfo, p.ID, fmt.Sprintf("Installing dependencies for %s with %s", p.Name, mgr))
	if err := s.installer.InstallAll(ctx, p.Path, mgr, s.installLine(p)); err != nil {
		s.event(LevelError, p.ID, fmt.Sprintf("Dependency install failed for %s: %v", p.Name, err))
		return nil, err
	}
	s.event(LevelInfo, p.ID, fmt.Sprintf("Dependencies installed for %s", p.Name))
	return packages.ReadInfo(p.Path, mgr)
}

func (s *ProjectService) InstallSpecificPackages(ctx context.Context, id string, pkgs []string, dev bool) (*packages.Info, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}
	mgr := s.manager(p)

	s.event(LevelInfo, p.ID, fmt.Sprintf("Installing %s for %s", strings.Join(pkgs, ", "), p.Name))
	if err := s.installer.InstallPackages(ctx, p.Path, mgr, pkgs, dev, s.installLine(p)); err != nil {
		s.event(LevelError, p.ID, fmt.Sprintf("Package install failed for %s: %v", p.Name, err))
		return nil, err
	}
	s.event(LevelInfo, p.ID, fmt.Sprintf("Installed %s", strings.Join(pkgs, ", ")))
	return packages.ReadInfo(p.Path, mgr)
}

func (s *ProjectService) manager(p models.Project) packages.Manager {
	if mgr, err := packages.ParseManager(p.PackageManager); err == nil && p.PackageManager != "" {
		return mgr
	}
	return packages.Detect(p.Path, packages.Manager(s.settings.Load().DefaultPackageManager))
}

func (s *ProjectService) installLine(p models.Project) packages.LineFunc {
	return func(stream, line string) {
		level := LevelInfo
		if stream == packages.StreamStderr {
			level = LevelWarning
		}
		s.logs.Log(level, p.ID, line)
	}
}
