package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfig declares a project to register at startup.
type ProjectConfig struct {
	Path           string            `yaml:"path"`
	Name           string            `yaml:"name,omitempty"`
	Description    string            `yaml:"description,omitempty"`
	PackageManager string            `yaml:"package_manager,omitempty"`
	StartScript    string            `yaml:"start_script,omitempty"`
	Environment    map[string]string `yaml:"environment,omitempty"`
	AutoStart      bool              `yaml:"autostart"`
}

type ProjectsConfig struct {
	Projects []ProjectConfig `yaml:"projects"`
}

// LoadProjectsConfig reads a projects.yaml. Relative paths resolve against
// the file's directory and a leading ~ against the home directory.
func LoadProjectsConfig(path string) (*ProjectsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ProjectsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		if strings.TrimSpace(p.Path) == "" {
			return nil, fmt.Errorf("%s: project %d has no path", path, i)
		}
		p.Path = resolvePath(base, p.Path)
	}

	return &cfg, nil
}

func resolvePath(base, p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}
