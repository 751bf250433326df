// Package scaffold lists project templates and renders them into new
// project directories.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const manifestFile = "template.yaml"

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidManifest  = errors.New("invalid template manifest")
)

type Variable struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Default     string `yaml:"default,omitempty" json:"default,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// Template is a directory that is copied to create a project.
type Template struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	StartScript string     `yaml:"start_script,omitempty" json:"startScript,omitempty"`
	Variables   []Variable `yaml:"variables,omitempty" json:"variables,omitempty"`
	Dir         string     `yaml:"-" json:"-"`
}

// List returns the templates found directly under dir. A missing dir yields
// no templates.
func List(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Template{}, nil
	}
	if err != nil {
		return nil, err
	}

	templates := []Template{}
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		tpl, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// Find returns the template named name under dir.
func Find(dir, name string) (Template, error) {
	templates, err := List(dir)
	if err != nil {
		return Template{}, err
	}
	for _, tpl := range templates {
		if tpl.Name == name {
			return tpl, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Load reads a template directory. The manifest is optional; without one the
// template is named after its directory.
func Load(dir string) (Template, error) {
	tpl := Template{Name: filepath.Base(dir), Dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return tpl, nil
	}
	if err != nil {
		return Template{}, err
	}

	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, dir, err)
	}
	if tpl.Name == "" {
		tpl.Name = filepath.Base(dir)
	}
	for _, v := range tpl.Variables {
		if !tokenName.MatchString(v.Name) {
			return Template{}, fmt.Errorf("%w: %s: bad variable name %q", ErrInvalidManifest, dir, v.Name)
		}
	}
	tpl.Dir = dir
	return tpl, nil
}
