package packages

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"
)

var (
	ErrNoPackageJSON      = errors.New("package.json not found")
	ErrInvalidPackageJSON = errors.New("invalid package.json")
)

// Dependency is a declared dependency and what is present in node_modules.
type Dependency struct {
	Name      string `json:"name"`
	Wanted    string `json:"wanted"`
	Installed string `json:"installed,omitempty"`
	Dev       bool   `json:"dev"`
	Present   bool   `json:"present"`
	// Outdated is set when the installed version is below the lower bound
	// of a simple range (1.2.3, ^1.2.3, ~1.2.3, >=1.2.3).
	Outdated bool `json:"outdated,omitempty"`
}

// Info summarizes a project's package.json.
type Info struct {
	Name           string            `json:"name"`
	Version        string            `json:"version,omitempty"`
	Description    string            `json:"description,omitempty"`
	Main           string            `json:"main,omitempty"`
	Scripts        map[string]string `json:"scripts"`
	Dependencies   []Dependency      `json:"dependencies"`
	PackageManager Manager           `json:"packageManager"`
	InstalledCount int               `json:"installedCount"`
	MissingCount   int               `json:"missingCount"`
	NodeModules    bool              `json:"nodeModules"`
}

// ReadInfo reads dir/package.json and checks each dependency against
// node_modules.
func ReadInfo(dir string, fallback Manager) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoPackageJSON, dir)
	}
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w in %s", ErrInvalidPackageJSON, dir)
	}

	pkg := gjson.ParseBytes(data)
	info := &Info{
		Name:           pkg.Get("name").String(),
		Version:        pkg.Get("version").String(),
		Description:    pkg.Get("description").String(),
		Main:           pkg.Get("main").String(),
		Scripts:        map[string]string{},
		Dependencies:   []Dependency{},
		PackageManager: Detect(dir, fallback),
	}
	pkg.Get("scripts").ForEach(func(k, v gjson.Result) bool {
		info.Scripts[k.String()] = v.String()
		return true
	})

	if st, err := os.Stat(filepath.Join(dir, "node_modules")); err == nil && st.IsDir() {
		info.NodeModules = true
	}

	collect := func(field string, dev bool) {
		var deps []Dependency
		pkg.Get(field).ForEach(func(k, v gjson.Result) bool {
			dep := Dependency{Name: k.String(), Wanted: v.String(), Dev: dev}
			dep.Installed = installedVersion(dir, dep.Name)
			dep.Present = dep.Installed != ""
			dep.Outdated = outdated(dep.Installed, dep.Wanted)
			deps = append(deps, dep)
			return true
		})
		sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
		info.Dependencies = append(info.Dependencies, deps...)
	}
	collect("dependencies", false)
	collect("devDependencies", true)

	for _, d := range info.Dependencies {
		if d.Present {
			info.InstalledCount++
		} else {
			info.MissingCount++
		}
	}
	return info, nil
}

// installedVersion reads node_modules/<name>/package.json. Scoped names map
// onto nested directories.
func installedVersion(dir, name string) string {
	if strings.Contains(name, "..") {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, "node_modules", filepath.FromSlash(name), "package.json"))
	if err != nil {
		return ""
	}
	v := gjson.GetBytes(data, "version").String()
	if v == "" {
		return "unknown"
	}
	return v
}

func outdated(installed, wanted string) bool {
	floor := strings.TrimSpace(wanted)
	for _, op := range []string{">=", "^", "~", "="} {
		if strings.HasPrefix(floor, op) {
			floor = strings.TrimSpace(floor[len(op):])
			break
		}
	}
	have, want := "v"+installed, "v"+floor
	if !semver.IsValid(have) || !semver.IsValid(want) {
		return false
	}
	return semver.Compare(have, want) < 0
}
