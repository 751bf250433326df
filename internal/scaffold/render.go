package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/sjson"
)

var (
	ErrDestinationExists = errors.New("destination already exists")
	ErrMissingVariable   = errors.New("missing template variable")
)

const (
	VarProjectName        = "PROJECT_NAME"
	VarProjectSlug        = "PROJECT_SLUG"
	VarProjectDescription = "PROJECT_DESCRIPTION"

	binarySniffLen = 8000
)

var (
	tokenPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)
	tokenName    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	slugInvalid  = regexp.MustCompile(`[^a-z0-9._-]+`)
)

var skipped = map[string]bool{
	manifestFile:   true,
	"node_modules": true,
	".git":         true,
}

// Options carries the values used to render a template.
type Options struct {
	Name        string
	Description string
	Variables   map[string]string
}

// Slug turns a display name into an npm-compatible package name.
func Slug(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "project"
	}
	return s
}

// Values resolves the variables for rendering tpl. Built-ins are set first,
// then template defaults, then caller values.
func Values(tpl Template, opts Options) (map[string]string, error) {
	values := map[string]string{
		VarProjectName:        opts.Name,
		VarProjectSlug:        Slug(opts.Name),
		VarProjectDescription: opts.Description,
	}
	for _, v := range tpl.Variables {
		if v.Default != "" {
			values[v.Name] = v.Default
		}
	}
	for k, v := range opts.Variables {
		values[k] = v
	}
	for _, v := range tpl.Variables {
		if v.Required && values[v.Name] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingVariable, v.Name)
		}
	}
	return values, nil
}

// Render copies tpl into dest, substituting {{VARIABLE}} tokens in text
// files. dest must be absent or empty.
func Render(tpl Template, dest string, opts Options) error {
	values, err := Values(tpl, opts)
	if err != nil {
		return err
	}
	existed, err := checkDestination(dest)
	if err != nil {
		return err
	}

	err = filepath.WalkDir(tpl.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(tpl.Dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dest, 0o755)
		}
		if skipped[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dest, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return renderFile(path, target, info.Mode().Perm(), values)
	})
	if err == nil {
		err = setPackageName(dest, values[VarProjectSlug])
	}
	if err != nil {
		_ = Discard(dest, existed)
		return err
	}
	return nil
}

// Discard undoes a render into dest. A destination that existed before is
// emptied and kept; otherwise it is removed.
func Discard(dest string, existed bool) error {
	if !existed {
		return os.RemoveAll(dest)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Substitute replaces known {{VARIABLE}} tokens. Unknown tokens are kept.
func Substitute(content []byte, values map[string]string) []byte {
	return tokenPattern.ReplaceAllFunc(content, func(tok []byte) []byte {
		name := string(tok[2 : len(tok)-2])
		if v, ok := values[name]; ok {
			return []byte(v)
		}
		return tok
	})
}

func renderFile(src, dst string, mode fs.FileMode, values map[string]string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if !isBinary(data) {
		data = Substitute(data, values)
	}
	return os.WriteFile(dst, data, mode)
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// checkDestination reports whether dest already exists. It must be absent
// or an empty directory.
func checkDestination(dest string) (bool, error) {
	entries, err := os.ReadDir(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil || len(entries) > 0 {
		return true, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	}
	return true, nil
}

func setPackageName(dir, slug string) error {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	updated, err := sjson.SetBytes(data, "name", slug)
	if err != nil {
		return fmt.Errorf("update package.json name: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, updated, info.Mode().Perm())
}
