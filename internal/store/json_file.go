// Package store persists projects and settings as JSON files, keeping a
// single backup generation of each.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const backupSuffix = ".backup"

// errNoData is returned when neither the file nor its backup exists.
var errNoData = errors.New("no data")

func backupPath(path string) string {
	return path + backupSuffix
}

// readJSON decodes path into v, falling back to the backup copy when the
// main file is missing or unreadable. It reports which file was used.
func readJSON(path string, v any) (string, error) {
	mainErr := decodeFile(path, v)
	if mainErr == nil {
		return path, nil
	}

	backup := backupPath(path)
	backupErr := decodeFile(backup, v)
	if backupErr == nil {
		return backup, nil
	}

	if errors.Is(mainErr, fs.ErrNotExist) && errors.Is(backupErr, fs.ErrNotExist) {
		return "", errNoData
	}
	return "", fmt.Errorf("read %s: %w (backup: %v)", path, mainErr, backupErr)
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("decode %s: invalid JSON", filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON copies the current file to its backup, then atomically replaces
// it with the encoding of v. A corrupt current file is not copied so it
// cannot overwrite a good backup.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := backupFile(path); err != nil {
		return fmt.Errorf("backup %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func backupFile(path string) error {
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !json.Valid(current) {
		return nil
	}
	return os.WriteFile(backupPath(path), current, 0o644)
}
