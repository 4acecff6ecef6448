package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether path exists. Stat errors other than
// not-exist count as existing.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// ReadJSON decodes the JSON document at path into v.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes data to a JSON file. The file is written to a temporary
// sibling first and renamed, so readers never see a partial document.
func WriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FindFiles walks dir and returns the files whose base name matches one of
// the comma-separated glob patterns, e.g. "*.srt,*.vtt".
func FindFiles(dir, pattern string) ([]string, error) {
	var globs []string
	for _, p := range strings.Split(pattern, ",") {
		if p = strings.TrimSpace(p); p != "" {
			globs = append(globs, p)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		for _, g := range globs {
			matched, err := filepath.Match(g, d.Name())
			if err != nil {
				return fmt.Errorf("pattern %q: %w", g, err)
			}
			if matched {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	return files, err
}
