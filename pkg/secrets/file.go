package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileSource reads secrets mounted as files, one value per file. A
// directory path yields every file in it keyed by file name.
type fileSource struct {
	dir string
}

func newFileSource(dir string) (Source, error) {
	if dir == "" {
		dir = "/var/run/secrets/payouts"
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("secrets: mount %s not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: mount %s is not a directory", dir)
	}
	return &fileSource{dir: dir}, nil
}

func (f *fileSource) Backend() Backend { return BackendFile }

func (f *fileSource) Close() error { return nil }

func (f *fileSource) Read(_ context.Context, path, _ string) (map[string]string, error) {
	target := filepath.Join(f.dir, filepath.Clean("/"+path))
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("secrets: %s not found: %w", path, err)
	}

	if !info.IsDir() {
		v, err := readTrimmed(target)
		if err != nil {
			return nil, err
		}
		return map[string]string{filepath.Base(target): v}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	data := make(map[string]string, len(entries))
	for _, e := range entries {
		// Kubernetes projects ..data symlinks next to the keys.
		if e.IsDir() || strings.HasPrefix(e.Name(), "..") {
			continue
		}
		v, err := readTrimmed(filepath.Join(target, e.Name()))
		if err != nil {
			return nil, err
		}
		data[e.Name()] = v
	}
	return data, nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
