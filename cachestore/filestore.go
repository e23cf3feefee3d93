package cachestore

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// FileStore implements Store using filesystem storage. Each generation is a
// subdirectory; each entry is a JSON file named by its descriptor key.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store rooted at dir. If dir is empty, a
// default directory under the current user's home is used.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		usr, err := user.Current()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(usr.HomeDir, ".expensegw_cache")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Open implements Store.
func (fs *FileStore) Open(name string) (Generation, error) {
	if name == "" {
		return nil, fmt.Errorf("generation name required")
	}
	dir := filepath.Join(fs.dir, sanitizeForFilename(name))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("open generation %s: %w", name, err)
	}
	return &fileGeneration{name: name, dir: dir}, nil
}

// Generations implements Store.
func (fs *FileStore) Generations() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// DeleteGeneration implements Store.
func (fs *FileStore) DeleteGeneration(name string) error {
	dir := filepath.Join(fs.dir, sanitizeForFilename(name))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete generation %s: %w", name, err)
	}
	return nil
}

type fileGeneration struct {
	name string
	dir  string
}

func (g *fileGeneration) Name() string { return g.name }

func (g *fileGeneration) path(d Descriptor) string {
	return filepath.Join(g.dir, d.Key()+".json")
}

// Put implements Generation.
func (g *fileGeneration) Put(d Descriptor, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// Write to a temporary file first, then rename (atomic operation).
	path := g.path(d)
	tmp := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Match implements Generation. Storage failures degrade to a miss.
func (g *fileGeneration) Match(d Descriptor) (*Entry, bool) {
	data, err := os.ReadFile(g.path(d))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	return &e, true
}

// Delete implements Generation.
func (g *fileGeneration) Delete(d Descriptor) error {
	err := os.Remove(g.path(d))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys implements Generation.
func (g *fileGeneration) Keys() ([]string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}
