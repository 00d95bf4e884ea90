package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/convoflow/convoflow/pkg/flow"
)

// FilesystemFlowRepository loads flow documents from a directory of YAML
// files. Files are parsed once and cached; Reload drops the cache so
// edited flows can be picked up without a restart.
type FilesystemFlowRepository struct {
	baseDir string

	mu    sync.RWMutex
	cache map[string]*flow.Flow
}

// NewFilesystemFlowRepository creates a repository rooted at baseDir. The
// directory must already exist.
func NewFilesystemFlowRepository(baseDir string) (*FilesystemFlowRepository, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open flows directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("flows path is not a directory: %s", baseDir)
	}
	return &FilesystemFlowRepository{
		baseDir: baseDir,
		cache:   make(map[string]*flow.Flow),
	}, nil
}

// Get returns the flow stored in <baseDir>/<name>.yaml, parsing and
// caching it on first use.
func (r *FilesystemFlowRepository) Get(name string) (*flow.Flow, error) {
	if name == "" {
		return nil, fmt.Errorf("flow name cannot be empty")
	}

	r.mu.RLock()
	f, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}

	f, err := flow.ParseFile(r.flowPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %q: %w", name, err)
	}

	r.mu.Lock()
	r.cache[name] = f
	r.mu.Unlock()
	return f, nil
}

// List returns the names of all flow documents in the directory.
func (r *FilesystemFlowRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".yaml"):
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		case strings.HasSuffix(name, ".yml"):
			names = append(names, strings.TrimSuffix(name, ".yml"))
		}
	}
	return names, nil
}

// Reload drops the parse cache.
func (r *FilesystemFlowRepository) Reload() {
	r.mu.Lock()
	r.cache = make(map[string]*flow.Flow)
	r.mu.Unlock()
}

func (r *FilesystemFlowRepository) flowPath(name string) string {
	yamlPath := filepath.Join(r.baseDir, name+".yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return filepath.Join(r.baseDir, name+".yml")
}
