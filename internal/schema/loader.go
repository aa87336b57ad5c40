package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
)

// =============================================================================
// YAML LOADER
// =============================================================================

// Load reads a schema from a YAML file and asserts it valid.
func Load(path string) (*DomainSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var s DomainSchema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}

	if err := s.AssertValid(); err != nil {
		return nil, err
	}

	logging.Schema("loaded schema %q v%s from %s (%d collections, %d intent fields)",
		s.Name, s.Version, path, len(s.VectorCollections), len(s.IntentFields))
	return &s, nil
}

// LoadOrDefault loads the schema at path if it exists, otherwise returns the
// built-in tools schema.
func LoadOrDefault(path string) (*DomainSchema, error) {
	if path == "" {
		return DefaultToolsSchema(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Schema("no schema file at %s, using built-in default", path)
		return DefaultToolsSchema(), nil
	}
	return Load(path)
}

// =============================================================================
// FILE WATCHER
// =============================================================================

// Watch observes a schema file for edits. The schema is immutable for the
// lifetime of the process, so changes only produce a restart-required
// warning; nothing is hot-reloaded. Returns a stop function.
func Watch(path string) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create schema watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch schema directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == path && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					logging.SchemaWarn("schema file %s changed on disk; restart required to apply", path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.SchemaWarn("schema watcher error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
