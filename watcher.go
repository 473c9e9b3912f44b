package skillet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

// DefaultDebounce is how long a definition file must be quiet before a
// change is applied.
const DefaultDebounce = 300 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Dir holds skill definition files (*.json, *.yaml, *.yml).
	Dir      string
	Registry *Registry
	Logger   slogger.Logger
	Debounce time.Duration
}

// Watcher keeps a registry in sync with a directory of skill definitions.
// Created or changed files are registered; deleted files unregister their
// skill. Verified skills are never replaced or removed this way.
type Watcher struct {
	dir      string
	registry *Registry
	logger   slogger.Logger
	debounce time.Duration

	mu     sync.Mutex
	files  map[string]string
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher. Call Sync to register existing definitions
// and Run to follow changes.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("watcher requires a directory")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("watcher requires a registry")
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		registry: opts.Registry,
		logger:   opts.Logger,
		debounce: opts.Debounce,
		files:    map[string]string{},
		timers:   map[string]*time.Timer{},
	}, nil
}

// Sync registers every definition currently in the directory and returns the
// number registered.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	loader := skill.NewLoader(skill.LoaderOptions{Paths: []string{w.dir}, Logger: w.logger})
	if err := loader.Load(); err != nil {
		return 0, err
	}
	count := 0
	for _, s := range loader.List() {
		path, _ := loader.Source(s.Name)
		if w.register(ctx, path, s) {
			count++
		}
	}
	return count, nil
}

// Run follows changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	err = filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != w.dir {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching skill definitions", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					fsw.Add(event.Name)
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !isDefinitionFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("skill watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.apply(ctx, path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// apply brings the registry in line with the current state of path.
func (w *Watcher) apply(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w.mu.Lock()
		name, ok := w.files[path]
		delete(w.files, path)
		w.mu.Unlock()
		if ok {
			w.unregister(ctx, name)
		}
		return
	}
	s, err := skill.ParseFile(path)
	if err != nil {
		w.logger.Warn("failed to parse skill file", "path", path, "error", err)
		return
	}
	w.mu.Lock()
	prev, hadPrev := w.files[path]
	w.mu.Unlock()
	if w.register(ctx, path, s) && hadPrev && prev != s.Name {
		w.unregister(ctx, prev)
	}
}

func (w *Watcher) register(ctx context.Context, path string, s *skill.Skill) bool {
	if existing, ok := w.registry.Get(s.Name); ok && existing.Verified {
		w.logger.Warn("ignoring definition for verified skill", "skill", s.Name, "path", path)
		return false
	}
	if err := w.registry.Register(ctx, s); err != nil {
		w.logger.Warn("failed to register skill from file", "path", path, "error", err)
		return false
	}
	w.mu.Lock()
	w.files[path] = s.Name
	w.mu.Unlock()
	w.logger.Info("registered skill from file", "skill", s.Name, "path", path)
	return true
}

func (w *Watcher) unregister(ctx context.Context, name string) {
	err := w.registry.Remove(ctx, name)
	switch {
	case err == nil:
		w.logger.Info("unregistered skill", "skill", name)
	case errors.Is(err, ErrSkillNotFound):
	default:
		w.logger.Warn("failed to unregister skill", "skill", name, "error", err)
	}
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return !strings.HasPrefix(filepath.Base(path), ".")
	}
	return false
}
