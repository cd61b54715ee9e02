// Package script discovers and loads Lua scripts into the runtime.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	plua "github.com/dshills/revscript/internal/script/lua"
)

// ErrNoEntryPoint is reported for a script directory without init.lua.
var ErrNoEntryPoint = errors.New("no entry point found (init.lua)")

// Status is the load status of a script.
type Status int

// Script statuses.
const (
	StatusDiscovered Status = iota
	StatusLoaded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDiscovered:
		return "discovered"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Script describes one discovered script.
type Script struct {
	Name   string
	Path   string
	Status Status
	Err    error
}

// Loader discovers scripts in a list of directories. A script is either a
// single name.lua file or a directory containing init.lua.
type Loader struct {
	// Search paths, checked in order. The first path defining a name wins.
	paths []string

	log zerolog.Logger

	discovered map[string]*Script
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the script search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(log zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log.With().Str("component", "script.loader").Logger()
	}
}

// NewLoader creates a new script loader. Without WithPaths it searches
// ./scripts.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      []string{"scripts"},
		log:        zerolog.Nop(),
		discovered: make(map[string]*Script),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover finds all scripts in the search paths, sorted by name. Missing
// paths are skipped.
func (l *Loader) Discover() ([]*Script, error) {
	l.discovered = make(map[string]*Script)

	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			return nil, fmt.Errorf("discover scripts in %s: %w", basePath, err)
		}
	}

	scripts := make([]*Script, 0, len(l.discovered))
	for _, s := range l.discovered {
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})
	return scripts, nil
}

func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(basePath, entry.Name())

		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				l.add(strings.TrimSuffix(entry.Name(), ".lua"), path, nil)
			}
			continue
		}

		initPath := filepath.Join(path, "init.lua")
		if _, err := os.Stat(initPath); err != nil {
			l.add(entry.Name(), path, ErrNoEntryPoint)
			continue
		}
		l.add(entry.Name(), initPath, nil)
	}
	return nil
}

func (l *Loader) add(name, path string, err error) {
	if _, exists := l.discovered[name]; exists {
		return
	}
	s := &Script{Name: name, Path: path, Status: StatusDiscovered}
	if err != nil {
		s.Status, s.Err = StatusFailed, err
	}
	l.discovered[name] = s
}

// Get returns a discovered script by name.
func (l *Loader) Get(name string) (*Script, bool) {
	s, ok := l.discovered[name]
	return s, ok
}

// LoadAll discovers scripts and runs each in state. A failing script does
// not stop the others; all failures are joined into the returned error.
func (l *Loader) LoadAll(state *plua.State) ([]*Script, error) {
	scripts, err := l.Discover()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, s := range scripts {
		if s.Status == StatusFailed {
			l.log.Warn().Str("script", s.Name).Str("path", s.Path).Err(s.Err).Msg("script skipped")
			errs = append(errs, fmt.Errorf("script %s: %w", s.Name, s.Err))
			continue
		}

		if err := state.DoFile(s.Path); err != nil {
			s.Status, s.Err = StatusFailed, err
			l.log.Error().Str("script", s.Name).Str("path", s.Path).Err(err).Msg("script failed to load")
			errs = append(errs, fmt.Errorf("script %s: %w", s.Name, err))
			continue
		}

		s.Status = StatusLoaded
		l.log.Info().Str("script", s.Name).Str("path", s.Path).Msg("script loaded")
	}
	return scripts, errors.Join(errs...)
}
