package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
)

// DefaultPattern matches skill definition files anywhere below a directory.
const DefaultPattern = "**/*.{json,yaml,yml}"

// Logger is an optional interface for logging during definition loading.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// LoaderOptions configures definition discovery.
type LoaderOptions struct {
	// Paths are directories searched in order. The first definition found
	// for a given name wins.
	Paths []string

	// Pattern is a doublestar glob evaluated inside each path.
	// Defaults to DefaultPattern.
	Pattern string

	// Logger receives debug and warning messages. May be nil.
	Logger Logger
}

// Loader discovers skill definition files on disk. Malformed files are
// logged and skipped; they never abort a load.
//
// The Loader is not safe for concurrent use.
type Loader struct {
	opts   LoaderOptions
	skills map[string]*Skill
	files  map[string]string
}

// NewLoader creates a loader. Call Load to scan the configured paths.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	return &Loader{
		opts:   opts,
		skills: map[string]*Skill{},
		files:  map[string]string{},
	}
}

// Load clears previously loaded definitions and scans every path.
func (l *Loader) Load() error {
	l.skills = map[string]*Skill{}
	l.files = map[string]string{}
	for _, root := range l.opts.Paths {
		if err := l.loadPath(root); err != nil {
			l.logWarn("failed to load skills from %s: %v", root, err)
		}
	}
	return nil
}

func (l *Loader) loadPath(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		l.logDebug("skill path does not exist: %s", root)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	matches, err := doublestar.Glob(os.DirFS(root), l.opts.Pattern)
	if err != nil {
		return fmt.Errorf("glob %q: %w", l.opts.Pattern, err)
	}
	sort.Strings(matches)
	for _, rel := range matches {
		l.loadFile(filepath.Join(root, filepath.FromSlash(rel)))
	}
	return nil
}

func (l *Loader) loadFile(path string) {
	s, err := ParseFile(path)
	if err != nil {
		l.logWarn("failed to parse skill file %s: %v", path, err)
		return
	}
	if prev, exists := l.files[s.Name]; exists {
		l.logDebug("skill %s already loaded from %s, ignoring %s", s.Name, prev, path)
		return
	}
	l.skills[s.Name] = s
	l.files[s.Name] = path
	l.logDebug("loaded skill %s from %s", s.Name, path)
}

// Get returns a loaded definition by exact name.
func (l *Loader) Get(name string) (*Skill, bool) {
	s, ok := l.skills[name]
	return s, ok
}

// Source returns the file a definition was loaded from.
func (l *Loader) Source(name string) (string, bool) {
	path, ok := l.files[name]
	return path, ok
}

// List returns loaded definitions sorted by name.
func (l *Loader) List() []*Skill {
	out := make([]*Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of loaded definitions.
func (l *Loader) Count() int {
	return len(l.skills)
}

// ParseFile reads one definition file. JSON files use the record format;
// YAML files use the same keys.
func ParseFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Decode(data)
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported skill file extension %q", filepath.Ext(path))
	}
}

// DecodeYAML parses a YAML definition.
func DecodeYAML(data []byte) (*Skill, error) {
	s := defaults()
	s.CreatedAt, s.LastModified = "", ""
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.checkRequired(); err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

func (l *Loader) logDebug(format string, args ...any) {
	if l.opts.Logger != nil {
		l.opts.Logger.Debug(fmt.Sprintf(format, args...))
	}
}

func (l *Loader) logWarn(format string, args ...any) {
	if l.opts.Logger != nil {
		l.opts.Logger.Warn(fmt.Sprintf(format, args...))
	}
}
