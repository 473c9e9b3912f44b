package skillet

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/deepnoodle-ai/skillet/skill"
)

// Get returns a copy of the named skill.
func (r *Registry) Get(name string) (*skill.Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.skill.Clone(), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns registered skill names in enumeration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Params returns the parameter names the named skill's entry point accepts.
func (r *Registry) Params(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.program.Params(), true
}

// All returns copies of every skill in enumeration order.
func (r *Registry) All() []*skill.Skill {
	return r.filter(func(*skill.Skill) bool { return true })
}

// ByScope returns skills with the given scope.
func (r *Registry) ByScope(scope skill.Scope) []*skill.Skill {
	return r.filter(func(s *skill.Skill) bool { return s.Scope == scope })
}

// ByRole returns skills with the given role.
func (r *Registry) ByRole(role string) []*skill.Skill {
	return r.filter(func(s *skill.Skill) bool { return s.Role == role })
}

// Verified returns the verified skills.
func (r *Registry) Verified() []*skill.Skill {
	return r.filter(func(s *skill.Skill) bool { return s.Verified })
}

// WithVibeTests returns skills that declare at least one vibe test phrase.
func (r *Registry) WithVibeTests() []*skill.Skill {
	return r.filter(func(s *skill.Skill) bool { return len(s.VibeTestPhrases) > 0 })
}

// Match returns skills whose names match a glob pattern such as "get*" or
// "{fileReader,directoryReader}".
func (r *Registry) Match(pattern string) ([]*skill.Skill, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid skill pattern %q: %w", pattern, err)
	}
	return r.filter(func(s *skill.Skill) bool { return g.Match(s.Name) }), nil
}

func (r *Registry) filter(keep func(*skill.Skill) bool) []*skill.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*skill.Skill
	for _, name := range r.order {
		if s := r.entries[name].skill; keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}
