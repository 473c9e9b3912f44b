package skillet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/deepnoodle-ai/skillet/script"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
	"github.com/deepnoodle-ai/skillet/store"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Store persists skill records. Defaults to an in-memory store.
	Store store.Store

	// Logger receives registration, load and execution diagnostics.
	Logger slogger.Logger

	// ReadPaths are doublestar patterns of paths skill programs may read
	// through the fs capability. Empty denies all file access.
	ReadPaths []string

	// Modules restricts the Risor modules visible to skill programs.
	// Defaults to script.DefaultModules.
	Modules []string

	// Now overrides the time source seen by skill programs.
	Now func() time.Time
}

type entry struct {
	skill   *skill.Skill
	program *script.Program
}

// Registry owns the set of registered skills and their compiled programs.
//
// Skills are enumerated, and therefore selected and executed, in
// registration order within a process. Load restores the store's listing
// order, which is by name for every bundled store.
//
// The skill map is read-mostly and guarded by a RWMutex; lookups and
// executions run concurrently. Execution output goes to the ExecutionLog the
// caller passes in, so concurrent turns never interleave.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	// persistMu keeps telemetry writes for a skill in order.
	persistMu sync.Mutex

	store     store.Store
	logger    slogger.Logger
	readPaths []string
	modules   []string
	now       func() time.Time
}

// NewRegistry creates an empty registry. Call Load to populate it from the
// store.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Registry{
		entries:   map[string]*entry{},
		store:     opts.Store,
		logger:    opts.Logger,
		readPaths: append([]string(nil), opts.ReadPaths...),
		modules:   opts.Modules,
		now:       opts.Now,
	}
}

// Compile compiles function code with the registry's module allowlist.
func (r *Registry) Compile(ctx context.Context, code string) (*script.Program, error) {
	var opts []script.Option
	if r.modules != nil {
		opts = append(opts, script.WithModules(r.modules...))
	}
	return script.Compile(ctx, code, opts...)
}

// Register validates and compiles s, persists it and makes it available for
// selection, replacing any skill with the same name. On failure the registry
// is unchanged.
//
// Register does not protect verified skills; callers that accept external
// edits must check Get(name).Verified first.
func (r *Registry) Register(ctx context.Context, s *skill.Skill) error {
	if s == nil {
		return fmt.Errorf("%w: nil skill", ErrInvalidSkill)
	}
	s = s.Clone()
	s.Normalize()

	if err := checkSkill(s); err != nil {
		r.logger.Error(fmt.Sprintf("[System] Error registering skill '%s': %v", s.Name, err))
		return err
	}
	program, err := r.Compile(ctx, s.FunctionCode)
	if err != nil {
		ce := newCompileError(s.Name, err)
		r.logger.Error(fmt.Sprintf("[System] Error registering skill '%s': %v", s.Name, ce), "phase", ce.Phase)
		return ce
	}

	if prev, ok := r.Get(s.Name); ok {
		if diff, err := SkillDiff(prev, s); err == nil && diff != "" {
			r.logger.Debug("skill code changed", "skill", s.Name, "diff", diff)
		}
	}
	s.LastModified = skill.Now()

	r.persistMu.Lock()
	defer r.persistMu.Unlock()
	if err := r.Save(ctx, s); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.entries[s.Name]; !exists {
		r.order = append(r.order, s.Name)
	}
	r.entries[s.Name] = &entry{skill: s, program: program}
	r.mu.Unlock()

	r.logger.Debug("registered skill", "skill", s.Name, "params", program.Params())
	return nil
}

// checkSkill enforces the structural invariants every registered skill
// holds. Softer quality checks live in skill.Validate.
func checkSkill(s *skill.Skill) error {
	if !skill.IsIdentifier(s.Name) {
		return fmt.Errorf("%w: name %q must be a valid identifier", ErrInvalidSkill, s.Name)
	}
	for _, name := range s.ParameterNames() {
		if t := s.Parameters[name].Type; !t.Valid() {
			return fmt.Errorf("%w: parameter %q has invalid type %q", ErrInvalidSkill, name, t)
		}
	}
	if s.Scope != skill.ScopeGlobal && s.Scope != skill.ScopeLocal {
		return fmt.Errorf("%w: invalid scope %q", ErrInvalidSkill, s.Scope)
	}
	return nil
}

// Save writes the record for s to the store.
func (r *Registry) Save(ctx context.Context, s *skill.Skill) error {
	data, err := skill.Encode(s)
	if err != nil {
		return &PersistenceError{Skill: s.Name, Op: "encode", Err: err}
	}
	if err := r.store.Put(ctx, s.Name, data); err != nil {
		return &PersistenceError{Skill: s.Name, Op: "save", Err: err}
	}
	return nil
}

// Execute runs the named skill with params, appending its output to log.
//
// An unknown name or a runtime fault in the program is reported in the log
// and is not an error. Params are bound by declared name and coerced to the
// declared type; values that cannot be coerced are passed as nil. Telemetry
// is updated and persisted after every call; only a persistence failure is
// returned.
func (r *Registry) Execute(ctx context.Context, log *ExecutionLog, name string, params map[string]any) error {
	if log == nil {
		log = NewExecutionLog()
	}
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		log.Append(fmt.Sprintf("[System] Error: Unknown skill '%s'", name))
		return nil
	}

	env := script.Env{Log: log.sink(name), ReadPaths: r.readPaths, Now: r.now}
	start := time.Now()
	err := e.program.Call(ctx, env, bindParams(e.skill, params))
	elapsed := time.Since(start)
	if err != nil {
		log.add(name, fmt.Sprintf("[System] Error executing skill '%s': %v", name, err))
		r.logger.Warn("skill execution failed", "skill", name, "error", err)
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()
	r.mu.Lock()
	e.skill.RecordExecution(err == nil, elapsed)
	snapshot := e.skill.Clone()
	current := r.entries[name] == e
	r.mu.Unlock()
	if !current {
		// Replaced or removed while running; the new record wins.
		return nil
	}
	return r.Save(ctx, snapshot)
}

func bindParams(s *skill.Skill, params map[string]any) map[string]any {
	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = v
	}
	for name, p := range s.Parameters {
		v, ok := args[name]
		if !ok {
			continue
		}
		if coerced, ok := skill.Coerce(p.Type, v); ok {
			args[name] = coerced
		} else {
			delete(args, name)
		}
	}
	return args
}

// Load replaces the registry's contents with the records in the store.
// Records that cannot be decoded, break the naming, parameter type or scope
// rules, or do not compile are logged and skipped. If no record loads, the
// built-in skills are registered.
//
// Loaded skills are enumerated in the order the store lists them. Every
// bundled store lists by name, so after a restart enumeration is
// alphabetical rather than registration order.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.List(ctx)
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}
	entries := map[string]*entry{}
	var order []string
	for _, rec := range records {
		s, err := skill.Decode(rec.Data)
		if err != nil {
			r.logger.Warn("skipping corrupt skill record", "record", rec.Name, "error", err)
			continue
		}
		if err := checkSkill(s); err != nil {
			r.logger.Warn("skipping invalid skill record", "record", rec.Name, "error", err)
			continue
		}
		program, err := r.Compile(ctx, s.FunctionCode)
		if err != nil {
			r.logger.Warn("skipping skill that does not compile", "skill", s.Name, "error", err)
			continue
		}
		if _, dup := entries[s.Name]; dup {
			r.logger.Warn("skipping duplicate skill record", "record", rec.Name, "skill", s.Name)
			continue
		}
		entries[s.Name] = &entry{skill: s, program: program}
		order = append(order, s.Name)
	}

	r.mu.Lock()
	r.entries = entries
	r.order = order
	r.mu.Unlock()

	r.logger.Info("loaded skills", "count", len(order))
	if len(order) == 0 {
		return r.RedeployBuiltins(ctx)
	}
	return nil
}

// RedeployBuiltins registers a fresh copy of every built-in skill. It is the
// only path that rewrites verified skills.
func (r *Registry) RedeployBuiltins(ctx context.Context) error {
	var errs []error
	for _, s := range skill.Builtins() {
		if err := r.Register(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes a non-verified skill from memory and from the store.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSkillNotFound, name)
	}
	if e.skill.Verified {
		return fmt.Errorf("%w: %s", ErrVerifiedSkill, name)
	}
	if err := r.store.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		return &PersistenceError{Skill: name, Op: "delete", Err: err}
	}

	r.mu.Lock()
	delete(r.entries, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	r.mu.Unlock()

	r.logger.Debug("removed skill", "skill", name)
	return nil
}
