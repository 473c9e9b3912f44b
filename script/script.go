// Package script compiles and runs skill programs on the Risor embedded
// interpreter.
//
// A skill program defines a single entry point:
//
//	func execute(number) {
//	    log(sprintf("[Square Root] Result: %v", math.sqrt(number)))
//	}
//
// The top level of a program may only declare functions and literal
// constants. Statements that do work belong inside execute.
//
// Programs see a fixed set of globals and nothing else: log and print bound
// to the caller's log sink, the allowlisted Risor modules, the calc, clock
// and fs capabilities, and the side-effect free Risor builtins. There is no
// import mechanism, no environment access and no network.
package script

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/risor-io/risor/ast"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
	"github.com/risor-io/risor/vm"
)

// EntryPoint is the function every program must define.
const EntryPoint = "execute"

// ErrCompile is wrapped by every *CompileError.
var ErrCompile = errors.New("compilation failed")

// Phase identifies which compilation step rejected a program.
type Phase string

const (
	PhaseParse      Phase = "parse"
	PhaseTopLevel   Phase = "top_level"
	PhaseCompile    Phase = "compile"
	PhaseLoad       Phase = "load"
	PhaseEntryPoint Phase = "entry_point"
)

// CompileError describes why a program was rejected.
type CompileError struct {
	Phase Phase
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *CompileError) Unwrap() []error {
	return []error{ErrCompile, e.Err}
}

// Fault is returned by Program.Call when the program fails at runtime.
type Fault struct {
	Message string
}

func (f *Fault) Error() string { return f.Message }

// Program is a compiled skill program. It is safe for concurrent use; every
// call runs on its own virtual machine.
type Program struct {
	source  string
	modules []string
	params  []string
}

// Option configures compilation.
type Option func(*options)

type options struct {
	modules []string
}

// WithModules restricts the Risor modules visible to the program. Unknown
// names are ignored. Defaults to DefaultModules.
func WithModules(names ...string) Option {
	return func(o *options) {
		o.modules = append([]string{}, names...)
	}
}

// Compile parses and compiles source, evaluates its top level once with a
// discarding log, and checks that it defines a callable entry point.
func Compile(ctx context.Context, source string, opts ...Option) (*Program, error) {
	o := options{modules: DefaultModules}
	for _, opt := range opts {
		opt(&o)
	}
	modules := make([]string, 0, len(o.modules))
	for _, name := range o.modules {
		if _, ok := moduleFactories[name]; ok && !slices.Contains(modules, name) {
			modules = append(modules, name)
		}
	}
	sort.Strings(modules)

	p := &Program{source: source, modules: modules}
	machine, err := p.load(ctx, Env{})
	if err != nil {
		return nil, err
	}
	fn, err := entryPoint(machine)
	if err != nil {
		return nil, err
	}
	p.params = append([]string{}, fn.Parameters()...)
	return p, nil
}

// Params returns the entry point's parameter names in declaration order.
func (p *Program) Params() []string {
	return append([]string{}, p.params...)
}

// Source returns the program text.
func (p *Program) Source() string {
	return p.source
}

// Call runs the entry point with args bound by parameter name. Parameters
// without a matching argument receive nil. Runtime errors, including panics
// inside the interpreter, are returned as *Fault.
func (p *Program) Call(ctx context.Context, env Env, args map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Message: fmt.Sprint(r)}
		}
	}()

	machine, err := p.load(ctx, env)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return &Fault{Message: ce.Err.Error()}
		}
		return err
	}
	fn, err := entryPoint(machine)
	if err != nil {
		return &Fault{Message: err.Error()}
	}

	callArgs := make([]object.Object, len(fn.Parameters()))
	for i, name := range fn.Parameters() {
		callArgs[i] = toObject(args[name])
	}
	result, err := machine.Call(ctx, fn, callArgs)
	if err != nil {
		return &Fault{Message: err.Error()}
	}
	if errObj, ok := result.(*object.Error); ok {
		return &Fault{Message: fmt.Sprint(errObj.Interface())}
	}
	return nil
}

// load builds a fresh VM for the program and runs its top level so that the
// entry point is defined.
func (p *Program) load(ctx context.Context, env Env) (*vm.VirtualMachine, error) {
	globals := newGlobals(env, p.modules)

	program, err := parser.Parse(ctx, p.source)
	if err != nil {
		return nil, &CompileError{Phase: PhaseParse, Err: err}
	}
	if err := checkTopLevel(program); err != nil {
		return nil, &CompileError{Phase: PhaseTopLevel, Err: err}
	}
	code, err := compiler.Compile(program, compiler.WithGlobalNames(globalNames(globals)))
	if err != nil {
		return nil, &CompileError{Phase: PhaseCompile, Err: err}
	}
	machine := vm.New(code, vm.WithGlobals(globals))
	if err := machine.Run(ctx); err != nil {
		return nil, &CompileError{Phase: PhaseLoad, Err: err}
	}
	return machine, nil
}

// checkTopLevel accepts named function declarations and var or const
// declarations of literal values. Running the top level then never loops,
// calls a capability or writes to the log.
func checkTopLevel(program *ast.Program) error {
	for _, stmt := range program.Statements() {
		var value ast.Expression
		switch node := stmt.(type) {
		case *ast.Func:
			if node.Name() != nil {
				continue
			}
		case *ast.Const:
			_, value = node.Value()
		case *ast.Var:
			_, value = node.Value()
		}
		if value != nil && isLiteral(value) {
			continue
		}
		return fmt.Errorf("line %d: only function and constant declarations are allowed outside '%s'",
			stmt.Token().StartPosition.LineNumber(), EntryPoint)
	}
	return nil
}

func isLiteral(expr ast.Expression) bool {
	switch v := expr.(type) {
	case *ast.Int, *ast.Float, *ast.Bool, *ast.Nil, *ast.Func:
		return true
	case *ast.String:
		return v.Template() == nil
	}
	return false
}

func entryPoint(machine *vm.VirtualMachine) (*object.Function, error) {
	obj, err := machine.Get(EntryPoint)
	if err != nil || obj == nil || obj == object.Nil {
		return nil, &CompileError{
			Phase: PhaseEntryPoint,
			Err:   fmt.Errorf("function code must define an '%s' function", EntryPoint),
		}
	}
	fn, ok := obj.(*object.Function)
	if !ok {
		return nil, &CompileError{
			Phase: PhaseEntryPoint,
			Err:   fmt.Errorf("'%s' must be callable, got %s", EntryPoint, obj.Type()),
		}
	}
	return fn, nil
}

func globalNames(globals map[string]any) []string {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
