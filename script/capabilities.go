package script

import (
	"context"
	"strings"
	"time"

	"github.com/risor-io/risor/builtins"
	rjson "github.com/risor-io/risor/modules/json"
	rmath "github.com/risor-io/risor/modules/math"
	rrand "github.com/risor-io/risor/modules/rand"
	rregexp "github.com/risor-io/risor/modules/regexp"
	rstrings "github.com/risor-io/risor/modules/strings"
	rtime "github.com/risor-io/risor/modules/time"
	"github.com/risor-io/risor/object"
)

// DefaultModules are the Risor modules exposed when no WithModules option is
// given.
var DefaultModules = []string{"json", "math", "rand", "regexp", "strings", "time"}

var moduleFactories = map[string]func() *object.Module{
	"json":    rjson.Module,
	"math":    rmath.Module,
	"rand":    rrand.Module,
	"regexp":  rregexp.Module,
	"strings": rstrings.Module,
	"time":    rtime.Module,
}

// Builtins that reach outside the interpreter are never exposed.
var deniedBuiltins = map[string]bool{
	"open":     true,
	"fetch":    true,
	"exec":     true,
	"spawn":    true,
	"getenv":   true,
	"setenv":   true,
	"unsetenv": true,
	"chdir":    true,
	"getwd":    true,
	"print":    true,
}

// Env carries the per-invocation bindings of a program run.
type Env struct {
	// Log receives every log and print call. Nil discards output.
	Log func(message string)

	// ReadPaths are doublestar patterns of absolute paths the fs capability
	// may read. Empty denies every path.
	ReadPaths []string

	// Now overrides the clock capability's time source.
	Now func() time.Time
}

func (e Env) log(message string) {
	if e.Log != nil {
		e.Log(message)
	}
}

func newGlobals(env Env, modules []string) map[string]any {
	globals := map[string]any{}
	for name, value := range builtins.Builtins() {
		if !deniedBuiltins[name] {
			globals[name] = value
		}
	}
	for _, name := range modules {
		globals[name] = moduleFactories[name]()
	}

	logFn := object.NewBuiltin("log", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.TypeErrorf("type error: log() takes exactly 1 argument (%d given)", len(args))
		}
		env.log(display(args[0]))
		return object.Nil
	})
	globals["log"] = logFn
	globals["print"] = object.NewBuiltin("print", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = display(arg)
		}
		env.log(strings.Join(parts, " "))
		return object.Nil
	})
	globals["calc"] = calcModule()
	globals["clock"] = clockModule(env.Now)
	globals["fs"] = newFileAccess(env.ReadPaths).module()
	return globals
}

// display renders a value the way a log line should show it: strings raw,
// everything else in its Risor representation.
func display(obj object.Object) string {
	if s, ok := obj.(*object.String); ok {
		return s.Value()
	}
	return obj.Inspect()
}
