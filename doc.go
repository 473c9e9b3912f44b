// Package skillet lets an operator register named skills, small Risor
// programs with typed parameters and natural-language trigger descriptions,
// and lets a free-text utterance activate zero or more of them.
//
// The core types are:
//
//   - [Registry] validates, compiles, persists and executes skills.
//   - [Selector] asks an [Oracle] whether each registered skill applies to an
//     utterance, then uses an [Extractor] to pull out parameter values.
//   - [Runner] ties the two together for one turn and returns its
//     [ExecutionLog].
//   - [Watcher] keeps a registry in sync with a directory of definitions.
//
// # Quick Start
//
//	st, _ := store.NewFileStore("~/.skillet/skills")
//	reg := skillet.NewRegistry(skillet.RegistryOptions{Store: st})
//	_ = reg.Load(ctx)
//	runner := skillet.NewRunner(skillet.RunnerOptions{
//	    Registry: reg,
//	    Selector: skillet.NewSelector(skillet.SelectorOptions{Oracle: oracle}),
//	})
//	turn, _ := runner.Run(ctx, "what's the square root of 16?")
//	fmt.Println(strings.Join(turn.Log.Lines(), "\n"))
//
// Untrusted candidate programs are tested out of process by the
// [github.com/deepnoodle-ai/skillet/sandbox] package before registration.
// Oracle implementations live in the oracle subpackages.
package skillet
