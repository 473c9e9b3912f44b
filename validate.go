package skillet

import (
	"context"
	"errors"

	"github.com/deepnoodle-ai/skillet/script"
	"github.com/deepnoodle-ai/skillet/skill"
)

// Validate runs the full definition checks on s without registering it: the
// field rules of skill.Validate, compilation, and a cross-check of declared
// parameters against the entry point's signature.
func (r *Registry) Validate(ctx context.Context, s *skill.Skill) skill.ValidationResult {
	result := skill.Validate(s)
	if s.FunctionCode == "" {
		return result
	}
	program, err := r.Compile(ctx, s.FunctionCode)
	if err != nil {
		var ce *script.CompileError
		switch {
		case errors.As(err, &ce) && ce.Phase == script.PhaseEntryPoint:
			result.Errors = append(result.Errors, "Function code must define an 'execute' function")
		case errors.As(err, &ce) && ce.Phase == script.PhaseTopLevel:
			result.Errors = append(result.Errors, "Function code may only declare functions and constants outside 'execute': "+ce.Err.Error())
		case errors.As(err, &ce) && ce.Phase == script.PhaseParse:
			result.Errors = append(result.Errors, "Syntax error in function code: "+ce.Err.Error())
		default:
			result.Errors = append(result.Errors, "Function code does not compile: "+err.Error())
		}
		result.Valid = false
		return result
	}
	result.Merge(skill.CheckSignature(s, program.Params()))
	return result
}
