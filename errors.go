package skillet

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/skillet/script"
)

var (
	ErrCompilation   = errors.New("skill compilation failed")
	ErrInvalidSkill  = errors.New("invalid skill")
	ErrSkillNotFound = errors.New("skill not found")
	ErrVerifiedSkill = errors.New("verified skills cannot be modified or deleted")
	ErrPersistence   = errors.New("skill persistence failed")
)

// CompileError is returned by Register when a skill's function code does not
// compile.
type CompileError struct {
	Skill string
	Phase script.Phase
	Err   error
}

func (e *CompileError) Error() string {
	return e.Err.Error()
}

func (e *CompileError) Unwrap() []error {
	return []error{ErrCompilation, e.Err}
}

// PersistenceError is returned when the store cannot save or delete a skill.
type PersistenceError struct {
	Skill string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s skill %q: %v", e.Op, e.Skill, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func newCompileError(name string, err error) *CompileError {
	ce := &CompileError{Skill: name, Err: err}
	var se *script.CompileError
	if errors.As(err, &se) {
		ce.Phase = se.Phase
	}
	return ce
}
