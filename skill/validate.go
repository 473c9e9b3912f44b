package skill

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsIdentifier reports whether name is usable as a skill or parameter name.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ValidationResult collects blocking errors and advisory warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err returns the joined errors, or nil when the result is valid.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(r.Errors, "; "))
}

// Merge appends the errors and warnings of other.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Valid = len(r.Errors) == 0
}

// Validate checks the structural rules of a skill definition. It does not
// compile FunctionCode; see CheckSignature for the entry point cross-check.
func Validate(s *Skill) ValidationResult {
	r := ValidationResult{Errors: []string{}, Warnings: []string{}}

	validateName(&r, s.Name)
	validateDescription(&r, s.Description)

	if !slices.Contains(ValidRoles, s.Role) {
		r.errorf("Invalid role '%s'. Valid roles: %s", s.Role, strings.Join(ValidRoles, ", "))
	}
	if s.Scope != ScopeGlobal && s.Scope != ScopeLocal {
		r.errorf("Invalid scope '%s'. Valid scopes: global, local", s.Scope)
	}

	for _, name := range s.ParameterNames() {
		p := s.Parameters[name]
		if !IsIdentifier(name) {
			r.errorf("Parameter name '%s' must be a valid identifier", name)
		}
		if p.Type == "" {
			r.errorf("Parameter '%s' is missing 'type' field", name)
		} else if !p.Type.Valid() {
			r.errorf("Parameter '%s' has invalid type '%s'. Valid types: string, number, boolean", name, p.Type)
		}
		if p.Description == "" {
			r.warnf("Parameter '%s' is missing a description", name)
		}
	}

	validatePhrases(&r, s.VibeTestPhrases)

	code := strings.TrimSpace(s.FunctionCode)
	if code == "" {
		r.errorf("Function code cannot be empty")
	} else if !strings.Contains(code, "log(") {
		r.warnf("Function should use log() to output results that the AI can see")
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func validateName(r *ValidationResult, name string) {
	if name == "" {
		r.errorf("Skill name is required")
		return
	}
	if !IsIdentifier(name) {
		r.errorf("Skill name '%s' must start with a letter or underscore and contain only letters, digits and underscores", name)
		return
	}
	if len(name) > 50 {
		r.warnf("Skill name is quite long, consider shortening it")
	}
	if unicode.IsUpper(rune(name[0])) {
		r.warnf("Skill names typically use camelCase or snake_case (starting with lowercase)")
	}
}

func validateDescription(r *ValidationResult, description string) {
	if strings.TrimSpace(description) == "" {
		r.warnf("Description is empty - consider adding a clear description of when to use this skill")
		return
	}
	if len(description) < 10 {
		r.warnf("Description is very short - consider providing more detail")
	}
	if len(description) > 500 {
		r.warnf("Description is very long - consider making it more concise")
	}
	lower := strings.ToLower(description)
	if !strings.Contains(lower, "when") && !strings.Contains(lower, "use") &&
		!strings.Contains(lower, "for") && !strings.Contains(lower, "to") {
		r.warnf("Description should clearly indicate when this skill should be used")
	}
}

func validatePhrases(r *ValidationResult, phrases []string) {
	if len(phrases) == 0 {
		r.warnf("No vibe test phrases provided - the AI won't know when to use this skill")
		return
	}
	if len(phrases) < 2 {
		r.warnf("Consider adding more vibe test phrases for better AI recognition")
	}
	for i, phrase := range phrases {
		switch {
		case strings.TrimSpace(phrase) == "":
			r.warnf("Vibe test phrase %d is empty", i+1)
		case len(phrase) < 5:
			r.warnf("Vibe test phrase %d is very short", i+1)
		}
	}
}

// CheckSignature compares the declared parameters with the argument names of
// the compiled entry point. A required parameter missing from the signature
// is an error; optional ones and undeclared arguments are warnings.
func CheckSignature(s *Skill, args []string) ValidationResult {
	r := ValidationResult{Errors: []string{}, Warnings: []string{}}
	for _, name := range s.ParameterNames() {
		if slices.Contains(args, name) {
			continue
		}
		if s.Parameters[name].Required {
			r.errorf("Required parameter '%s' not found in execute function signature", name)
		} else {
			r.warnf("Optional parameter '%s' not found in execute function signature", name)
		}
	}
	for _, arg := range args {
		if _, ok := s.Parameters[arg]; !ok {
			r.warnf("Function argument '%s' not declared in parameters", arg)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}
