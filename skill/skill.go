// Package skill defines the Skill record: a named, parameterized unit of
// behavior with a natural-language trigger description and a Risor program.
//
// # Record Format
//
// Skills persist as one JSON document per skill:
//
//	{
//	  "name": "square_root",
//	  "description": "Use when the user wants to calculate the square root of a number.",
//	  "vibe_test_phrases": ["what's the square root of 16?"],
//	  "parameters": {
//	    "number": {"type": "number", "required": true, "description": "The number"}
//	  },
//	  "function_code": "func execute(number) { log(sprintf('%v', math.sqrt(number))) }",
//	  "verified": true,
//	  "scope": "global",
//	  "role": "mathematics",
//	  "created_at": "2025-01-02T15:04:05.000000Z",
//	  "last_modified": "2025-01-02T15:04:05.000000Z",
//	  "execution_count": 0,
//	  "success_rate": 100,
//	  "average_execution_time": 0,
//	  "tags": []
//	}
//
// Definition files loaded by Loader may also be written in YAML with the same
// keys.
package skill

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ParamType is the declared type of a skill parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Valid reports whether t is one of the three supported parameter types.
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// Scope distinguishes skills available everywhere from project-local ones.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
)

// Roles a skill may fulfil.
const (
	RoleGeneral           = "general"
	RoleTextProcessing    = "text_processing"
	RoleMathematics       = "mathematics"
	RoleDataAnalysis      = "data_analysis"
	RoleFileOperations    = "file_operations"
	RoleWebUtilities      = "web_utilities"
	RoleTimeDate          = "time_date"
	RoleFormatting        = "formatting"
	RoleValidation        = "validation"
	RoleEmotionalResponse = "emotional_response"
	RoleInformation       = "information"
	RoleAdvanced          = "advanced"
)

// ValidRoles lists every accepted role in display order.
var ValidRoles = []string{
	RoleGeneral,
	RoleTextProcessing,
	RoleMathematics,
	RoleDataAnalysis,
	RoleFileOperations,
	RoleWebUtilities,
	RoleTimeDate,
	RoleFormatting,
	RoleValidation,
	RoleEmotionalResponse,
	RoleInformation,
	RoleAdvanced,
}

// TimeFormat is the ISO-8601 layout used for created_at and last_modified.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// ErrMalformed is returned when a record cannot be decoded into a Skill.
var ErrMalformed = errors.New("malformed skill record")

// Parameter describes one declared parameter of a skill.
type Parameter struct {
	Type        ParamType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Description string    `json:"description" yaml:"description"`
}

// Skill is the unit of capability.
type Skill struct {
	// Name is the unique identifier. It must be a valid identifier.
	Name string `json:"name" yaml:"name"`

	// Description tells the oracle when the skill applies.
	Description string `json:"description" yaml:"description"`

	// VibeTestPhrases are example utterances that should trigger the skill.
	// They are embedded in selection prompts and drive vibe tests.
	VibeTestPhrases []string `json:"vibe_test_phrases" yaml:"vibe_test_phrases"`

	// Parameters maps parameter names to their declarations.
	Parameters map[string]Parameter `json:"parameters" yaml:"parameters"`

	// FunctionCode is the Risor program defining the execute entry point.
	FunctionCode string `json:"function_code" yaml:"function_code"`

	// Verified skills are built-in and immutable through edit paths.
	Verified bool `json:"verified" yaml:"verified"`

	Scope Scope    `json:"scope" yaml:"scope"`
	Role  string   `json:"role" yaml:"role"`
	Tags  []string `json:"tags" yaml:"tags"`

	CreatedAt            string  `json:"created_at" yaml:"created_at"`
	LastModified         string  `json:"last_modified" yaml:"last_modified"`
	ExecutionCount       int     `json:"execution_count" yaml:"execution_count"`
	SuccessRate          float64 `json:"success_rate" yaml:"success_rate"`
	AverageExecutionTime float64 `json:"average_execution_time" yaml:"average_execution_time"`
}

// Now returns the current time formatted for record timestamps.
func Now() string {
	return time.Now().Format(TimeFormat)
}

// New returns a skill with default metadata and fresh timestamps.
func New(name, description, code string) *Skill {
	s := defaults()
	s.Name = name
	s.Description = description
	s.FunctionCode = code
	return s
}

func defaults() *Skill {
	now := Now()
	return &Skill{
		VibeTestPhrases: []string{},
		Parameters:      map[string]Parameter{},
		Scope:           ScopeLocal,
		Role:            RoleGeneral,
		Tags:            []string{},
		CreatedAt:       now,
		LastModified:    now,
		SuccessRate:     100.0,
	}
}

// Normalize fills unset metadata with defaults and replaces nil collections
// with empty ones so that records encode identically after a round-trip.
func (s *Skill) Normalize() {
	if s.VibeTestPhrases == nil {
		s.VibeTestPhrases = []string{}
	}
	if s.Parameters == nil {
		s.Parameters = map[string]Parameter{}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Scope == "" {
		s.Scope = ScopeLocal
	}
	if s.Role == "" {
		s.Role = RoleGeneral
	}
	if s.CreatedAt == "" {
		s.CreatedAt = Now()
	}
	if s.LastModified == "" {
		s.LastModified = s.CreatedAt
	}
}

// Clone returns a deep copy of s.
func (s *Skill) Clone() *Skill {
	c := *s
	if s.VibeTestPhrases != nil {
		c.VibeTestPhrases = append([]string{}, s.VibeTestPhrases...)
	}
	if s.Tags != nil {
		c.Tags = append([]string{}, s.Tags...)
	}
	if s.Parameters != nil {
		c.Parameters = make(map[string]Parameter, len(s.Parameters))
		for k, v := range s.Parameters {
			c.Parameters[k] = v
		}
	}
	return &c
}

// ParameterNames returns the declared parameter names in sorted order.
func (s *Skill) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordExecution folds one execution into the telemetry fields.
func (s *Skill) RecordExecution(ok bool, elapsed time.Duration) {
	prev := s.ExecutionCount
	s.ExecutionCount++
	successes := s.SuccessRate / 100 * float64(prev)
	if ok {
		successes++
	}
	s.SuccessRate = successes / float64(s.ExecutionCount) * 100
	s.AverageExecutionTime = (s.AverageExecutionTime*float64(prev) + elapsed.Seconds()) / float64(s.ExecutionCount)
	s.LastModified = Now()
}

// Encode serializes the skill as an indented JSON record.
func Encode(s *Skill) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses a JSON record. Fields missing from the record take their
// default values. Records without a name or function code are malformed.
func Decode(data []byte) (*Skill, error) {
	s := defaults()
	s.CreatedAt, s.LastModified = "", ""
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.checkRequired(); err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

func (s *Skill) checkRequired() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformed)
	}
	if s.FunctionCode == "" {
		return fmt.Errorf("%w: skill %q has no function_code", ErrMalformed, s.Name)
	}
	return nil
}
