package skill

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ParseNumber reads a number from free text. The whole trimmed text is tried
// first, then the first number-like substring.
func ParseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, true
	}
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBool maps truthy and falsy words to a boolean.
func ParseBool(text string) (bool, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(text), `."'`)) {
	case "true", "yes", "y", "1", "on":
		return true, true
	case "false", "no", "n", "0", "off":
		return false, true
	}
	return false, false
}

// Coerce converts an externally supplied value to the parameter's declared
// type. It reports false when the value cannot represent that type; callers
// treat such values as absent.
func Coerce(t ParamType, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch t {
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		case string:
			f, ok := ParseNumber(n)
			return f, ok
		}
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, ok := ParseBool(b)
			return parsed, ok
		case float64:
			return b != 0, true
		case int:
			return b != 0, true
		}
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, true
		case fmt.Stringer:
			return s.String(), true
		default:
			return fmt.Sprint(v), true
		}
	}
	return nil, false
}
