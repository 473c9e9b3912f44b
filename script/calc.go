package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

const calcAllowedChars = "0123456789+-*/.() \t"

var calcNumber = regexp.MustCompile(`[0-9.]+`)

// ValidExpression reports whether expr contains only digits, decimal points,
// the four arithmetic operators, parentheses and spaces.
func ValidExpression(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	for _, r := range expr {
		if !strings.ContainsRune(calcAllowedChars, r) {
			return false
		}
	}
	return true
}

// ErrDivisionByZero is reported by Evaluate for x/0.
var ErrDivisionByZero = errors.New("division by zero")

// Evaluate computes an arithmetic expression with floating point semantics.
// Number literals are rewritten to floats so that 7/2 is 3.5.
func Evaluate(ctx context.Context, expr string) (float64, error) {
	if !ValidExpression(expr) {
		return 0, fmt.Errorf("expression contains invalid characters")
	}
	var badLiteral error
	src := calcNumber.ReplaceAllStringFunc(expr, func(lit string) string {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			badLiteral = fmt.Errorf("invalid number %q", lit)
			return lit
		}
		out := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(out, ".") {
			out += ".0"
		}
		return out
	})
	if badLiteral != nil {
		return 0, badLiteral
	}
	result, err := risor.Eval(ctx, src)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "division by zero") {
			return 0, ErrDivisionByZero
		}
		return 0, err
	}
	var v float64
	switch r := result.(type) {
	case *object.Float:
		v = r.Value()
	case *object.Int:
		v = float64(r.Value())
	default:
		return 0, fmt.Errorf("expression did not produce a number")
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrDivisionByZero
	}
	return v, nil
}

func calcModule() *object.Module {
	return object.NewBuiltinsModule("calc", map[string]object.Object{
		"valid": object.NewBuiltin("valid", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.TypeErrorf("type error: calc.valid() takes exactly 1 argument (%d given)", len(args))
			}
			expr, errObj := object.AsString(args[0])
			if errObj != nil {
				return errObj
			}
			return object.NewBool(ValidExpression(expr))
		}),
		"eval": object.NewBuiltin("eval", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.TypeErrorf("type error: calc.eval() takes exactly 1 argument (%d given)", len(args))
			}
			expr, errObj := object.AsString(args[0])
			if errObj != nil {
				return errObj
			}
			v, err := Evaluate(ctx, expr)
			if err != nil {
				return object.NewMap(map[string]object.Object{
					"value":    object.Nil,
					"integral": object.NewBool(false),
					"error":    object.NewString(err.Error()),
				})
			}
			integral := v == math.Trunc(v) && math.Abs(v) < 1<<53
			var value object.Object = object.NewFloat(v)
			if integral {
				value = object.NewInt(int64(v))
			}
			return object.NewMap(map[string]object.Object{
				"value":    value,
				"integral": object.NewBool(integral),
				"error":    object.Nil,
			})
		}),
	})
}
