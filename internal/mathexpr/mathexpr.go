// Package mathexpr validates and evaluates the purely numeric arithmetic
// expressions embedded in tutor output. The grammar is deliberately closed:
// numbers, + - * / ** and parentheses, plus an enumerated allow-list of math
// functions. There is no variable or constant resolution of any kind.
package mathexpr

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numeralRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Result evaluates a single arithmetic expression and returns its formatted
// value. Integer results carry no decimal point; fractional results are
// truncated (never rounded) to 4 decimal digits, with a trailing ellipsis
// when truncation discarded precision.
func Result(expr string) (string, error) {
	v, err := evaluate(expr)
	if err != nil {
		return "", fmt.Errorf("mathexpr: evaluate %q: %w", expr, err)
	}
	return formatValue(v), nil
}

// Equation validates a "lhs=rhs" equation and recomputes its right-hand
// side, ignoring whatever result the model supplied. Anything that cannot be
// validated, a lhs that is already a bare numeral (nothing to compute), a
// rhs that is not a plain signed numeral, or an expression that fails to
// evaluate, returns the input unchanged. Callers treat an unchanged string
// as "could not validate".
func Equation(equation string) string {
	parts := strings.Split(equation, "=")
	if len(parts) != 2 {
		return equation
	}

	left := strings.ReplaceAll(parts[0], " ", "")
	right := strings.TrimSpace(parts[1])

	if numeralRe.MatchString(left) || !numeralRe.MatchString(right) {
		return equation
	}

	v, err := evaluate(left)
	if err != nil {
		return equation
	}
	return left + "=" + formatValue(v)
}

const fractionalDigits = 4

func formatValue(v value) string {
	if v.isInt {
		return strconv.FormatInt(v.i, 10)
	}
	f := v.f
	truncated := math.Trunc(f*1e4) / 1e4
	if f != truncated {
		return fmt.Sprintf("%.*f…", fractionalDigits, truncated)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	// A float result keeps its decimal point even when value-integral:
	// 10/2 renders as 5.0, not 5.
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
