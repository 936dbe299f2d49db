package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// value is a number that remembers whether it is still an exact integer.
// Integer results render without a decimal point, so integer arithmetic must
// stay integer for as long as the operations allow: + - * keep integers,
// ** keeps integers for non-negative integer exponents, / always produces a
// float, and most functions produce floats.
type value struct {
	i     int64
	f     float64
	isInt bool
}

func intValue(i int64) value     { return value{i: i, isInt: true} }
func floatValue(f float64) value { return value{f: f} }

func (v value) float() float64 {
	if v.isInt {
		return float64(v.i)
	}
	return v.f
}

// function is an entry in the enumerated allow-list. Calls to any identifier
// outside this table fail the whole expression.
type function struct {
	arity int
	apply func(args []float64) (value, error)
}

func floatFn(f func(float64) float64) function {
	return function{arity: 1, apply: func(args []float64) (value, error) {
		return checkedFloat(f(args[0]))
	}}
}

// intFn wraps functions that map to integers (floor, ceil, trunc).
func intFn(f func(float64) float64) function {
	return function{arity: 1, apply: func(args []float64) (value, error) {
		r := f(args[0])
		if math.IsNaN(r) || math.IsInf(r, 0) || math.Abs(r) > math.MaxInt64 {
			return value{}, errors.New("result out of range")
		}
		return intValue(int64(r)), nil
	}}
}

func checkedFloat(f float64) (value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return value{}, errors.New("result is not a finite number")
	}
	return floatValue(f), nil
}

var functions = map[string]function{
	"sqrt":  floatFn(math.Sqrt),
	"fabs":  floatFn(math.Abs),
	"exp":   floatFn(math.Exp),
	"log":   floatFn(math.Log),
	"log2":  floatFn(math.Log2),
	"log10": floatFn(math.Log10),
	"sin":   floatFn(math.Sin),
	"cos":   floatFn(math.Cos),
	"tan":   floatFn(math.Tan),
	"floor": intFn(math.Floor),
	"ceil":  intFn(math.Ceil),
	"trunc": intFn(math.Trunc),
	"pow": {arity: 2, apply: func(args []float64) (value, error) {
		return checkedFloat(math.Pow(args[0], args[1]))
	}},
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPower
	tokenLParen
	tokenRParen
	tokenComma
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			seenDot := false
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				if runes[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("malformed number at %d", start)
					}
					seenDot = true
				}
				i++
			}
			text := string(runes[start:i])
			if text == "." {
				return nil, fmt.Errorf("malformed number at %d", start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i])})
		case r == '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				tokens = append(tokens, token{kind: tokenPower, text: "**"})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenStar, text: "*"})
				i++
			}
		case r == '+':
			tokens = append(tokens, token{kind: tokenPlus, text: "+"})
			i++
		case r == '-':
			tokens = append(tokens, token{kind: tokenMinus, text: "-"})
			i++
		case r == '/':
			tokens = append(tokens, token{kind: tokenSlash, text: "/"})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ","})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return append(tokens, token{kind: tokenEOF}), nil
}

// parser is a recursive-descent evaluator over the grammar
//
//	expr   := term (('+'|'-') term)*
//	term   := unary (('*'|'/') unary)*
//	unary  := '-' unary | power
//	power  := primary ('**' unary)?
//	primary:= NUMBER | IDENT '(' expr (',' expr)* ')' | '(' expr ')'
//
// '**' is right-associative and binds tighter than a leading unary minus, so
// -2**2 evaluates to -4.
type parser struct {
	tokens []token
	pos    int
}

func evaluate(input string) (value, error) {
	tokens, err := lex(input)
	if err != nil {
		return value{}, err
	}
	p := &parser{tokens: tokens}
	v, err := p.parseExpr()
	if err != nil {
		return value{}, err
	}
	if p.peek().kind != tokenEOF {
		return value{}, fmt.Errorf("unexpected token %q", p.peek().text)
	}
	return v, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (value, error) {
	left, err := p.parseTerm()
	if err != nil {
		return value{}, err
	}
	for {
		switch p.peek().kind {
		case tokenPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return value{}, err
			}
			left = add(left, right)
		case tokenMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return value{}, err
			}
			left = sub(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return value{}, err
	}
	for {
		switch p.peek().kind {
		case tokenStar:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return value{}, err
			}
			left = mul(left, right)
		case tokenSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return value{}, err
			}
			left, err = div(left, right)
			if err != nil {
				return value{}, err
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (value, error) {
	if p.peek().kind == tokenMinus {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return value{}, err
		}
		return neg(v), nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (value, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return value{}, err
	}
	if p.peek().kind != tokenPower {
		return base, nil
	}
	p.next()
	exponent, err := p.parseUnary()
	if err != nil {
		return value{}, err
	}
	return power(base, exponent)
}

func (p *parser) parsePrimary() (value, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return parseNumber(t.text)
	case tokenIdent:
		return p.parseCall(t.text)
	case tokenLParen:
		v, err := p.parseExpr()
		if err != nil {
			return value{}, err
		}
		if p.next().kind != tokenRParen {
			return value{}, errors.New("missing closing parenthesis")
		}
		return v, nil
	default:
		return value{}, fmt.Errorf("unexpected token %q", t.text)
	}
}

// parseCall resolves an identifier against the function allow-list. Bare
// identifiers (variables, constants) are rejected outright.
func (p *parser) parseCall(name string) (value, error) {
	lookup := strings.TrimPrefix(name, "math.")
	fn, ok := functions[lookup]
	if !ok {
		return value{}, fmt.Errorf("name %q is not allowed", name)
	}
	if p.next().kind != tokenLParen {
		return value{}, fmt.Errorf("name %q is not allowed", name)
	}
	args := make([]float64, 0, fn.arity)
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return value{}, err
		}
		args = append(args, arg.float())
		t := p.next()
		if t.kind == tokenRParen {
			break
		}
		if t.kind != tokenComma {
			return value{}, errors.New("missing closing parenthesis in call")
		}
	}
	if len(args) != fn.arity {
		return value{}, fmt.Errorf("%s takes %d argument(s), got %d", lookup, fn.arity, len(args))
	}
	return fn.apply(args)
}

func parseNumber(text string) (value, error) {
	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return intValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return value{}, fmt.Errorf("malformed number %q", text)
	}
	return floatValue(f), nil
}

func add(a, b value) value {
	if a.isInt && b.isInt {
		return intValue(a.i + b.i)
	}
	return floatValue(a.float() + b.float())
}

func sub(a, b value) value {
	if a.isInt && b.isInt {
		return intValue(a.i - b.i)
	}
	return floatValue(a.float() - b.float())
}

func mul(a, b value) value {
	if a.isInt && b.isInt {
		return intValue(a.i * b.i)
	}
	return floatValue(a.float() * b.float())
}

func div(a, b value) (value, error) {
	if b.float() == 0 {
		return value{}, errors.New("division by zero")
	}
	return floatValue(a.float() / b.float()), nil
}

func neg(v value) value {
	if v.isInt {
		return intValue(-v.i)
	}
	return floatValue(-v.f)
}

// power keeps integer semantics for non-negative integer exponents and falls
// back to floats (or fails) everywhere else, including on overflow.
func power(base, exponent value) (value, error) {
	if base.isInt && exponent.isInt && exponent.i >= 0 && exponent.i <= 63 {
		result := int64(1)
		overflow := false
		for n := int64(0); n < exponent.i; n++ {
			next := result * base.i
			if base.i != 0 && next/base.i != result {
				overflow = true
				break
			}
			result = next
		}
		if !overflow {
			return intValue(result), nil
		}
	}
	return checkedFloat(math.Pow(base.float(), exponent.float()))
}
