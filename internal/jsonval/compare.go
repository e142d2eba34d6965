package jsonval

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// LooksDecimal reports whether s parses as an arbitrary-precision decimal
// (sign, digits, optional fraction, optional exponent). float64 parsing is
// deliberately not used here.
func LooksDecimal(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}

// ApproxEqual compares two decimal strings allowing an absolute difference
// of up to 10^-places, inclusive. If either side does not parse as a
// decimal the comparison falls back to exact string equality.
func ApproxEqual(expected, actual string, places int) bool {
	e, err1 := decimal.NewFromString(expected)
	a, err2 := decimal.NewFromString(actual)
	if err1 != nil || err2 != nil {
		return expected == actual
	}
	tolerance := decimal.New(1, -int32(places))
	return e.Sub(a).Abs().Cmp(tolerance) <= 0
}

func numbersEqual(a, b string) bool {
	da, err1 := decimal.NewFromString(a)
	db, err2 := decimal.NewFromString(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return da.Equal(db)
}

// ExpectedKind is the comparison rule an expected value resolves to.
// Resolution happens once, when the fixture is parsed, so a malformed
// expectation surfaces at load time rather than per check.
type ExpectedKind int

const (
	// ExpectDecimal is a string shaped like a decimal number; compared
	// tolerantly against the stringified actual value.
	ExpectDecimal ExpectedKind = iota
	// ExpectInt is an integer literal; compared numerically, type-sensitive.
	ExpectInt
	// ExpectBool is a boolean literal; only matches a boolean actual.
	ExpectBool
	// ExpectString is a non-decimal string; compared against the
	// stringified actual value.
	ExpectString
	// ExpectStructural covers everything else; compared by deep equality.
	ExpectStructural
)

// Expected is an expectation value with its comparison rule resolved.
type Expected struct {
	kind ExpectedKind
	dec  string
	i    int64
	b    bool
	s    string
	v    Value
}

// ResolveExpected classifies a fixture value into its comparison rule.
func ResolveExpected(v Value) Expected {
	switch v.Kind() {
	case KindString:
		if LooksDecimal(v.StringVal()) {
			return Expected{kind: ExpectDecimal, dec: v.StringVal()}
		}
		return Expected{kind: ExpectString, s: v.StringVal()}
	case KindBool:
		return Expected{kind: ExpectBool, b: v.BoolVal()}
	case KindNumber:
		if i, err := strconv.ParseInt(v.NumberVal(), 10, 64); err == nil {
			return Expected{kind: ExpectInt, i: i}
		}
		return Expected{kind: ExpectStructural, v: v}
	default:
		return Expected{kind: ExpectStructural, v: v}
	}
}

// DecimalExpected builds an Expected for a decimal string taken from a
// dedicated fixture key (e.g. total_deposits).
func DecimalExpected(s string) Expected {
	return Expected{kind: ExpectDecimal, dec: s}
}

// IntExpected builds an Expected for an exact integer check.
func IntExpected(i int64) Expected {
	return Expected{kind: ExpectInt, i: i}
}

func (e Expected) Kind() ExpectedKind { return e.kind }

// Approx reports whether matching this expectation uses the tolerant
// decimal path; mismatch messages prefix the expected value with "~" then.
func (e Expected) Approx() bool { return e.kind == ExpectDecimal }

// Display renders the expected value for mismatch messages. Plain strings
// are quoted, everything else renders bare.
func (e Expected) Display() string {
	switch e.kind {
	case ExpectDecimal:
		return e.dec
	case ExpectInt:
		return strconv.FormatInt(e.i, 10)
	case ExpectBool:
		return strconv.FormatBool(e.b)
	case ExpectString:
		return strconv.Quote(e.s)
	default:
		return e.v.JSON()
	}
}

// Raw returns the expectation as a plain JSON value, for reporting.
func (e Expected) Raw() Value {
	switch e.kind {
	case ExpectDecimal:
		return String(e.dec)
	case ExpectInt:
		return Number(strconv.FormatInt(e.i, 10))
	case ExpectBool:
		return Bool(e.b)
	case ExpectString:
		return String(e.s)
	default:
		return e.v
	}
}

// Matches applies the resolved comparison rule against an actual value.
func (e Expected) Matches(actual Value, tolerancePlaces int) bool {
	switch e.kind {
	case ExpectDecimal:
		return ApproxEqual(e.dec, actual.String(), tolerancePlaces)
	case ExpectInt:
		if actual.Kind() != KindNumber {
			return false
		}
		return numbersEqual(strconv.FormatInt(e.i, 10), actual.NumberVal())
	case ExpectBool:
		return actual.Kind() == KindBool && actual.BoolVal() == e.b
	case ExpectString:
		return actual.String() == e.s
	default:
		return Equal(e.v, actual)
	}
}
