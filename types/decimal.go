package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrDecimal = errors.New("error parsing decimal value")

// A Decimal is a value with both a whole number part and a decimal part of no
// more than four digits. It is stored as the value multiplied by 10^4.
type Decimal int64

// ParseDecimal takes a string representation of a decimal number such as
// `-1.23` and converts it to a Decimal. The fractional part must be present
// and have between one and four digits.
func ParseDecimal(s string) (Decimal, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0, fmt.Errorf("%w `%s`: missing decimal point", ErrDecimal, s)
	}
	intPart, fracPart := s[:dot], s[dot+1:]
	if len(fracPart) < 1 || len(fracPart) > 4 {
		return 0, fmt.Errorf("%w `%s`: fractional part must have 1 to 4 digits", ErrDecimal, s)
	}
	i, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w `%s`: %w", ErrDecimal, s, err)
	}
	f, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w `%s`: %w", ErrDecimal, s, err)
	}
	for n := len(fracPart); n < 4; n++ {
		f *= 10
	}
	res := i * 10000
	if strings.HasPrefix(intPart, "-") {
		res -= int64(f)
	} else {
		res += int64(f)
	}
	if res/10000 != i {
		return 0, fmt.Errorf("%w `%s`: overflow", ErrDecimal, s)
	}
	return Decimal(res), nil
}

func (v Decimal) Equal(o Value) bool {
	o2, ok := o.(Decimal)
	return ok && v == o2
}

func (v Decimal) Hash() uint64 { return hashUint64(uint64(v)) }

// String produces a string representation of the Decimal, e.g. `12.34`.
// Trailing fractional zeros are trimmed, keeping at least one digit.
func (v Decimal) String() string {
	n := int64(v)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	frac := n % 10000
	digits := 4
	for digits > 1 && frac%10 == 0 {
		frac /= 10
		digits--
	}
	return fmt.Sprintf("%s%d.%0*d", sign, n/10000, digits, frac)
}

func (v Decimal) ExtnFn() Path { return "decimal" }

func (v Decimal) ExtnArgs() []Value { return []Value{String(v.String())} }
