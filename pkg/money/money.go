package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (cents).
type Amount int64

// Zero is the canonical zero amount.
const Zero Amount = 0

// ParseAmount strips every character that is not a digit, a decimal point or a
// minus sign from a display price such as "$189" and parses the longest
// numeric prefix of the remainder, so "$10 - $20" is 10 and "$1.299.00" is
// 1.299. Input with no numeric prefix returns NaN.
func ParseAmount(display string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, display)

	n := numericPrefix(cleaned)
	if n == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cleaned[:n], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// numericPrefix returns the length of the longest prefix of s of the form
// -?digits[.digits], or 0 when that prefix holds no digit.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if digits+frac > 0 {
			digits += frac
			i = j
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

// FormatAmount renders a float amount as "$" followed by the value fixed to
// two decimal places. No grouping separators are emitted.
func FormatAmount(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}

// minorLimit is 2^63, the first magnitude an int64 cannot hold.
const minorLimit = float64(1 << 63)

// FromFloat converts a major-unit float to an Amount, rounding half away from
// zero. NaN, infinities and values too large for an Amount become Zero.
func FromFloat(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero
	}
	minor := math.Round(v * 100)
	if math.Abs(minor) >= minorLimit {
		return Zero
	}
	return Amount(minor)
}

// FromDisplay parses a display price into an Amount. Unparseable input is Zero.
func FromDisplay(display string) Amount {
	return FromFloat(ParseAmount(display))
}

// Mul multiplies the amount by a quantity.
func (a Amount) Mul(qty int) Amount {
	return a * Amount(qty)
}

// Float returns the amount in major units.
func (a Amount) Float() float64 {
	return float64(a) / 100
}

// String formats the amount the same way FormatAmount does, e.g. "$12.34"
// or "$-1.50".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("$%s%d.%02d", sign, v/100, v%100)
}

// Priced is anything carrying a display unit price and a quantity.
type Priced interface {
	DisplayPrice() string
	Qty() int
}

// Total sums unit price × quantity over the given items in minor units. Each
// unit price is rounded to cents before it is multiplied, so "$0.333" × 3 is
// $0.99. Items whose price does not parse contribute zero.
func Total[T Priced](items []T) Amount {
	var total Amount
	for _, item := range items {
		total += FromDisplay(item.DisplayPrice()).Mul(item.Qty())
	}
	return total
}

// SumLineItems returns the formatted total of the given items.
func SumLineItems[T Priced](items []T) string {
	return Total(items).String()
}
