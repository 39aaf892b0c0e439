package summary

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders rounded amounts and dashboard sentences for one
// currency and locale.
type Formatter struct {
	symbol  string
	group   string
	decimal string
}

// NewFormatter returns a formatter for an ISO 4217 currency code and a BCP 47
// locale, e.g. ("USD", "en-US").
func NewFormatter(code, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	p := message.NewPrinter(tag)
	group, dec := separators(p)
	return &Formatter{
		symbol:  p.Sprint(currency.Symbol(unit)),
		group:   group,
		decimal: dec,
	}, nil
}

// separators reads the locale's grouping and decimal separators off a
// sample number. A locale that does not group gets an empty group separator.
func separators(p *message.Printer) (group, dec string) {
	var seps []string
	var cur strings.Builder
	for _, r := range p.Sprint(number.Decimal(1234567.5, number.Scale(Places))) {
		if unicode.IsDigit(r) {
			if cur.Len() > 0 {
				seps = append(seps, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	switch len(seps) {
	case 0:
		return ",", "."
	case 1:
		return "", seps[0]
	default:
		return seps[0], seps[len(seps)-1]
	}
}

// Amount renders d with the currency symbol and two decimals, grouping the
// integer part in threes. Negative amounts get a leading minus sign.
// Digits come from the decimal itself, so large amounts keep every cent.
func (f *Formatter) Amount(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(Places), ".")

	var b strings.Builder
	if d.Round(Places).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(f.symbol)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(r)
	}
	b.WriteString(f.decimal)
	b.WriteString(frac)
	return b.String()
}

// Describe renders one entry as a dashboard line.
func (f *Formatter) Describe(e Entry) string {
	switch e.Direction {
	case OwesYou:
		return fmt.Sprintf("%s owes you %s", e.Label, f.Amount(e.Amount))
	case YouOwe:
		return fmt.Sprintf("You owe %s %s", e.Label, f.Amount(e.Amount.Abs()))
	default:
		return fmt.Sprintf("You and %s are settled up", e.Label)
	}
}
