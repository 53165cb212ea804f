// Package format renders report numbers for people: locale digit grouping
// with a fixed two decimal places.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale groups digits the way the report has always been read
// (1,00,000.00).
const DefaultLocale = "en-IN"

// Formatter formats numbers for one locale. It is safe for concurrent use.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Formatter for locale (a BCP 47 tag such as "en-US").
// Unparseable tags fall back to English.
func New(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the tag this formatter was built for.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Number formats v with grouping separators and exactly two decimals.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v, number.Scale(2)))
}

// Compact formats v with grouping and at most two decimals, for axis ticks.
func (f *Formatter) Compact(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}
