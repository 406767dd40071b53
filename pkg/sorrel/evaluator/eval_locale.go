// eval_locale.go - Locale helpers for formatting methods
//
// Maps locale strings onto the monday date locales and formats numbers
// through golang.org/x/text.

package evaluator

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// dateLocales lists the supported date locales. The first entry for a
// language is used when only the language is given.
var dateLocales = []monday.Locale{
	monday.LocaleEnUS, monday.LocaleEnGB,
	monday.LocaleDeDE,
	monday.LocaleFrFR, monday.LocaleFrCA,
	monday.LocaleEsES,
	monday.LocaleItIT,
	monday.LocalePtPT, monday.LocalePtBR,
	monday.LocaleNlNL, monday.LocaleNlBE,
	monday.LocaleSvSE,
	monday.LocaleDaDK,
	monday.LocaleFiFI,
	monday.LocaleNbNO,
	monday.LocalePlPL,
	monday.LocaleRuRU,
	monday.LocaleJaJP,
	monday.LocaleZhCN, monday.LocaleZhTW,
	monday.LocaleKoKR,
}

// dateLocaleIndex maps "en_gb" and "en" style keys to date locales.
var dateLocaleIndex = func() map[string]monday.Locale {
	index := make(map[string]monday.Locale)
	for _, loc := range dateLocales {
		key := strings.ToLower(string(loc))
		index[key] = loc
		lang, _, _ := strings.Cut(key, "_")
		if _, ok := index[lang]; !ok {
			index[lang] = loc
		}
	}
	return index
}()

// dateLocale resolves "de-DE", "de_de" or "de", falling back to the
// language and then to US English.
func dateLocale(locale string) monday.Locale {
	key := strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	if loc, ok := dateLocaleIndex[key]; ok {
		return loc
	}
	lang, _, _ := strings.Cut(key, "_")
	if loc, ok := dateLocaleIndex[lang]; ok {
		return loc
	}
	return monday.LocaleEnUS
}

// localeArg returns the optional locale argument at index i, or the
// context locale.
func localeArg(ctx *Context, method string, args []Object, i int) (string, error) {
	if len(args) <= i {
		return ctx.Locale, nil
	}
	s, ok := args[i].(*String)
	if !ok {
		return "", newTypeError(method, "a locale string", args[i])
	}
	return s.Value, nil
}

func parseLocale(locale string) (language.Tag, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, newFormatError("locale "+locale, err)
	}
	return tag, nil
}

// formatNumberWithLocale groups digits the way the locale does.
func formatNumberWithLocale(value float64, locale string) (Object, error) {
	tag, err := parseLocale(locale)
	if err != nil {
		return nil, err
	}
	p := message.NewPrinter(tag)
	return &String{Value: p.Sprintf("%v", number.Decimal(value))}, nil
}

// caserFor returns a case mapper for the locale, using the root locale
// when the tag cannot be parsed.
func caserFor(kind, locale string) cases.Caser {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	switch kind {
	case "upper":
		return cases.Upper(tag)
	case "lower":
		return cases.Lower(tag)
	}
	return cases.Title(tag)
}

func formatDateWithLocale(t time.Time, layout, locale string) string {
	return monday.Format(t, layout, dateLocale(locale))
}

// weekdayName returns the localized name of a weekday.
func weekdayName(d time.Weekday, locale string) string {
	// 2024-01-07 is a Sunday.
	ref := time.Date(2024, time.January, 7+int(d), 0, 0, 0, 0, time.UTC)
	return monday.Format(ref, "Monday", dateLocale(locale))
}
