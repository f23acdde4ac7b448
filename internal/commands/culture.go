package commands

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/bg"
	"github.com/go-playground/locales/cs"
	"github.com/go-playground/locales/da"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/de_AT"
	"github.com/go-playground/locales/de_CH"
	"github.com/go-playground/locales/el"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/es_MX"
	"github.com/go-playground/locales/et"
	"github.com/go-playground/locales/fi"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/fr_CH"
	"github.com/go-playground/locales/hr"
	"github.com/go-playground/locales/hu"
	"github.com/go-playground/locales/id"
	"github.com/go-playground/locales/it"
	"github.com/go-playground/locales/it_CH"
	"github.com/go-playground/locales/ja"
	"github.com/go-playground/locales/ko"
	"github.com/go-playground/locales/lt"
	"github.com/go-playground/locales/lv"
	"github.com/go-playground/locales/nb"
	"github.com/go-playground/locales/nl"
	"github.com/go-playground/locales/nn"
	"github.com/go-playground/locales/pl"
	"github.com/go-playground/locales/pt"
	"github.com/go-playground/locales/pt_BR"
	"github.com/go-playground/locales/ro"
	"github.com/go-playground/locales/ru"
	"github.com/go-playground/locales/sk"
	"github.com/go-playground/locales/sl"
	"github.com/go-playground/locales/sr"
	"github.com/go-playground/locales/sv"
	"github.com/go-playground/locales/tr"
	"github.com/go-playground/locales/uk"
	"github.com/go-playground/locales/vi"
	"github.com/go-playground/locales/zh"
	"golang.org/x/text/language"
)

// Culture carries the locale conventions used when parsing numeric values
type Culture struct {
	Tag     language.Tag
	Decimal byte
}

// InvariantCulture parses numbers with a '.' decimal separator
var InvariantCulture = Culture{Tag: language.Und, Decimal: '.'}

// CLDR number symbols keyed by locale name ("de", "de_CH")
var translators = catalog(
	bg.New(), cs.New(), da.New(), de.New(), de_AT.New(), de_CH.New(),
	el.New(), en.New(), en_GB.New(), es.New(), es_MX.New(), et.New(),
	fi.New(), fr.New(), fr_CH.New(), hr.New(), hu.New(), id.New(),
	it.New(), it_CH.New(), ja.New(), ko.New(), lt.New(), lv.New(),
	nb.New(), nl.New(), nn.New(), pl.New(), pt.New(), pt_BR.New(),
	ro.New(), ru.New(), sk.New(), sl.New(), sr.New(), sv.New(), tr.New(),
	uk.New(), vi.New(), zh.New(),
)

// Tags CLDR files under a different name
var localeAliases = map[string]string{"no": "nb"}

func catalog(ts ...locales.Translator) map[string]locales.Translator {
	m := make(map[string]locales.Translator, len(ts))
	for _, t := range ts {
		m[t.Locale()] = t
	}
	return m
}

// decimalSeparator looks up the region specific locale before the base
// language. Unknown locales and multi-byte separators use '.'.
func decimalSeparator(tag language.Tag) byte {
	base, conf := tag.Base()
	if conf == language.No {
		return '.'
	}
	name := base.String()
	if alias, ok := localeAliases[name]; ok {
		name = alias
	}
	t, ok := translators[name]
	if region, conf := tag.Region(); conf == language.Exact {
		if rt, found := translators[name+"_"+region.String()]; found {
			t, ok = rt, true
		}
	}
	if !ok || t.Decimal() != "," {
		return '.'
	}
	return ','
}

// NewCulture returns the culture for a language tag
func NewCulture(tag language.Tag) Culture {
	if tag == language.Und {
		return InvariantCulture
	}
	return Culture{Tag: tag, Decimal: decimalSeparator(tag)}
}

// ParseCulture parses a BCP 47 tag such as "de-DE". Empty or invalid input
// yields the invariant culture.
func ParseCulture(s string) Culture {
	if strings.TrimSpace(s) == "" {
		return InvariantCulture
	}
	tag, err := language.Parse(s)
	if err != nil {
		return InvariantCulture
	}
	return NewCulture(tag)
}

// CultureFromAcceptLanguage picks the highest weighted language of an
// Accept-Language header, falling back to def.
func CultureFromAcceptLanguage(header string, def Culture) Culture {
	if strings.TrimSpace(header) == "" {
		return def
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return def
	}
	return NewCulture(tags[0])
}

func (c Culture) String() string {
	if c.Tag == language.Und {
		return "invariant"
	}
	return c.Tag.String()
}

var errNotNumber = errors.New("not a number")

// ParseFloat parses a decimal number written in the culture's notation.
// Exponents are allowed; group separators, hex notation and non-finite
// values are not.
func (c Culture) ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errNotNumber
	}
	dec := c.Decimal
	if dec == 0 {
		dec = '.'
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9', ch == '+', ch == '-', ch == 'e', ch == 'E':
			b.WriteByte(ch)
		case ch == dec:
			b.WriteByte('.')
		default:
			return 0, errNotNumber
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errNotNumber
	}
	return v, nil
}
