package facts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/quaestio/internal/model"
)

var (
	canonicalMoneyRe = regexp.MustCompile(`^eur:(\d+)$`)
	canonicalRateRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	amountRe         = regexp.MustCompile(amountPattern)
	rateNumberRe     = regexp.MustCompile(`\d{1,3}(?:[.,]\d+)?`)
	spaceRe          = regexp.MustCompile(`\s+`)
)

var monthNumbers = map[string]int{
	"gennaio": 1, "febbraio": 2, "marzo": 3, "aprile": 4, "maggio": 5, "giugno": 6,
	"luglio": 7, "agosto": 8, "settembre": 9, "ottobre": 10, "novembre": 11, "dicembre": 12,
}

// Canonicalize normalizes fact values: dates to ISO form, money to minor
// units, rates to a decimal fraction, lexicon terms to their canonical token.
// Already canonical values are returned unchanged, so Canonicalize is
// idempotent.
func Canonicalize(facts []model.AtomicFact) []model.AtomicFact {
	out := make([]model.AtomicFact, 0, len(facts))
	for _, f := range facts {
		out = append(out, model.AtomicFact{
			Kind:  f.Kind,
			Value: CanonicalValue(f.Kind, f.Value),
			Span:  f.Span,
		})
	}
	return out
}

// CanonicalValue normalizes a single value of the given kind. Values that
// cannot be parsed fall back to lowercased, whitespace-collapsed text.
func CanonicalValue(kind model.FactKind, value string) string {
	v := strings.TrimSpace(prepare(value))

	switch kind {
	case model.FactMonetary:
		if m := canonicalMoneyRe.FindStringSubmatch(v); m != nil {
			cents, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil {
				return formatMoney(cents)
			}
		}
		if amount := amountRe.FindString(v); amount != "" {
			if cents, ok := parseAmount(amount); ok {
				return formatMoney(cents)
			}
		}

	case model.FactRate:
		if strings.ContainsAny(v, "%") || strings.Contains(v, "cento") {
			if num := rateNumberRe.FindString(v); num != "" {
				if r, ok := percentToFraction(num); ok {
					return r
				}
			}
		} else if canonicalRateRe.MatchString(v) {
			return trimDecimal(v)
		}

	case model.FactDate:
		if d, ok := parseDate(v); ok {
			return d.Format("2006-01-02")
		}

	case model.FactLegalEntity, model.FactProfCategory, model.FactGeography:
		for _, t := range lexicon {
			if t.kind != kind {
				continue
			}
			if loc := t.pattern.FindStringIndex(v); loc != nil && loc[0] == 0 && loc[1] == len(v) {
				return t.canonical
			}
		}
	}

	return spaceRe.ReplaceAllString(v, " ")
}

func formatMoney(cents int64) string {
	return fmt.Sprintf("EUR:%d", cents)
}

// parseAmount parses Italian ("1.000,50") and international ("1,000.50")
// amount notation into minor units.
func parseAmount(raw string) (int64, bool) {
	s := strings.Join(strings.Fields(raw), "")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	var intPart, fracPart string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// The later separator is the decimal one
		dec := lastComma
		thousands := "."
		if lastDot > lastComma {
			dec = lastDot
			thousands = ","
		}
		intPart = strings.ReplaceAll(s[:dec], thousands, "")
		fracPart = s[dec+1:]
	case lastComma >= 0:
		intPart, fracPart = splitSingleSeparator(s, ",")
	case lastDot >= 0:
		intPart, fracPart = splitSingleSeparator(s, ".")
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, false
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	minor, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return units*100 + minor, true
}

// splitSingleSeparator handles amounts with only one kind of separator.
// A separator followed by exactly three digits (or used more than once) is a
// thousands separator; otherwise it is the decimal mark.
func splitSingleSeparator(s, sep string) (string, string) {
	parts := strings.Split(s, sep)
	last := parts[len(parts)-1]
	if len(parts) > 2 || len(last) == 3 {
		return strings.Join(parts, ""), ""
	}
	return parts[0], last
}

// percentToFraction turns "22" or "22,5" into "0.22" or "0.225"
func percentToFraction(num string) (string, bool) {
	num = strings.ReplaceAll(num, ",", ".")
	intPart, fracPart, _ := strings.Cut(num, ".")
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	digits := intPart + fracPart
	point := len(intPart) - 2
	for point < 1 {
		digits = "0" + digits
		point++
	}
	return trimDecimal(digits[:point] + "." + digits[point:]), true
}

// trimDecimal strips leading integer zeros and trailing fraction zeros
func trimDecimal(s string) string {
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if !hasFrac {
		return intPart
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// parseDate accepts ISO, dd/mm/yyyy (with / - . separators) and
// "31 dicembre 2024". Impossible dates such as 31/02 are rejected.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ToLower(s))

	var y, m, d int
	if mm := isoDateRe.FindStringSubmatch(s); mm != nil && mm[0] == s {
		y, m, d = atoi(mm[1]), atoi(mm[2]), atoi(mm[3])
	} else if mm := numDateRe.FindStringSubmatch(s); mm != nil && mm[0] == s {
		d, m, y = atoi(mm[1]), atoi(mm[2]), atoi(mm[3])
	} else if mm := textDateRe.FindStringSubmatch(s); mm != nil && mm[0] == s {
		d, m, y = atoi(mm[1]), monthNumbers[mm[2]], atoi(mm[3])
	} else {
		return time.Time{}, false
	}

	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
