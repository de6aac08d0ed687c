// Package matching pairs equivalent prediction-market questions across two
// platforms using normalized text, a lexical score, an optional semantic
// score and a date-context veto.
package matching

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// aliasGroup maps every known spelling of an entity to its canonical token.
type aliasGroup struct {
	canonical string
	variants  []string
}

// aliasTable is applied in order, and variants within a group in order.
var aliasTable = []aliasGroup{
	{"trump", []string{"donald trump", "djt", "d. trump", "donald j. trump", "donald j trump"}},
	{"biden", []string{"joe biden", "joseph biden", "j. biden"}},
	{"harris", []string{"kamala harris", "k. harris", "kamala d. harris"}},
	{"desantis", []string{"ron desantis", "ronald desantis", "r. desantis"}},
	{"us", []string{"united states", "usa", "u.s.", "u.s.a."}},
	{"uk", []string{"united kingdom", "u.k.", "great britain", "britain"}},
	{"fed", []string{"federal reserve", "federal reserve bank"}},
	{"gdp", []string{"gross domestic product"}},
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "of": true, "by": true, "with": true,
	"will": true, "be": true, "is": true, "are": true, "was": true,
	"were": true, "been": true, "being": true,
}

type aliasRule struct {
	pattern   *regexp.Regexp
	canonical string
}

var (
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
	monthRe    = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)\b`)
	quarterRe  = regexp.MustCompile(`\b(q[1-4]|first quarter|second quarter|third quarter|fourth quarter)\b`)
	aliasRules = compileAliases(aliasTable)
)

func compileAliases(groups []aliasGroup) []aliasRule {
	var rules []aliasRule
	for _, g := range groups {
		for _, v := range g.variants {
			rules = append(rules, aliasRule{
				pattern:   regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\b`),
				canonical: g.canonical,
			})
		}
	}
	return rules
}

// Normalize returns the canonical comparison form of a market question. It is
// total and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonWordRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	text = replaceAliases(text)

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if stopwords[w] && len(w) <= 3 {
			continue
		}
		kept = append(kept, w)
	}

	// Dropping a stopword can bring two halves of an alias together.
	return replaceAliases(strings.Join(kept, " "))
}

// replaceAliases rewrites alias variants until the text stops changing. Every
// rewrite either shortens the text by a word or turns a one-word variant into
// a canonical token that is not itself a variant, so the loop terminates.
func replaceAliases(text string) string {
	for {
		next := text
		for _, r := range aliasRules {
			next = replaceWords(r.pattern, next, r.canonical)
		}
		if next == text {
			return text
		}
		text = next
	}
}

// wordSpans returns the matches of re in s that stand alone as words. The
// patterns are anchored with \b, which in Go only knows ASCII word
// characters, so a match touching a non-ASCII letter or digit is dropped
// here ("é2024" and "2024年" name no year).
func wordSpans(re *regexp.Regexp, s string) [][]int {
	spans := re.FindAllStringIndex(s, -1)
	kept := spans[:0]
	for _, sp := range spans {
		before, _ := utf8.DecodeLastRuneInString(s[:sp[0]])
		after, _ := utf8.DecodeRuneInString(s[sp[1]:])
		if isWordRune(before) || isWordRune(after) {
			continue
		}
		kept = append(kept, sp)
	}
	return kept
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func findWords(re *regexp.Regexp, s string) []string {
	var out []string
	for _, sp := range wordSpans(re, s) {
		out = append(out, s[sp[0]:sp[1]])
	}
	return out
}

func replaceWords(re *regexp.Regexp, s, repl string) string {
	spans := wordSpans(re, s)
	if len(spans) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp[0]])
		b.WriteString(repl)
		prev = sp[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

// DateContext holds the temporal hints found in a question.
type DateContext struct {
	Years    []string `json:"years"`
	Months   []string `json:"months"`
	Quarters []string `json:"quarters"`
	// HasDate is set by a year or a month. Quarters alone do not count.
	HasDate bool `json:"has_date"`
}

// ExtractDateContext scans the original, un-normalized question.
func ExtractDateContext(text string) DateContext {
	lower := strings.ToLower(text)
	dc := DateContext{
		Years:    findWords(yearRe, lower),
		Months:   findWords(monthRe, lower),
		Quarters: findWords(quarterRe, lower),
	}
	dc.HasDate = len(dc.Years) > 0 || len(dc.Months) > 0
	return dc
}

// sameYears compares the distinct years mentioned by two questions.
func sameYears(a, b []string) bool {
	set := func(ys []string) map[string]bool {
		m := make(map[string]bool, len(ys))
		for _, y := range ys {
			m[y] = true
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for y := range sa {
		if !sb[y] {
			return false
		}
	}
	return true
}

// yearsConflict reports the date veto: both questions carry a date and they
// name different years.
func yearsConflict(a, b DateContext) bool {
	return a.HasDate && b.HasDate && !sameYears(a.Years, b.Years)
}
