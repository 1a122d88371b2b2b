// Package names normalizes raw display-name fragments into clean first/last name pairs.
package names

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/lead-scraper/internal/types"
)

// Name is a normalized first/last name pair.
type Name struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	possessiveRe    = regexp.MustCompile(`(?i)['’]s$`)
	trailingQuoteRe = regexp.MustCompile(`['’]$`)
)

// Clean turns the raw first-name fragment and the raw full display name into a
// title-cased pair. Missing parts map to the "not found" sentinels.
func Clean(rawFirst, rawFull string) Name {
	first := parseFirstName(rawFirst)
	if first == "" {
		first = types.FirstNameNotFound
	}
	last := parseLastName(rawFirst, rawFull)
	if last == "" {
		last = types.LastNameNotFound
	}
	return Name{FirstName: first, LastName: last}
}

func parseFirstName(raw string) string {
	s := stripEmoji(raw)
	s = transliterate(s)
	s = collapseWhitespace(s)
	s = stripPossessive(s)
	return TitleCase(s)
}

func parseLastName(rawFirst, rawFull string) string {
	s := rawFull

	if f := stripPossessive(strings.TrimSpace(rawFirst)); f != "" {
		prefix := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(f) + `(?:['’]s?)?(?:\s+|$)`)
		s = prefix.ReplaceAllString(s, "")
	}

	s = stripEmoji(s)
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	s = transliterate(strings.TrimSpace(s))
	s = collapseWhitespace(s)
	return TitleCase(s)
}

func stripPossessive(s string) string {
	s = possessiveRe.ReplaceAllString(s, "")
	return trailingQuoteRe.ReplaceAllString(s, "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// transliterate maps non-Latin scripts and accented letters to plain Latin.
func transliterate(s string) string {
	if s == "" {
		return s
	}
	return unidecode.Unidecode(norm.NFC.String(s))
}

// stripEmoji removes pictographs and the joiners, selectors and modifiers that compose them.
func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u200d', r == '\u20e3':
			return -1
		case r >= '\ufe00' && r <= '\ufe0f':
			return -1
		case r >= 0x1f3fb && r <= 0x1f3ff:
			return -1
		case r >= 0xe0020 && r <= 0xe007f:
			return -1
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Co, r):
			return -1
		}
		return r
	}, s)
}
