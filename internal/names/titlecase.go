package names

import (
	"strings"
	"unicode"
)

// TitleCase capitalizes each whitespace-separated token.
//
// Leading and trailing punctuation of a token is preserved. Dotted initials
// ("j.r.r.") are upper-cased letter by letter; other tokens get the first letter
// of every hyphen or apostrophe delimited segment upper-cased and the rest lower-cased.
func TitleCase(s string) string {
	fields := strings.Fields(s)
	for i, tok := range fields {
		fields[i] = titleToken(tok)
	}
	return strings.Join(fields, " ")
}

func titleToken(tok string) string {
	runes := []rune(tok)

	start := 0
	for start < len(runes) && !isAlnum(runes[start]) {
		start++
	}
	if start == len(runes) {
		return tok
	}
	end := len(runes)
	for end > start && !isAlnum(runes[end-1]) {
		end--
	}

	leading := string(runes[:start])
	core := runes[start:end]
	trailing := string(runes[end:])

	if isDotted(core) {
		return leading + titleInitials(core) + trailing
	}
	return leading + titleSegments(core) + trailing
}

// isDotted reports whether core contains only letters and dots, with at least one dot.
func isDotted(core []rune) bool {
	hasDot := false
	for _, r := range core {
		switch {
		case r == '.':
			hasDot = true
		case !unicode.IsLetter(r):
			return false
		}
	}
	return hasDot
}

func titleInitials(core []rune) string {
	parts := strings.Split(string(core), ".")
	for i, p := range parts {
		if len([]rune(p)) == 1 {
			parts[i] = strings.ToUpper(p)
			continue
		}
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, ".")
}

func titleSegments(core []rune) string {
	var sb strings.Builder
	atStart := true
	for _, r := range core {
		if isSegmentSeparator(r) {
			sb.WriteRune(r)
			atStart = true
			continue
		}
		if atStart {
			sb.WriteRune(unicode.ToUpper(r))
			atStart = false
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(unicode.ToUpper(runes[0])) + strings.ToLower(string(runes[1:]))
}

func isSegmentSeparator(r rune) bool {
	return r == '-' || r == '\'' || r == '’'
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
