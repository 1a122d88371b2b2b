package names

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/lead-scraper/internal/types"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name      string
		rawFirst  string
		rawFull   string
		wantFirst string
		wantLast  string
	}{
		{
			name:      "credentials after comma are dropped",
			rawFirst:  "Jean-Paul",
			rawFull:   "Jean-Paul O'Brien, MBA",
			wantFirst: "Jean-Paul",
			wantLast:  "O'Brien",
		},
		{
			name:      "upper case input",
			rawFirst:  "MARIA",
			rawFull:   "MARIA DE LA CRUZ",
			wantFirst: "Maria",
			wantLast:  "De La Cruz",
		},
		{
			name:      "prefix match is case insensitive",
			rawFirst:  "anna",
			rawFull:   "Anna Schmidt",
			wantFirst: "Anna",
			wantLast:  "Schmidt",
		},
		{
			name:      "possessive first name",
			rawFirst:  "John's",
			rawFull:   "John's Smith",
			wantFirst: "John",
			wantLast:  "Smith",
		},
		{
			name:      "emoji are stripped",
			rawFirst:  "Lena 🚀",
			rawFull:   "Lena 🚀 Kovacs ✨",
			wantFirst: "Lena",
			wantLast:  "Kovacs",
		},
		{
			name:      "accents are transliterated",
			rawFirst:  "José",
			rawFull:   "José Müller",
			wantFirst: "Jose",
			wantLast:  "Muller",
		},
		{
			name:      "cyrillic is transliterated",
			rawFirst:  "Иван",
			rawFull:   "Иван Петров",
			wantFirst: "Ivan",
			wantLast:  "Petrov",
		},
		{
			name:      "whitespace is collapsed",
			rawFirst:  "  mary   ann ",
			rawFull:   "  mary   ann   smith-JONES ",
			wantFirst: "Mary Ann",
			wantLast:  "Smith-Jones",
		},
		{
			name:      "first name that is not a word prefix keeps the full name",
			rawFirst:  "Sam",
			rawFull:   "Samuel Jones",
			wantFirst: "Sam",
			wantLast:  "Samuel Jones",
		},
		{
			name:      "empty inputs map to sentinels",
			rawFirst:  "",
			rawFull:   "",
			wantFirst: types.FirstNameNotFound,
			wantLast:  types.LastNameNotFound,
		},
		{
			name:      "full name equal to first name has no last name",
			rawFirst:  "Prince",
			rawFull:   "Prince",
			wantFirst: "Prince",
			wantLast:  types.LastNameNotFound,
		},
		{
			name:      "missing first name keeps full name as last name",
			rawFirst:  "",
			rawFull:   "grace hopper, PhD",
			wantFirst: types.FirstNameNotFound,
			wantLast:  "Grace Hopper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.rawFirst, tt.rawFull)
			assert.Equal(t, tt.wantFirst, got.FirstName)
			assert.Equal(t, tt.wantLast, got.LastName)
		})
	}
}

func TestClean_Deterministic(t *testing.T) {
	inputs := [][2]string{
		{"Jean-Paul", "Jean-Paul O'Brien, MBA"},
		{"j.r.r.", "j.r.r. tolkien"},
		{"Zoë", "Zoë D’Arcy"},
	}
	for _, in := range inputs {
		first := Clean(in[0], in[1])
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Clean(in[0], in[1]))
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"john", "John"},
		{"JOHN SMITH", "John Smith"},
		{"j.r.r.", "J.R.R."},
		{"j.r.r. tolkien", "J.R.R. Tolkien"},
		{"mary-kate o'neil", "Mary-Kate O'Neil"},
		{"d’arcy", "D’Arcy"},
		{"(john)", "(John)"},
		{"\"smith\",", "\"Smith\","},
		{"st.john", "St.John"},
		{"3rd", "3rd"},
		{"-", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleCase(tt.input))
		})
	}
}

func TestTitleCase_SegmentProperty(t *testing.T) {
	tokens := []string{"aLiCe", "BOB-SMITH", "o'REILLY", "anne-marie-louise"}
	for _, tok := range tokens {
		out := []rune(TitleCase(tok))
		atStart := true
		for _, r := range out {
			if isSegmentSeparator(r) {
				atStart = true
				continue
			}
			if atStart {
				assert.True(t, r >= 'A' && r <= 'Z', "segment start of %q should be upper", tok)
				atStart = false
				continue
			}
			assert.True(t, r >= 'a' && r <= 'z', "segment rest of %q should be lower", tok)
		}
	}
}
