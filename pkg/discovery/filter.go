package discovery

import (
	"unicode"
	"unicode/utf8"

	"hermes/pkg/models"
)

// Filter accepts handles of exactly Length letters or digits
type Filter struct {
	Length int
}

// NewFilter creates a filter for handles of the given length
func NewFilter(length int) Filter {
	return Filter{Length: length}
}

// Matches reports whether raw, with one leading '@' stripped, has the target
// length and contains only letters and digits
func (f Filter) Matches(raw string) bool {
	handle := models.NormalizeHandle(raw)
	if handle == "" || utf8.RuneCountInString(handle) != f.Length {
		return false
	}
	for _, r := range handle {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
