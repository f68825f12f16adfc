package models

import (
	"strings"
	"unicode"
)

// Humanize turns a key such as "basicInfo" or "business_tax" into "Basic Info" / "Business Tax".
func Humanize(key string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
		}
		current = append(current, r)
	}
	flush()

	for i, word := range words {
		lower := []rune(strings.ToLower(word))
		lower[0] = unicode.ToUpper(lower[0])
		words[i] = string(lower)
	}
	return strings.Join(words, " ")
}
