package config

import (
	"regexp"
	"strings"
)

const (
	minCollectionNameLen = 3
	maxCollectionNameLen = 63
	collectionSeparators = "._-"
)

var invalidCollectionChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeCollectionName restricts name to alphanumerics plus "._-",
// strips leading and trailing separators and bounds the length to 3..63.
func SanitizeCollectionName(name string) string {
	s := invalidCollectionChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, collectionSeparators)

	if len(s) > maxCollectionNameLen {
		s = strings.TrimRight(s[:maxCollectionNameLen], collectionSeparators)
	}
	if len(s) < minCollectionNameLen {
		s += "001"
	}
	return s
}
