package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// SplitList splits a delimiter-joined list, trimming and lower-casing each entry.
// Empty entries are dropped; an empty input yields nil.
func SplitList(target string, separate string) []string {
	var out []string
	for _, part := range strings.Split(target, separate) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
