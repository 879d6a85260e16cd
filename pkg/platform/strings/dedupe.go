// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimUpper is like DedupeAndTrim but also upper-cases each element.
// Vehicle identification numbers are compared this way.
//
// Example:
//
//	DedupeAndTrimUpper([]string{" wvw1 ", "WVW1", "abc"})
//	// Returns: []string{"WVW1", "ABC"}
func DedupeAndTrimUpper(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToUpper(strings.TrimSpace(v))
	})
}

// DedupeBy keeps the first element for every distinct key. Elements whose key
// is empty are dropped.
func DedupeBy[T any](values []T, key func(T) string) []T {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		k := key(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, v)
	}
	return result
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	normalized := make([]string, len(values))
	for i, v := range values {
		normalized[i] = normalize(v)
	}
	return DedupeBy(normalized, func(v string) string { return v })
}
