// Package email normalizes the notification address lists stored on vehicles.
package email

import (
	"strings"

	pkgstrings "carreg/pkg/platform/strings"
)

// NormalizeList splits a comma or semicolon separated address list, lower-cases
// and de-duplicates the entries and joins them back with commas.
func NormalizeList(list string) string {
	parts := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';'
	})
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(pkgstrings.DedupeAndTrim(parts), ",")
}

// Invalid returns the entries of a normalized list that are not plausible
// addresses.
func Invalid(list string) []string {
	if list == "" {
		return nil
	}
	var invalid []string
	for _, addr := range strings.Split(list, ",") {
		at := strings.IndexByte(addr, '@')
		if at <= 0 || at == len(addr)-1 || strings.Count(addr, "@") != 1 {
			invalid = append(invalid, addr)
		}
	}
	return invalid
}
