package models

import "strings"

// NormalizeVIN trims and upper-cases a vehicle identification number.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}
