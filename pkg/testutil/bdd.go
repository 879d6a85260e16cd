package testutil

import "testing"

// Given, When and Then name nested subtests so scenario output reads as a
// sentence, e.g. "Given two car pools/When mapped/Then one registration each".
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
