package brand

import (
	"encoding/base64"
	"strings"
)

const (
	toyotaReferenceLength = 23
	toyotaSuffixLength    = 8
	maxNumberLength       = 32
)

var base64Stripper = strings.NewReplacer("=", "", "+", "", "/", "")

type toyota struct {
	ids IDSource
}

func (toyota) Brand() Brand { return Toyota }

// GenerateRegistration builds "<reference[:23]>-<8 chars>" where the suffix is
// taken from the base64 of a fresh id with non-alphanumerics removed. A blank
// reference yields the registration id as the number.
func (t toyota) GenerateRegistration(customerReference string) (string, string) {
	id := t.ids()
	if strings.TrimSpace(customerReference) == "" {
		regID := registrationID(id)
		return regID, regID
	}
	ref := truncate(customerReference, toyotaReferenceLength)
	suffix := truncate(base64Stripper.Replace(base64.StdEncoding.EncodeToString(id[:])), toyotaSuffixLength)
	return registrationID(id), truncate(ref+"-"+suffix, maxNumberLength)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
