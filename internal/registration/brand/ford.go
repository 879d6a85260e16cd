package brand

import "strings"

type ford struct {
	ids IDSource
}

func (ford) Brand() Brand { return Ford }

// GenerateRegistration uses the customer reference as registration number,
// or the registration id when the reference is blank.
func (f ford) GenerateRegistration(customerReference string) (string, string) {
	id := registrationID(f.ids())
	if strings.TrimSpace(customerReference) == "" {
		return id, id
	}
	return id, customerReference
}
