package guest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Identity is what an unauthenticated diner must provide before a guest
// checkout may touch the network.
type Identity struct {
	Name    string
	Phone   string
	Email   string // optional
	Consent bool
}

// French mobile/landline: optional +33 / 0033 prefix or a leading 0, one
// digit 1-9, then 8 more digits. Matched after separators are stripped.
var phonePattern = regexp.MustCompile(`^(?:\+33|0033)[1-9][0-9]{8}$|^0[1-9][0-9]{8}$`)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)

var separators = strings.NewReplacer(" ", "", ".", "", "-", "")

// ValidationError carries one message per failing field so the screen can
// annotate inputs individually.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid guest details: " + strings.Join(parts, "; ")
}

// NormalizePhone strips spaces, dots and dashes. The result is what gets
// validated and what is sent onward.
func NormalizePhone(phone string) string {
	return separators.Replace(strings.TrimSpace(phone))
}

// Validate checks the identity and returns a normalized copy. No network
// call may be made until Validate passes.
func Validate(id Identity) (Identity, error) {
	fields := map[string]string{}

	id.Name = strings.TrimSpace(id.Name)
	if id.Name == "" {
		fields["name"] = "name is required"
	}

	id.Phone = NormalizePhone(id.Phone)
	if id.Phone == "" {
		fields["phone"] = "phone is required"
	} else if !phonePattern.MatchString(id.Phone) {
		fields["phone"] = "invalid French phone number"
	}

	id.Email = strings.TrimSpace(id.Email)
	if id.Email != "" && !emailPattern.MatchString(id.Email) {
		fields["email"] = "invalid email address"
	}

	if !id.Consent {
		fields["consent"] = "consent is required"
	}

	if len(fields) > 0 {
		return Identity{}, &ValidationError{Fields: fields}
	}
	return id, nil
}
