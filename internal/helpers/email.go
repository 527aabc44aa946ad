package helpers

import (
	"github.com/mcnijman/go-emailaddress"
	"github.com/pkg/errors"
)

const MaxEmailLength = 254

// ValidateEmail normalizes the login e-mail before it is typed into the
// sign-in form.
func ValidateEmail(email string) (string, error) {
	parsedEmail, err := emailaddress.Parse(email)
	if err != nil {
		return "", errors.Wrap(err, "couldn't parse login email")
	}

	email = parsedEmail.String()

	if len(email) > MaxEmailLength {
		return "", errors.New("login email too long")
	}

	return email, nil
}
