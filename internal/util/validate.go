package util

import "regexp"

var (
	emailRegexp    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	passwordRegexp = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]{8,}$`)
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`\d`)
)

func IsValidEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

// IsValidPassword requires at least 8 characters with at least one letter and
// one digit; a small symbol set is allowed on top.
func IsValidPassword(password string) bool {
	return passwordRegexp.MatchString(password) &&
		hasLetter.MatchString(password) &&
		hasDigit.MatchString(password)
}

// IsValidUsername allows 3-20 characters of letters, digits, and underscores.
func IsValidUsername(username string) bool {
	return usernameRegexp.MatchString(username)
}
