// ABOUTME: Field validators applied by every entity constructor
// ABOUTME: Names, email addresses, phone numbers, dates and required text
package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L}\s'.-]+$`)
	letter       = regexp.MustCompile(`\p{L}`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// DateLayouts are the accepted input formats for task due dates.
var DateLayouts = []string{"2006-01-02", "02/01/2006"}

// ValidateName returns the trimmed name or a ValidationError.
func ValidateName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", invalid("name", "must not be empty")
	}
	if !namePattern.MatchString(name) || !letter.MatchString(name) {
		return "", invalid("name", "must contain only letters")
	}
	if utf8.RuneCountInString(name) < 2 {
		return "", invalid("name", "must have at least 2 characters")
	}
	return name, nil
}

// ValidateEmail returns the lowercased address or a ValidationError.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "must not be empty")
	}
	if !emailPattern.MatchString(email) {
		return "", invalid("email", "malformed address")
	}
	return email, nil
}

// ValidatePhone accepts numbers that reduce to at least 8 digits once spaces,
// dashes and parentheses are removed. A single leading plus is allowed.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", invalid("phone", "must not be empty")
	}
	digits := strings.TrimPrefix(phoneStrip.Replace(phone), "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", invalid("phone", "must contain only digits")
		}
	}
	if len(digits) < 8 {
		return "", invalid("phone", "must have at least 8 digits")
	}
	return phone, nil
}

// ValidateDate parses s using DateLayouts.
func ValidateDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("date", "must not be empty")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("date", "use YYYY-MM-DD or DD/MM/YYYY")
}

// RequireText returns the trimmed text or a ValidationError naming field.
func RequireText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid(field, "must not be empty")
	}
	return s, nil
}
