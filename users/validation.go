package users

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// EmailDomain is the only email domain accepted for portal accounts.
const EmailDomain = "@miuegypt.edu.eg"

// passwordSymbols is the punctuation set counted towards the password
// policy's symbol requirement.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// ValidationError reports the first violated rule of a form submission.
// Field names the offending input so the UI can focus it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SignupRequest carries the raw signup form fields.
type SignupRequest struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            Role
	AcceptedTerms   bool
}

// ValidateSignup checks the signup form and returns the first violated
// rule only, mirroring the inline one-error-at-a-time form behavior.
func ValidateSignup(req SignupRequest) error {
	if strings.TrimSpace(req.FirstName) == "" {
		return validationErr("firstName", "first name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return validationErr("lastName", "last name is required")
	}
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return validationErr("confirmPassword", "passwords do not match")
	}
	if ParseRole(string(req.Role)) == "" {
		return validationErr("role", "a valid role must be selected")
	}
	if !req.AcceptedTerms {
		return validationErr("terms", "you must accept the terms of service")
	}
	return nil
}

// ValidateLoginCredentials checks the login form. Password strength is
// not re-validated here, only presence.
func ValidateLoginCredentials(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return validationErr("password", "password is required")
	}
	return nil
}

// ValidateEmail checks format and the university domain suffix,
// case-insensitively.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationErr("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return validationErr("email", "invalid email address")
	}
	if !strings.HasSuffix(strings.ToLower(email), EmailDomain) {
		return validationErr("email", "email must be a %s address", EmailDomain)
	}
	return nil
}

// ValidatePasswordStrength checks the signup password policy:
// at least 8 characters with an uppercase letter, a lowercase letter,
// a digit and a symbol from the accepted punctuation set.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return validationErr("password", "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, char):
			hasSymbol = true
		}
	}

	if !hasUpper {
		return validationErr("password", "password must contain at least one uppercase letter")
	}
	if !hasLower {
		return validationErr("password", "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return validationErr("password", "password must contain at least one number")
	}
	if !hasSymbol {
		return validationErr("password", "password must contain at least one symbol")
	}
	return nil
}
