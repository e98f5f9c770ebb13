package handlers

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"webmvc/internal/auth"
	"webmvc/internal/slug"
)

// Validation limits for form fields.
const (
	maxTitleLen       = 300
	maxSlugLen        = 300
	maxDescriptionLen = 1_000
	maxBodyLen        = 100_000
	maxNameLen        = 200
	maxEmailLen       = 256
	maxPhoneLen       = 40
	maxMessageLen     = 5_000
	maxUserNameLen    = 64
	maxRoleNameLen    = 64
)

// validateContent checks post and product form inputs and returns the
// first error found.
func validateContent(title, itemSlug, description, body string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(itemSlug) > maxSlugLen {
		return "Slug is too long (max 300 characters)."
	}
	if itemSlug != "" && !slug.Valid(itemSlug) {
		return "Slug may only contain lowercase letters, digits and hyphens."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 1,000 characters)."
	}
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "Content is too long (max 100,000 characters)."
	}
	return ""
}

// validateCategory checks category form inputs.
func validateCategory(title, catSlug, description string) string {
	return validateContent(title, catSlug, description, "")
}

// validEmail reports whether s is a bare email address.
func validEmail(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

// validateContact checks the contact form.
func validateContact(name, email, phone, message string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "Name is required."
	case utf8.RuneCountInString(name) > maxNameLen:
		return "Name is too long (max 200 characters)."
	case strings.TrimSpace(email) == "":
		return "Email is required."
	case !validEmail(email):
		return "Email is not a valid email address."
	case utf8.RuneCountInString(phone) > maxPhoneLen:
		return "Phone is too long (max 40 characters)."
	case strings.TrimSpace(message) == "":
		return "Message is required."
	case utf8.RuneCountInString(message) > maxMessageLen:
		return "Message is too long (max 5,000 characters)."
	}
	return ""
}

// validateRegistration checks the registration form.
func validateRegistration(userName, email, password, confirm string) []string {
	var errs []string
	switch {
	case strings.TrimSpace(userName) == "":
		errs = append(errs, "User name is required.")
	case utf8.RuneCountInString(userName) > maxUserNameLen:
		errs = append(errs, "User name is too long (max 64 characters).")
	case strings.ContainsAny(userName, " \t@"):
		errs = append(errs, "User name may not contain spaces or @.")
	}
	if !validEmail(email) {
		errs = append(errs, "Email is not a valid email address.")
	}
	if msg := validatePasswordPair(password, confirm); msg != "" {
		errs = append(errs, msg)
	}
	return errs
}

// validateRoleName checks a role name.
func validateRoleName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Role name is required."
	}
	if utf8.RuneCountInString(name) > maxRoleNameLen {
		return "Role name is too long (max 64 characters)."
	}
	return ""
}

// validatePasswordPair applies the password policy and checks the
// confirmation matches.
func validatePasswordPair(password, confirm string) string {
	if msg := auth.ValidatePassword(password); msg != "" {
		return msg
	}
	if password != confirm {
		return "The password and confirmation password do not match."
	}
	return ""
}

// validatePhone checks a phone number for the SMS code.
func validatePhone(phone string) string {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "Phone number may only contain digits, spaces and + - ( )."
		}
	}
	if digits < 7 || utf8.RuneCountInString(phone) > maxPhoneLen {
		return "Phone number is not valid."
	}
	return ""
}
