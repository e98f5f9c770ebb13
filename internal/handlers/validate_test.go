package handlers

import (
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		slug        string
		description string
		body        string
		wantError   bool
	}{
		{"valid", "My Title", "my-title", "", "Body text", false},
		{"empty title", "", "slug", "", "body", true},
		{"whitespace title", "   ", "slug", "", "body", true},
		{"title too long", strings.Repeat("a", 301), "slug", "", "body", true},
		{"slug too long", "title", strings.Repeat("a", 301), "", "body", true},
		{"malformed slug", "title", "Not A Slug", "", "body", true},
		{"description too long", "title", "slug", strings.Repeat("d", 1_001), "body", true},
		{"body too long", "title", "slug", "", strings.Repeat("a", 100_001), true},
		{"empty body allowed", "title", "slug", "", "", false},
		{"empty slug allowed", "title", "", "", "body", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateContent(tt.title, tt.slug, tt.description, tt.body)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"no-at-sign", false},
		{"user@localhost", false},
		{"Name <user@example.com>", false},
		{"user@@example.com", false},
		{strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := validEmail(tt.in); got != tt.want {
				t.Errorf("validEmail(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateContact(t *testing.T) {
	tests := []struct {
		name                  string
		cname, email, message string
		want                  string
	}{
		{"valid", "Ann", "ann@example.com", "Hello", ""},
		{"missing name", "", "ann@example.com", "Hello", "Name is required."},
		{"missing email", "Ann", "", "Hello", "Email is required."},
		{"bad email", "Ann", "ann", "Hello", "Email is not a valid email address."},
		{"missing message", "Ann", "ann@example.com", "  ", "Message is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateContact(tt.cname, tt.email, "", tt.message); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name                       string
		user, email, pass, confirm string
		wantErrors                 int
	}{
		{"valid", "ann", "ann@example.com", "Secret1!", "Secret1!", 0},
		{"everything wrong", "", "nope", "short", "short", 3},
		{"mismatch", "ann", "ann@example.com", "Secret1!", "Secret2!", 1},
		{"weak password", "ann", "ann@example.com", "alllowercase", "alllowercase", 1},
		{"space in user name", "a nn", "ann@example.com", "Secret1!", "Secret1!", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateRegistration(tt.user, tt.email, tt.pass, tt.confirm)
			if len(errs) != tt.wantErrors {
				t.Errorf("got %d errors %v, want %d", len(errs), errs, tt.wantErrors)
			}
		})
	}
}

func TestValidateRoleName(t *testing.T) {
	if got := validateRoleName(" "); got == "" {
		t.Error("blank role name should be rejected")
	}
	if got := validateRoleName(strings.Repeat("r", 65)); got == "" {
		t.Error("long role name should be rejected")
	}
	if got := validateRoleName("Support"); got != "" {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/manage", "/manage"},
		{"/admin/posts?p=2", "/admin/posts?p=2"},
		{"", "/"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example", "/"},
		{"relative", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := localURL(tt.in, "/"); got != tt.want {
				t.Errorf("localURL(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"+40 721 123 456", true},
		{"(021) 555-0100", true},
		{"12345", false},
		{"0721abc456", false},
		{strings.Repeat("1", 41), false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := validatePhone(tt.phone) == ""; got != tt.ok {
				t.Errorf("validatePhone(%q) ok: got %v, want %v", tt.phone, got, tt.ok)
			}
		})
	}
}
