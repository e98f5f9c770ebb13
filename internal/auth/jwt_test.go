package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		UserName: "alice",
		Email:    "alice@example.com",
		Roles:    []string{models.RoleAdmin, models.RoleEditor},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", "webmvc", "webmvc-api", time.Hour)
	u := testUser()

	tok, exp, err := ti.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := ti.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != u.ID {
		t.Errorf("subject: got %v (%v), want %v", id, err, u.ID)
	}
	if claims.Name != "alice" || claims.Email != "alice@example.com" {
		t.Errorf("claims: got %q/%q", claims.Name, claims.Email)
	}
	if !claims.HasRole(models.RoleEditor) || claims.HasRole(models.RoleMember) {
		t.Errorf("roles: got %v", claims.Roles)
	}
}

func TestTokenRejected(t *testing.T) {
	ti := NewTokenIssuer("secret", "webmvc", "webmvc-api", time.Hour)
	tok, _, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	others := map[string]*TokenIssuer{
		"wrong secret":   NewTokenIssuer("other", "webmvc", "webmvc-api", time.Hour),
		"wrong issuer":   NewTokenIssuer("secret", "someone", "webmvc-api", time.Hour),
		"wrong audience": NewTokenIssuer("secret", "webmvc", "elsewhere", time.Hour),
	}
	for name, other := range others {
		if _, err := other.Parse(tok); err != ErrInvalidToken {
			t.Errorf("%s: got %v, want ErrInvalidToken", name, err)
		}
	}

	if _, err := ti.Parse("not-a-token"); err != ErrInvalidToken {
		t.Errorf("garbage: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpired(t *testing.T) {
	ti := NewTokenIssuer("secret", "webmvc", "webmvc-api", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ti.now = time.Now
	if _, err := ti.Parse(tok); err != ErrInvalidToken {
		t.Errorf("expired: got %v, want ErrInvalidToken", err)
	}
}
