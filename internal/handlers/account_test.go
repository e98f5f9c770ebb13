package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/auth"
	"webmvc/internal/models"
	"webmvc/internal/session"
)

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.Value != "" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestLoginPage_ReturnsHTML(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Account.LoginPage(rec, httptest.NewRequest(http.MethodGet, "/account/login", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
}

func TestLoginPage_SignedInRedirects(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/account/login?returnUrl=/manage", nil)
	req = req.WithContext(ctxWithSession(req.Context(), testSession(uuid.New(), "someone", nil, true)))
	rec := httptest.NewRecorder()
	env.Account.LoginPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/manage" {
		t.Errorf("Location: got %q, want /manage", loc)
	}
}

func TestLoginSubmit_ValidCredentials(t *testing.T) {
	env := newTestEnv(t)

	name := "login" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Secret#123")

	form := url.Values{"login": {name}, "password": {"Secret#123"}, "returnUrl": {"/products"}}
	rec := httptest.NewRecorder()
	env.Account.LoginSubmit(rec, postForm("/account/login", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/products" {
		t.Errorf("Location: got %q, want /products", loc)
	}
	if !hasCookie(rec, session.CookieName) {
		t.Errorf("expected %s cookie after login", session.CookieName)
	}
}

func TestLoginSubmit_RememberMe(t *testing.T) {
	env := newTestEnv(t)

	name := "remember" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Secret#123")

	tests := []struct {
		remember   string
		persistent bool
	}{
		{"", false},
		{"on", true},
	}
	for _, tt := range tests {
		form := url.Values{"login": {name}, "password": {"Secret#123"}, "remember": {tt.remember}}
		rec := httptest.NewRecorder()
		env.Account.LoginSubmit(rec, postForm("/account/login", form))

		var c *http.Cookie
		for _, rc := range rec.Result().Cookies() {
			if rc.Name == session.CookieName {
				c = rc
			}
		}
		if c == nil {
			t.Fatalf("remember=%q: no session cookie", tt.remember)
		}
		if got := c.MaxAge > 0; got != tt.persistent {
			t.Errorf("remember=%q: persistent cookie got %v, want %v (MaxAge %d)", tt.remember, got, tt.persistent, c.MaxAge)
		}
	}
}

func TestLoginSubmit_ExternalReturnURLIgnored(t *testing.T) {
	env := newTestEnv(t)

	name := "loginext" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Secret#123")

	form := url.Values{"login": {name}, "password": {"Secret#123"}, "returnUrl": {"https://evil.example/"}}
	rec := httptest.NewRecorder()
	env.Account.LoginSubmit(rec, postForm("/account/login", form))

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want /", loc)
	}
}

func TestLoginSubmit_LocksOutAfterThreeFailures(t *testing.T) {
	env := newTestEnv(t)

	name := "lockout" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Secret#123")

	form := url.Values{"login": {name}, "password": {"wrong"}}
	for i := 1; i < auth.MaxFailedAttempts; i++ {
		rec := httptest.NewRecorder()
		env.Account.LoginSubmit(rec, postForm("/account/login", form))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("attempt %d: got %d, want %d", i, rec.Code, http.StatusUnprocessableEntity)
		}
	}

	rec := httptest.NewRecorder()
	env.Account.LoginSubmit(rec, postForm("/account/login", form))
	if loc := rec.Header().Get("Location"); loc != "/account/lockout" {
		t.Fatalf("final attempt: Location got %q, want /account/lockout", loc)
	}

	// The right password is refused while locked out.
	form.Set("password", "Secret#123")
	rec = httptest.NewRecorder()
	env.Account.LoginSubmit(rec, postForm("/account/login", form))
	if loc := rec.Header().Get("Location"); loc != "/account/lockout" {
		t.Errorf("locked login: Location got %q, want /account/lockout", loc)
	}
}

func TestLoginSubmit_UnconfirmedEmail(t *testing.T) {
	env := newTestEnv(t)

	name := "unconf" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	u := createConfirmedUser(t, env, name, "Secret#123")
	env.DB.Exec("UPDATE users SET email_confirmed = FALSE WHERE id = $1", u.ID)

	form := url.Values{"login": {name}, "password": {"Secret#123"}}
	rec := httptest.NewRecorder()
	env.Account.LoginSubmit(rec, postForm("/account/login", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "confirm your email") {
		t.Error("body: want the confirmation notice")
	}
}

func TestRegisterSubmit_CreatesMemberAndMails(t *testing.T) {
	env := newTestEnv(t)

	name := "reg" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })

	form := url.Values{
		"username":         {name},
		"email":            {name + "@test.local"},
		"password":         {"Secret#123"},
		"confirm_password": {"Secret#123"},
	}
	rec := httptest.NewRecorder()
	env.Account.RegisterSubmit(rec, postForm("/account/register", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	u, err := env.Stores.Users.FindByUserName(t.Context(), name)
	if err != nil || u == nil {
		t.Fatalf("registered user not found: %v", err)
	}
	if !u.HasRole(models.RoleMember) {
		t.Errorf("roles: got %v, want Member", u.Roles)
	}
	if u.EmailConfirmed {
		t.Error("email confirmed before the link was used")
	}
	if env.Mailer.count() != 1 {
		t.Errorf("mails sent: got %d, want 1", env.Mailer.count())
	}
}

func TestRegisterSubmit_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"username":         {"weak" + uuid.NewString()[:8]},
		"email":            {"weak@test.local"},
		"password":         {"password"},
		"confirm_password": {"password"},
	}
	rec := httptest.NewRecorder()
	env.Account.RegisterSubmit(rec, postForm("/account/register", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestConfirmEmail_ConsumesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	name := "confirm" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	u := createConfirmedUser(t, env, name, "Secret#123")
	env.DB.Exec("UPDATE users SET email_confirmed = FALSE WHERE id = $1", u.ID)

	if err := env.Codes.Put(ctx, auth.PurposeConfirmEmail, u.ID.String(), "tok123", auth.ConfirmEmailTTL, ""); err != nil {
		t.Fatalf("put code: %v", err)
	}

	target := "/account/confirm-email?" + url.Values{"user": {u.ID.String()}, "code": {"tok123"}}.Encode()
	rec := httptest.NewRecorder()
	env.Account.ConfirmEmail(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	got, _ := env.Stores.Users.FindByID(ctx, u.ID)
	if got == nil || !got.EmailConfirmed {
		t.Error("email not confirmed")
	}

	// A token is single use.
	if _, ok, _ := env.Codes.Consume(ctx, auth.PurposeConfirmEmail, u.ID.String(), "tok123"); ok {
		t.Error("token usable twice")
	}
}

func TestForgotSubmit_SameResponseForUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	name := "forgot" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Secret#123")

	known := httptest.NewRecorder()
	env.Account.ForgotSubmit(known, postForm("/account/forgot-password", url.Values{"email": {name + "@test.local"}}))
	unknown := httptest.NewRecorder()
	env.Account.ForgotSubmit(unknown, postForm("/account/forgot-password", url.Values{"email": {"nobody-" + name + "@test.local"}}))

	if known.Code != unknown.Code {
		t.Errorf("status differs: known %d, unknown %d", known.Code, unknown.Code)
	}
	if env.Mailer.count() != 1 {
		t.Errorf("mails sent: got %d, want 1", env.Mailer.count())
	}
}

func TestResetSubmit_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"user":             {uuid.NewString()},
		"code":             {"nope"},
		"password":         {"Secret#123"},
		"confirm_password": {"Secret#123"},
	}
	rec := httptest.NewRecorder()
	env.Account.ResetSubmit(rec, postForm("/account/reset-password", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestTwoFASubmit_RotatesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	name := "twofa" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	u := createConfirmedUser(t, env, name, "Secret#123")

	pending := testSession(u.ID, name, []string{models.RoleMember}, false)
	signin := httptest.NewRecorder()
	oldID, err := env.Sessions.Create(ctx, signin, pending)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.Codes.Put(ctx, auth.PurposeTwoFactor, u.ID.String(), "482913", time.Minute, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}

	oldCookie := &http.Cookie{Name: session.CookieName, Value: oldID}
	req := postForm("/account/2fa", url.Values{"code": {"482913"}, "returnUrl": {"/manage"}})
	req.AddCookie(oldCookie)
	req = req.WithContext(ctxWithSession(req.Context(), pending))
	rec := httptest.NewRecorder()
	env.Account.TwoFASubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/manage" {
		t.Errorf("Location: got %q, want /manage", loc)
	}

	var fresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			fresh = c
		}
	}
	if fresh == nil || fresh.Value == oldID {
		t.Fatalf("expected a new session id, got %v", fresh)
	}

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(oldCookie)
	if got, _ := env.Sessions.Get(ctx, stale); got != nil {
		t.Error("old session id still valid after 2fa")
	}
	cur := httptest.NewRequest(http.MethodGet, "/", nil)
	cur.AddCookie(fresh)
	got, err := env.Sessions.Get(ctx, cur)
	if err != nil || got == nil {
		t.Fatalf("Get new session: %v %v", got, err)
	}
	if !got.TwoFADone {
		t.Error("TwoFADone: got false, want true")
	}
}

// pendingTwoFA signs u in without the second factor and returns a request
// factory carrying that session.
func pendingTwoFA(t *testing.T, env *testEnv, u *models.User) func(path string, form url.Values) *http.Request {
	t.Helper()
	pending := testSession(u.ID, u.UserName, []string{models.RoleMember}, false)
	id, err := env.Sessions.Create(context.Background(), httptest.NewRecorder(), pending)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return func(path string, form url.Values) *http.Request {
		req := postForm(path, form)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: id})
		return req.WithContext(ctxWithSession(req.Context(), pending))
	}
}

func TestSecondFactor_LocksOutAfterThreeFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		submit func(*Account) http.HandlerFunc
	}{
		{"code", "/account/2fa", func(a *Account) http.HandlerFunc { return a.TwoFASubmit }},
		{"recovery code", "/account/2fa/recovery", func(a *Account) http.HandlerFunc { return a.RecoverySubmit }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			name := "lock2fa" + uuid.NewString()[:8]
			t.Cleanup(func() { cleanUsers(t, env.DB, name) })
			u := createConfirmedUser(t, env, name, "Secret#123")
			request := pendingTwoFA(t, env, u)
			submit := tt.submit(env.Account)

			wrong := url.Values{"code": {"000000"}}
			for i := 1; i < auth.MaxFailedAttempts; i++ {
				rec := httptest.NewRecorder()
				submit(rec, request(tt.path, wrong))
				if rec.Code != http.StatusUnprocessableEntity {
					t.Fatalf("attempt %d: got %d, want %d", i, rec.Code, http.StatusUnprocessableEntity)
				}
			}

			rec := httptest.NewRecorder()
			submit(rec, request(tt.path, wrong))
			if loc := rec.Header().Get("Location"); loc != "/account/lockout" {
				t.Fatalf("final attempt: Location got %q, want /account/lockout", loc)
			}
			locked, err := env.Stores.Users.FindByID(ctx, u.ID)
			if err != nil || locked == nil {
				t.Fatalf("FindByID: %v %v", locked, err)
			}
			if !locked.IsLockedOut(time.Now()) {
				t.Error("account not locked after three wrong codes")
			}

			// A valid code on a fresh pending session is refused while locked.
			if err := env.Codes.Put(ctx, auth.PurposeTwoFactor, u.ID.String(), "482913", time.Minute, ""); err != nil {
				t.Fatalf("Put: %v", err)
			}
			rec = httptest.NewRecorder()
			env.Account.TwoFASubmit(rec, pendingTwoFA(t, env, u)("/account/2fa", url.Values{"code": {"482913"}}))
			if loc := rec.Header().Get("Location"); loc != "/account/lockout" {
				t.Errorf("locked 2fa: Location got %q, want /account/lockout", loc)
			}
		})
	}
}

func TestTwoFASubmit_SuccessClearsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	name := "clr2fa" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	u := createConfirmedUser(t, env, name, "Secret#123")
	request := pendingTwoFA(t, env, u)

	env.Account.TwoFASubmit(httptest.NewRecorder(), request("/account/2fa", url.Values{"code": {"000000"}}))
	if err := env.Codes.Put(ctx, auth.PurposeTwoFactor, u.ID.String(), "482913", time.Minute, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec := httptest.NewRecorder()
	env.Account.TwoFASubmit(rec, request("/account/2fa", url.Values{"code": {"482913"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}

	got, err := env.Stores.Users.FindByID(ctx, u.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID: %v %v", got, err)
	}
	if got.FailedAttempts != 0 {
		t.Errorf("FailedAttempts: got %d, want 0", got.FailedAttempts)
	}
}
