package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/auth"
	"webmvc/internal/mail"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/secure"
	"webmvc/internal/session"
	"webmvc/internal/sms"
	"webmvc/internal/store"
)

// Account groups registration, sign-in, two-factor and password recovery
// handlers.
type Account struct {
	renderer  *render.Renderer
	sessions  *session.Store
	users     *store.UserStore
	codes     *auth.OneTimeCodes
	mailer    mail.Sender
	texter    sms.Sender
	cipher    *secure.Cipher
	baseURL   string
	providers []string
}

// NewAccount creates a new Account handler group. providers lists the
// enabled external login providers.
func NewAccount(renderer *render.Renderer, sessions *session.Store, users *store.UserStore, codes *auth.OneTimeCodes, mailer mail.Sender, texter sms.Sender, cipher *secure.Cipher, baseURL string, providers []string) *Account {
	return &Account{
		renderer:  renderer,
		sessions:  sessions,
		users:     users,
		codes:     codes,
		mailer:    mailer,
		texter:    texter,
		cipher:    cipher,
		baseURL:   baseURL,
		providers: providers,
	}
}

// sessionFor builds the session payload for a signed-in user.
func sessionFor(u *models.User, twoFADone, persistent bool) *session.Data {
	return &session.Data{
		UserID:      u.ID,
		UserName:    u.UserName,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
		TwoFADone:   twoFADone,
		Persistent:  persistent,
	}
}

// signIn replaces any existing session with one for u and redirects to the
// second factor when the account requires it. remember keeps the session
// cookie across browser restarts.
func (a *Account) signIn(w http.ResponseWriter, r *http.Request, u *models.User, returnURL string, remember bool) {
	ctx := r.Context()
	if middleware.SessionFromCtx(ctx) != nil {
		a.sessions.Destroy(ctx, w, r)
	}
	if _, err := a.sessions.Create(ctx, w, sessionFor(u, !u.TwoFactorEnabled, remember)); err != nil {
		slog.Error("session create failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	if u.TwoFactorEnabled {
		http.Redirect(w, r, middleware.TwoFactorPath+"?returnUrl="+url.QueryEscape(returnURL), http.StatusSeeOther)
		return
	}
	slog.Info("user logged in", "user_id", u.ID)
	http.Redirect(w, r, returnURL, http.StatusSeeOther)
}

func (a *Account) loginData(returnURL string) map[string]any {
	return map[string]any{"ReturnURL": returnURL, "Providers": a.providers}
}

// LoginPage renders the login form.
func (a *Account) LoginPage(w http.ResponseWriter, r *http.Request) {
	returnURL := localURL(r.URL.Query().Get("returnUrl"), "/")
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.TwoFADone {
		http.Redirect(w, r, returnURL, http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "account/login", &render.PageData{
		Title: "Log in",
		Data:  a.loginData(returnURL),
	})
}

// LoginSubmit checks the credentials. Three consecutive failures lock the
// account for five minutes.
func (a *Account) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	login := strings.TrimSpace(r.PostFormValue("login"))
	password := r.PostFormValue("password")
	returnURL := localURL(r.PostFormValue("returnUrl"), "/")

	fail := func(msg string) {
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "account/login", &render.PageData{
			Title:  "Log in",
			Errors: []string{msg},
			Form:   r.PostForm,
			Data:   a.loginData(returnURL),
		})
	}

	user, err := a.users.FindByLogin(ctx, login)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if user == nil {
		fail("Invalid login attempt.")
		return
	}
	if user.IsLockedOut(time.Now()) {
		http.Redirect(w, r, "/account/lockout", http.StatusSeeOther)
		return
	}

	if !a.users.CheckPassword(user, password) {
		locked, err := a.users.RecordFailedLogin(ctx, user.ID, auth.MaxFailedAttempts, auth.LockoutDuration)
		if err != nil {
			slog.Error("record failed login", "error", err)
		}
		if locked {
			slog.Warn("user account locked out", "user_id", user.ID)
			http.Redirect(w, r, "/account/lockout", http.StatusSeeOther)
			return
		}
		fail("Invalid login attempt.")
		return
	}

	if !user.EmailConfirmed {
		fail("You must confirm your email before you can log in.")
		return
	}
	if err := a.users.ResetFailedLogins(ctx, user.ID); err != nil {
		slog.Warn("reset failed logins", "error", err)
	}

	a.signIn(w, r, user, returnURL, r.PostFormValue("remember") == "on")
}

// Lockout renders the locked-out notice.
func (a *Account) Lockout(w http.ResponseWriter, r *http.Request) {
	a.renderer.PageStatus(w, r, http.StatusForbidden, "account/lockout", &render.PageData{Title: "Locked out"})
}

// Logout destroys the session.
func (a *Account) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	slog.Info("user logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage renders the registration form.
func (a *Account) RegisterPage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "account/register", &render.PageData{Title: "Register"})
}

// RegisterSubmit creates a Member account and mails a confirmation link.
func (a *Account) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	userName := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	fail := func(errs []string) {
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "account/register", &render.PageData{
			Title:  "Register",
			Errors: errs,
			Form:   r.PostForm,
		})
	}

	if errs := validateRegistration(userName, email, password, r.PostFormValue("confirm_password")); len(errs) > 0 {
		fail(errs)
		return
	}

	user, err := a.users.Create(ctx, store.NewUser{
		UserName: userName,
		Email:    email,
		Password: password,
		Roles:    []string{models.RoleMember},
	})
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		fail([]string{"Email '" + email + "' is already taken."})
		return
	case errors.Is(err, store.ErrUserNameTaken):
		fail([]string{"User name '" + userName + "' is already taken."})
		return
	case err != nil:
		slog.Error("register user failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user created a new account", "user_id", user.ID)

	a.sendConfirmation(ctx, user)

	a.renderer.Page(w, r, "account/register_confirmation", &render.PageData{
		Title: "Register confirmation",
		Data:  map[string]any{"Email": user.Email},
	})
}

// sendConfirmation mails the email confirmation link. Failures are logged;
// the mailer keeps a copy of undelivered messages.
func (a *Account) sendConfirmation(ctx context.Context, u *models.User) {
	token, err := auth.GenerateToken()
	if err != nil {
		slog.Error("generate confirmation token", "error", err)
		return
	}
	if err := a.codes.Put(ctx, auth.PurposeConfirmEmail, u.ID.String(), token, auth.ConfirmEmailTTL, ""); err != nil {
		slog.Error("store confirmation token", "error", err)
		return
	}
	link := a.baseURL + "/account/confirm-email?" + url.Values{"user": {u.ID.String()}, "code": {token}}.Encode()
	a.sendMail(ctx, u.Email, "Confirm your email", "confirm", mail.Body{Name: u.Name(), Link: link})
}

func (a *Account) sendMail(ctx context.Context, to, subject, tmpl string, body mail.Body) {
	html, err := mail.Render(tmpl, body)
	if err != nil {
		slog.Error("render mail", "template", tmpl, "error", err)
		return
	}
	if err := a.mailer.Send(ctx, to, subject, html); err != nil {
		slog.Error("send mail failed", "template", tmpl, "error", err)
	}
}

// ConfirmEmail redeems the link from the confirmation mail.
func (a *Account) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := uuid.Parse(q.Get("user"))
	if err != nil || q.Get("code") == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	_, ok, err := a.codes.Consume(ctx, auth.PurposeConfirmEmail, userID.String(), q.Get("code"))
	if err != nil {
		slog.Error("consume confirmation token", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if ok {
		if err := a.users.ConfirmEmail(ctx, userID); err != nil {
			slog.Error("confirm email failed", "error", err)
			a.renderer.Error(w, r, http.StatusInternalServerError)
			return
		}
	}

	a.renderer.Page(w, r, "account/confirm_email", &render.PageData{
		Title: "Confirm email",
		Data:  map[string]any{"Confirmed": ok},
	})
}

// pendingUser returns the user of a session that still awaits its second
// factor, or redirects and returns nil.
func (a *Account) pendingUser(w http.ResponseWriter, r *http.Request) (*session.Data, *models.User) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, nil
	}
	if sess.TwoFADone {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, nil
	}
	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("2fa user lookup failed", "error", err)
		a.sessions.Destroy(r.Context(), w, r)
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, nil
	}
	return sess, user
}

func (a *Account) twoFAPage(w http.ResponseWriter, r *http.Request, status int, user *models.User, returnURL string, errs []string) {
	a.renderer.PageStatus(w, r, status, "account/twofa", &render.PageData{
		Title:  "Two-factor authentication",
		Errors: errs,
		Data: map[string]any{
			"ReturnURL":        returnURL,
			"HasAuthenticator": user.TOTPSecret != nil,
			"CanPhone":         user.PhoneConfirmed && user.PhoneEncrypted != nil,
		},
	})
}

// TwoFAPage renders the second factor prompt.
func (a *Account) TwoFAPage(w http.ResponseWriter, r *http.Request) {
	_, user := a.pendingUser(w, r)
	if user == nil {
		return
	}
	a.twoFAPage(w, r, http.StatusOK, user, localURL(r.URL.Query().Get("returnUrl"), "/"), nil)
}

// lockedOut ends the pending sign-in of a locked account and sends it to
// the lockout notice.
func (a *Account) lockedOut(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	if !user.IsLockedOut(time.Now()) {
		return false
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/account/lockout", http.StatusSeeOther)
	return true
}

// secondFactorFailed counts a wrong code like a wrong password. It reports
// true when the account is now locked and the response has been written.
func (a *Account) secondFactorFailed(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	locked, err := a.users.RecordFailedLogin(r.Context(), user.ID, auth.MaxFailedAttempts, auth.LockoutDuration)
	if err != nil {
		slog.Error("record failed 2fa", "error", err)
		return false
	}
	if !locked {
		return false
	}
	slog.Warn("user account locked out", "user_id", user.ID)
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/account/lockout", http.StatusSeeOther)
	return true
}

// TwoFASubmit accepts an authenticator code or a code sent by mail or SMS.
func (a *Account) TwoFASubmit(w http.ResponseWriter, r *http.Request) {
	sess, user := a.pendingUser(w, r)
	if user == nil || a.lockedOut(w, r, user) {
		return
	}
	ctx := r.Context()
	code := strings.TrimSpace(r.PostFormValue("code"))
	returnURL := localURL(r.PostFormValue("returnUrl"), "/")

	ok := user.TOTPSecret != nil && auth.ValidateTOTP(code, *user.TOTPSecret)
	if !ok {
		var err error
		_, ok, err = a.codes.Consume(ctx, auth.PurposeTwoFactor, user.ID.String(), code)
		if err != nil {
			slog.Error("consume 2fa code", "error", err)
			a.renderer.Error(w, r, http.StatusInternalServerError)
			return
		}
	}
	if !ok {
		slog.Warn("invalid 2fa code", "user_id", user.ID)
		if a.secondFactorFailed(w, r, user) {
			return
		}
		a.twoFAPage(w, r, http.StatusUnprocessableEntity, user, returnURL, []string{"Invalid code."})
		return
	}

	a.completeTwoFA(w, r, sess, returnURL)
}

func (a *Account) completeTwoFA(w http.ResponseWriter, r *http.Request, sess *session.Data, returnURL string) {
	if err := a.users.ResetFailedLogins(r.Context(), sess.UserID); err != nil {
		slog.Warn("reset failed logins", "error", err)
	}
	sess.TwoFADone = true
	if _, err := a.sessions.Rotate(r.Context(), w, r, sess); err != nil {
		slog.Error("session rotate failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user logged in with 2fa", "user_id", sess.UserID)
	http.Redirect(w, r, returnURL, http.StatusSeeOther)
}

// TwoFASend mails or texts a one-time code.
func (a *Account) TwoFASend(w http.ResponseWriter, r *http.Request) {
	_, user := a.pendingUser(w, r)
	if user == nil {
		return
	}
	ctx := r.Context()
	returnURL := localURL(r.PostFormValue("returnUrl"), "/")
	back := middleware.TwoFactorPath + "?returnUrl=" + url.QueryEscape(returnURL)

	code, err := auth.GenerateNumericCode(6)
	if err != nil {
		slog.Error("generate 2fa code", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := a.codes.Put(ctx, auth.PurposeTwoFactor, user.ID.String(), code, auth.TwoFactorTTL, ""); err != nil {
		slog.Error("store 2fa code", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	switch r.PostFormValue("provider") {
	case "Phone":
		if !user.PhoneConfirmed || user.PhoneEncrypted == nil {
			render.SetFlash(w, r, "error", "No confirmed phone number on this account.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		phone, err := a.cipher.Decrypt(*user.PhoneEncrypted)
		if err != nil {
			slog.Error("decrypt phone", "error", err)
			a.renderer.Error(w, r, http.StatusInternalServerError)
			return
		}
		if err := a.texter.Send(ctx, phone, "Your security code is: "+code); err != nil {
			slog.Error("send 2fa sms", "error", err)
		}
		render.SetFlash(w, r, "info", "A code has been sent to "+secure.MaskPhone(phone)+".")
	default:
		a.sendMail(ctx, user.Email, "Security code", "code", mail.Body{Name: user.Name(), Code: code})
		render.SetFlash(w, r, "info", "A code has been sent to your email.")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// RecoveryPage renders the recovery code form.
func (a *Account) RecoveryPage(w http.ResponseWriter, r *http.Request) {
	if _, user := a.pendingUser(w, r); user == nil {
		return
	}
	a.renderer.Page(w, r, "account/recovery", &render.PageData{
		Title: "Recovery code",
		Data:  map[string]any{"ReturnURL": localURL(r.URL.Query().Get("returnUrl"), "/")},
	})
}

// RecoverySubmit redeems a recovery code in place of the second factor.
func (a *Account) RecoverySubmit(w http.ResponseWriter, r *http.Request) {
	sess, user := a.pendingUser(w, r)
	if user == nil || a.lockedOut(w, r, user) {
		return
	}
	returnURL := localURL(r.PostFormValue("returnUrl"), "/")

	ok, err := a.users.RedeemRecoveryCode(r.Context(), user.ID, auth.NormalizeRecoveryCode(r.PostFormValue("code")))
	if err != nil {
		slog.Error("redeem recovery code", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if !ok {
		slog.Warn("invalid recovery code", "user_id", user.ID)
		if a.secondFactorFailed(w, r, user) {
			return
		}
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "account/recovery", &render.PageData{
			Title:  "Recovery code",
			Errors: []string{"Invalid recovery code entered."},
			Data:   map[string]any{"ReturnURL": returnURL},
		})
		return
	}
	slog.Info("user logged in with a recovery code", "user_id", user.ID)
	a.completeTwoFA(w, r, sess, returnURL)
}

// ForgotPage renders the forgot password form.
func (a *Account) ForgotPage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "account/forgot_password", &render.PageData{Title: "Forgot password"})
}

// ForgotSubmit mails a reset link when the address belongs to a confirmed
// account. The response is the same either way.
func (a *Account) ForgotSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := strings.TrimSpace(r.PostFormValue("email"))

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("forgot password lookup failed", "error", err)
	}
	if user != nil && user.EmailConfirmed {
		a.sendReset(ctx, user)
	}

	a.renderer.Page(w, r, "account/forgot_password_confirmation", &render.PageData{Title: "Forgot password"})
}

func (a *Account) sendReset(ctx context.Context, u *models.User) {
	token, err := auth.GenerateToken()
	if err != nil {
		slog.Error("generate reset token", "error", err)
		return
	}
	if err := a.codes.Put(ctx, auth.PurposeResetPassword, u.ID.String(), token, auth.ResetPasswordTTL, ""); err != nil {
		slog.Error("store reset token", "error", err)
		return
	}
	link := a.baseURL + "/account/reset-password?" + url.Values{"user": {u.ID.String()}, "code": {token}}.Encode()
	a.sendMail(ctx, u.Email, "Reset password", "reset", mail.Body{Name: u.Name(), Link: link})
}

// ResetPage renders the reset form for a mailed link.
func (a *Account) ResetPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := uuid.Parse(q.Get("user")); err != nil || q.Get("code") == "" {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	a.renderer.Page(w, r, "account/reset_password", &render.PageData{
		Title: "Reset password",
		Data:  map[string]any{"User": q.Get("user"), "Code": q.Get("code")},
	})
}

// ResetSubmit sets a new password after checking the mailed token.
func (a *Account) ResetSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawUser, code := r.PostFormValue("user"), r.PostFormValue("code")
	password := r.PostFormValue("password")

	fail := func(status int, msg string) {
		a.renderer.PageStatus(w, r, status, "account/reset_password", &render.PageData{
			Title:  "Reset password",
			Errors: []string{msg},
			Data:   map[string]any{"User": rawUser, "Code": code},
		})
	}

	userID, err := uuid.Parse(rawUser)
	if err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	if msg := validatePasswordPair(password, r.PostFormValue("confirm_password")); msg != "" {
		fail(http.StatusUnprocessableEntity, msg)
		return
	}

	_, ok, err := a.codes.Consume(ctx, auth.PurposeResetPassword, userID.String(), code)
	if err != nil {
		slog.Error("consume reset token", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if !ok {
		fail(http.StatusUnprocessableEntity, "The reset link is invalid or has expired.")
		return
	}

	if err := a.users.SetPassword(ctx, userID, password); err != nil {
		slog.Error("reset password failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := a.users.ResetFailedLogins(ctx, userID); err != nil {
		slog.Warn("reset failed logins", "error", err)
	}
	slog.Info("password reset", "user_id", userID)

	a.renderer.Page(w, r, "account/reset_password_confirmation", &render.PageData{Title: "Reset password"})
}
