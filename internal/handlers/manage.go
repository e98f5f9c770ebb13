package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"webmvc/internal/auth"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/secure"
	"webmvc/internal/session"
	"webmvc/internal/sms"
	"webmvc/internal/store"
)

// recoveryCodeCount is the number of recovery codes issued at a time.
const recoveryCodeCount = 5

// Manage groups the signed-in user's account pages.
type Manage struct {
	renderer *render.Renderer
	sessions *session.Store
	users    *store.UserStore
	codes    *auth.OneTimeCodes
	texter   sms.Sender
	cipher   *secure.Cipher
	issuer   string
}

// NewManage creates a new Manage handler group. issuer names the site in
// authenticator apps.
func NewManage(renderer *render.Renderer, sessions *session.Store, users *store.UserStore, codes *auth.OneTimeCodes, texter sms.Sender, cipher *secure.Cipher, issuer string) *Manage {
	return &Manage{
		renderer: renderer,
		sessions: sessions,
		users:    users,
		codes:    codes,
		texter:   texter,
		cipher:   cipher,
		issuer:   issuer,
	}
}

// currentUser loads the signed-in user. On failure it writes the response
// and returns nil.
func (m *Manage) currentUser(w http.ResponseWriter, r *http.Request) (*session.Data, *models.User) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, nil
	}
	user, err := m.users.FindByID(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("manage user lookup failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return nil, nil
	}
	if user == nil {
		m.sessions.Destroy(r.Context(), w, r)
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, nil
	}
	return sess, user
}

// maskedPhone returns the user's phone number with all but the last digits
// hidden, or "" when none is set.
func (m *Manage) maskedPhone(u *models.User) string {
	if u.PhoneEncrypted == nil {
		return ""
	}
	phone, err := m.cipher.Decrypt(*u.PhoneEncrypted)
	if err != nil {
		slog.Warn("decrypt phone", "user_id", u.ID, "error", err)
		return ""
	}
	return secure.MaskPhone(phone)
}

func (m *Manage) indexPage(w http.ResponseWriter, r *http.Request, status int, user *models.User, errs []string) {
	m.renderer.PageStatus(w, r, status, "manage/index", &render.PageData{
		Title:   "Profile",
		Section: "index",
		Errors:  errs,
		Data:    map[string]any{"User": user, "Phone": m.maskedPhone(user)},
	})
}

// Index renders the profile form.
func (m *Manage) Index(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	m.indexPage(w, r, http.StatusOK, user, nil)
}

// UpdateProfile saves the display name, home address and birth date.
func (m *Manage) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, user := m.currentUser(w, r)
	if user == nil {
		return
	}

	user.DisplayName = strings.TrimSpace(r.PostFormValue("display_name"))
	user.HomeAddress = strings.TrimSpace(r.PostFormValue("home_address"))
	user.BirthDate = nil
	if raw := r.PostFormValue("birth_date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil || d.After(time.Now()) {
			m.indexPage(w, r, http.StatusUnprocessableEntity, user, []string{"Birth date is not valid."})
			return
		}
		user.BirthDate = &d
	}
	if len(user.DisplayName) > maxNameLen || len(user.HomeAddress) > maxDescriptionLen {
		m.indexPage(w, r, http.StatusUnprocessableEntity, user, []string{"Profile fields are too long."})
		return
	}

	ctx := r.Context()
	if err := m.users.UpdateProfile(ctx, user); err != nil {
		slog.Error("update profile failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	sess.DisplayName = user.DisplayName
	if err := m.sessions.Update(ctx, r, sess); err != nil {
		slog.Warn("session update failed", "error", err)
	}

	render.SetFlash(w, r, "success", "Your profile has been updated.")
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (m *Manage) passwordPage(w http.ResponseWriter, r *http.Request, status int, user *models.User, errs []string) {
	m.renderer.PageStatus(w, r, status, "manage/change_password", &render.PageData{
		Title:   "Password",
		Section: "password",
		Errors:  errs,
		Data:    map[string]any{"HasPassword": user.HasPassword()},
	})
}

// ChangePasswordPage renders the change password form, or the set password
// form for accounts created through an external login.
func (m *Manage) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	m.passwordPage(w, r, http.StatusOK, user, nil)
}

// ChangePasswordSubmit verifies the current password and stores a new one.
func (m *Manage) ChangePasswordSubmit(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	password := r.PostFormValue("password")

	if user.HasPassword() && !m.users.CheckPassword(user, r.PostFormValue("current_password")) {
		m.passwordPage(w, r, http.StatusUnprocessableEntity, user, []string{"Incorrect password."})
		return
	}
	if msg := validatePasswordPair(password, r.PostFormValue("confirm_password")); msg != "" {
		m.passwordPage(w, r, http.StatusUnprocessableEntity, user, []string{msg})
		return
	}

	if err := m.users.SetPassword(r.Context(), user.ID, password); err != nil {
		slog.Error("change password failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user changed their password", "user_id", user.ID)

	render.SetFlash(w, r, "success", "Your password has been changed.")
	http.Redirect(w, r, "/manage/change-password", http.StatusSeeOther)
}

func (m *Manage) phonePage(w http.ResponseWriter, r *http.Request, status int, user *models.User, errs []string) {
	m.renderer.PageStatus(w, r, status, "manage/phone", &render.PageData{
		Title:   "Phone number",
		Section: "phone",
		Errors:  errs,
		Form:    r.PostForm,
		Data:    map[string]any{"Phone": m.maskedPhone(user)},
	})
}

// PhonePage renders the phone number form.
func (m *Manage) PhonePage(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	m.phonePage(w, r, http.StatusOK, user, nil)
}

// PhoneSubmit texts a verification code to a new phone number. The number
// is only saved once the code comes back.
func (m *Manage) PhoneSubmit(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	ctx := r.Context()
	phone := strings.TrimSpace(r.PostFormValue("phone"))
	if msg := validatePhone(phone); msg != "" {
		m.phonePage(w, r, http.StatusUnprocessableEntity, user, []string{msg})
		return
	}

	code, err := auth.GenerateNumericCode(6)
	if err != nil {
		slog.Error("generate phone code", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := m.codes.Put(ctx, auth.PurposeVerifyPhone, user.ID.String(), code, auth.VerifyPhoneTTL, phone); err != nil {
		slog.Error("store phone code", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := m.texter.Send(ctx, phone, "Your security code is: "+code); err != nil {
		slog.Error("send phone code", "error", err)
	}

	m.renderer.Page(w, r, "manage/verify_phone", &render.PageData{
		Title:   "Verify phone number",
		Section: "phone",
		Data:    map[string]any{"Phone": phone},
	})
}

// PhoneVerify saves the phone number the code was sent to.
func (m *Manage) PhoneVerify(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	ctx := r.Context()

	phone, ok, err := m.codes.Consume(ctx, auth.PurposeVerifyPhone, user.ID.String(), strings.TrimSpace(r.PostFormValue("code")))
	if err != nil {
		slog.Error("consume phone code", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if !ok {
		m.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "manage/verify_phone", &render.PageData{
			Title:   "Verify phone number",
			Section: "phone",
			Errors:  []string{"Failed to verify phone number."},
			Data:    map[string]any{"Phone": r.PostFormValue("phone")},
		})
		return
	}

	if err := m.users.SetPhone(ctx, user.ID, m.cipher.Encrypt(phone), true); err != nil {
		slog.Error("set phone failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user confirmed a phone number", "user_id", user.ID)

	render.SetFlash(w, r, "success", "Your phone number was added.")
	http.Redirect(w, r, "/manage/phone", http.StatusSeeOther)
}

// PhoneRemove deletes the phone number.
func (m *Manage) PhoneRemove(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	if err := m.users.RemovePhone(r.Context(), user.ID); err != nil {
		slog.Error("remove phone failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	render.SetFlash(w, r, "success", "Your phone number was removed.")
	http.Redirect(w, r, "/manage/phone", http.StatusSeeOther)
}

// TwoFactorPage renders the two-factor overview.
func (m *Manage) TwoFactorPage(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	left, err := m.users.RecoveryCodesLeft(r.Context(), user.ID)
	if err != nil {
		slog.Error("count recovery codes", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	m.renderer.Page(w, r, "manage/two_factor", &render.PageData{
		Title:   "Two-factor authentication",
		Section: "2fa",
		Data: map[string]any{
			"Enabled":          user.TwoFactorEnabled,
			"RecoveryLeft":     left,
			"HasAuthenticator": user.TOTPSecret != nil,
		},
	})
}

// TwoFactorDisable turns two-factor sign-in off. The authenticator key is
// kept.
func (m *Manage) TwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	if err := m.users.DisableTwoFactor(r.Context(), user.ID); err != nil {
		slog.Error("disable 2fa failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user disabled 2fa", "user_id", user.ID)
	render.SetFlash(w, r, "success", "Two-factor authentication has been disabled.")
	http.Redirect(w, r, "/manage/two-factor", http.StatusSeeOther)
}

func (m *Manage) authenticatorPage(w http.ResponseWriter, r *http.Request, status int, key *auth.AuthenticatorKey, errs []string) {
	m.renderer.PageStatus(w, r, status, "manage/authenticator", &render.PageData{
		Title:   "Authenticator app",
		Section: "2fa",
		Errors:  errs,
		Data:    map[string]any{"Secret": auth.FormatSecret(key.Secret), "QR": key.QRDataURI},
	})
}

// authenticatorKey returns the user's TOTP key, generating and storing one
// when none exists yet.
func (m *Manage) authenticatorKey(r *http.Request, user *models.User) (*auth.AuthenticatorKey, error) {
	if user.TOTPSecret != nil {
		return auth.AuthenticatorKeyFor(m.issuer, user.Email, *user.TOTPSecret)
	}
	key, err := auth.NewAuthenticatorKey(m.issuer, user.Email)
	if err != nil {
		return nil, err
	}
	if err := m.users.SetTOTPSecret(r.Context(), user.ID, key.Secret); err != nil {
		return nil, err
	}
	user.TOTPSecret = &key.Secret
	return key, nil
}

// AuthenticatorPage shows the key and QR code to scan.
func (m *Manage) AuthenticatorPage(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	key, err := m.authenticatorKey(r, user)
	if err != nil {
		slog.Error("authenticator key failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	m.authenticatorPage(w, r, http.StatusOK, key, nil)
}

// AuthenticatorSubmit enables two-factor sign-in once the app produces a
// valid code. A first set of recovery codes is issued when none remain.
func (m *Manage) AuthenticatorSubmit(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	ctx := r.Context()
	key, err := m.authenticatorKey(r, user)
	if err != nil {
		slog.Error("authenticator key failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	if !auth.ValidateTOTP(r.PostFormValue("code"), key.Secret) {
		m.authenticatorPage(w, r, http.StatusUnprocessableEntity, key, []string{"Verification code is invalid."})
		return
	}
	if err := m.users.EnableTwoFactor(ctx, user.ID); err != nil {
		slog.Error("enable 2fa failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user enabled 2fa with an authenticator app", "user_id", user.ID)

	left, err := m.users.RecoveryCodesLeft(ctx, user.ID)
	if err != nil {
		slog.Error("count recovery codes", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if left > 0 {
		render.SetFlash(w, r, "success", "Your authenticator app has been verified.")
		http.Redirect(w, r, "/manage/two-factor", http.StatusSeeOther)
		return
	}
	m.issueRecoveryCodes(w, r, user)
}

// AuthenticatorReset discards the TOTP key and disables two-factor sign-in.
// The user has to scan a new key.
func (m *Manage) AuthenticatorReset(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	if err := m.users.ResetTwoFactor(r.Context(), user.ID); err != nil {
		slog.Error("reset authenticator failed", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user reset their authenticator key", "user_id", user.ID)
	render.SetFlash(w, r, "info", "Your authenticator app key has been reset. Configure your app with the new key.")
	http.Redirect(w, r, "/manage/authenticator", http.StatusSeeOther)
}

// RecoveryCodes replaces the recovery codes with a fresh set.
func (m *Manage) RecoveryCodes(w http.ResponseWriter, r *http.Request) {
	_, user := m.currentUser(w, r)
	if user == nil {
		return
	}
	if !user.TwoFactorEnabled {
		render.SetFlash(w, r, "error", "Enable two-factor authentication before generating recovery codes.")
		http.Redirect(w, r, "/manage/two-factor", http.StatusSeeOther)
		return
	}
	m.issueRecoveryCodes(w, r, user)
}

func (m *Manage) issueRecoveryCodes(w http.ResponseWriter, r *http.Request, user *models.User) {
	codes, err := auth.GenerateRecoveryCodes(recoveryCodeCount)
	if err != nil {
		slog.Error("generate recovery codes", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := m.users.ReplaceRecoveryCodes(r.Context(), user.ID, codes); err != nil {
		slog.Error("store recovery codes", "error", err)
		m.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user generated new recovery codes", "user_id", user.ID)

	m.renderer.Page(w, r, "manage/recovery_codes", &render.PageData{
		Title:   "Recovery codes",
		Section: "2fa",
		Data:    map[string]any{"Codes": codes},
	})
}
