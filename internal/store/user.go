// Package store provides database access methods for all webmvc entities.
// Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"webmvc/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `u.id, u.user_name, u.email, u.email_confirmed, u.password_hash,
	u.display_name, u.home_address, u.birth_date, u.phone_encrypted, u.phone_confirmed,
	u.totp_secret, u.two_factor_enabled, u.failed_attempts, u.lockout_until,
	u.created_at, u.updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID, &u.UserName, &u.Email, &u.EmailConfirmed, &u.PasswordHash,
		&u.DisplayName, &u.HomeAddress, &u.BirthDate, &u.PhoneEncrypted, &u.PhoneConfirmed,
		&u.TOTPSecret, &u.TwoFactorEnabled, &u.FailedAttempts, &u.LockoutUntil,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// rolesFor loads role names for each user id.
func rolesFor(ctx context.Context, q queryer, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT ur.user_id, r.name FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY r.name
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func (s *UserStore) findOne(ctx context.Context, cond string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE `+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	roles, err := rolesFor(ctx, s.db, []uuid.UUID{u.ID})
	if err != nil {
		return nil, err
	}
	u.Roles = roles[u.ID]
	return u, nil
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `LOWER(u.email) = LOWER($1)`, email)
}

// FindByUserName retrieves a user by user name. Returns nil if not found.
func (s *UserStore) FindByUserName(ctx context.Context, name string) (*models.User, error) {
	return s.findOne(ctx, `LOWER(u.user_name) = LOWER($1)`, name)
}

// FindByLogin retrieves a user by user name or email.
func (s *UserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.findOne(ctx, `(LOWER(u.user_name) = LOWER($1) OR LOWER(u.email) = LOWER($1))`, login)
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, `u.id = $1`, id)
}

// FindByExternalLogin retrieves the user linked to a provider account.
func (s *UserStore) FindByExternalLogin(ctx context.Context, provider, key string) (*models.User, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM user_logins WHERE provider = $1 AND provider_key = $2`, provider, key,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find external login: %w", err)
	}
	return s.FindByID(ctx, id)
}

func userFilter(search string) *where {
	w := &where{}
	if search != "" {
		w.add("(u.user_name ILIKE $%[1]d OR u.email ILIKE $%[1]d OR u.display_name ILIKE $%[1]d)", likePattern(search))
	}
	return w
}

// Count returns the number of users matching search.
func (s *UserStore) Count(ctx context.Context, search string) (int, error) {
	w := userFilter(search)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// List returns one page of users matching search, oldest first.
func (s *UserStore) List(ctx context.Context, search string, limit, offset int) ([]models.User, error) {
	w := userFilter(search)
	args := append(w.args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users u`+w.String()+
		fmt.Sprintf(` ORDER BY u.created_at ASC, u.id LIMIT $%d OFFSET $%d`, len(w.args)+1, len(w.args)+2),
		args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	var ids []uuid.UUID
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roles, err := rolesFor(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, nil
}

// NewUser describes an account to create. Password may be empty for
// external-only accounts.
type NewUser struct {
	UserName       string
	Email          string
	Password       string
	DisplayName    string
	EmailConfirmed bool
	Roles          []string
}

// Create inserts a new user with a bcrypt-hashed password and the given roles.
func (s *UserStore) Create(ctx context.Context, nu NewUser) (*models.User, error) {
	var hash *string
	if nu.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hs := string(h)
		hash = &hs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users AS u (user_name, email, email_confirmed, password_hash, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		nu.UserName, nu.Email, nu.EmailConfirmed, hash, nu.DisplayName,
	))
	switch {
	case isUniqueViolation(err, "users_email_key"):
		return nil, ErrEmailTaken
	case isUniqueViolation(err, "users_user_name_key"):
		return nil, ErrUserNameTaken
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := setRoles(ctx, tx, u.ID, nu.Roles); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}
	u.Roles = append([]string(nil), nu.Roles...)
	return u, nil
}

// AddExternalLogin links a provider account to a user.
func (s *UserStore) AddExternalLogin(ctx context.Context, userID uuid.UUID, provider, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_logins (provider, provider_key, user_id) VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_key) DO NOTHING
	`, provider, key, userID)
	if err != nil {
		return fmt.Errorf("add external login: %w", err)
	}
	return nil
}

func (s *UserStore) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConfirmEmail marks the user's email address as verified.
func (s *UserStore) ConfirmEmail(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "confirm email",
		`UPDATE users SET email_confirmed = TRUE, updated_at = NOW() WHERE id = $1`, userID)
}

// SetPassword replaces the user's password and clears any lockout.
func (s *UserStore) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.exec(ctx, "set password", `
		UPDATE users SET password_hash = $1, failed_attempts = 0, lockout_until = NULL, updated_at = NOW()
		WHERE id = $2`, string(hash), userID)
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) == nil
}

// RecordFailedLogin increments the failure counter. When it reaches
// maxAttempts the account is locked until now+lockout and the counter
// restarts. It reports whether the account is now locked.
func (s *UserStore) RecordFailedLogin(ctx context.Context, userID uuid.UUID, maxAttempts int, lockout time.Duration) (bool, error) {
	var locked bool
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_attempts = CASE WHEN failed_attempts + 1 >= $2 THEN 0 ELSE failed_attempts + 1 END,
			lockout_until   = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE lockout_until END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING lockout_until IS NOT NULL AND lockout_until > NOW()
	`, userID, maxAttempts, time.Now().Add(lockout)).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("record failed login: %w", err)
	}
	return locked, nil
}

// ResetFailedLogins clears the failure counter and lockout after a
// successful sign-in.
func (s *UserStore) ResetFailedLogins(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "reset failed logins",
		`UPDATE users SET failed_attempts = 0, lockout_until = NULL WHERE id = $1`, userID)
}

// SetTOTPSecret saves a new authenticator secret. Two-factor stays in its
// current state until EnableTwoFactor is called.
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	return s.exec(ctx, "set totp secret",
		`UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2`, secret, userID)
}

// EnableTwoFactor turns on two-factor sign-in.
func (s *UserStore) EnableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "enable two-factor",
		`UPDATE users SET two_factor_enabled = TRUE, updated_at = NOW() WHERE id = $1`, userID)
}

// DisableTwoFactor turns off two-factor sign-in but keeps the secret.
func (s *UserStore) DisableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "disable two-factor",
		`UPDATE users SET two_factor_enabled = FALSE, updated_at = NOW() WHERE id = $1`, userID)
}

// ResetTwoFactor clears the authenticator secret, disables two-factor and
// discards recovery codes.
func (s *UserStore) ResetTwoFactor(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, two_factor_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("reset two-factor: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear recovery codes: %w", err)
	}
	return tx.Commit()
}

// SetPhone stores an encrypted phone number. confirmed marks it verified.
func (s *UserStore) SetPhone(ctx context.Context, userID uuid.UUID, encrypted string, confirmed bool) error {
	return s.exec(ctx, "set phone", `
		UPDATE users SET phone_encrypted = $1, phone_confirmed = $2, updated_at = NOW() WHERE id = $3
	`, encrypted, confirmed, userID)
}

// RemovePhone clears the phone number.
func (s *UserStore) RemovePhone(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "remove phone", `
		UPDATE users SET phone_encrypted = NULL, phone_confirmed = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
}

// UpdateProfile saves the editable profile fields.
func (s *UserStore) UpdateProfile(ctx context.Context, u *models.User) error {
	return s.exec(ctx, "update profile", `
		UPDATE users SET display_name = $1, home_address = $2, birth_date = $3, updated_at = NOW()
		WHERE id = $4
	`, u.DisplayName, u.HomeAddress, u.BirthDate, u.ID)
}

// SetRoles replaces the user's roles with names, removing and adding only
// the difference.
func (s *UserStore) SetRoles(ctx context.Context, userID uuid.UUID, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := setRoles(ctx, tx, userID, names); err != nil {
		return err
	}
	return tx.Commit()
}

func setRoles(ctx context.Context, tx *sql.Tx, userID uuid.UUID, names []string) error {
	current, err := rolesFor(ctx, tx, []uuid.UUID{userID})
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for _, n := range current[userID] {
		have[n] = true
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	for n := range have {
		if want[n] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM user_roles WHERE user_id = $1
			AND role_id = (SELECT id FROM roles WHERE name = $2)
		`, userID, n); err != nil {
			return fmt.Errorf("remove role %s: %w", n, err)
		}
	}
	for n := range want {
		if have[n] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1::uuid, id FROM roles WHERE name = $2
		`, userID, n); err != nil {
			return fmt.Errorf("add role %s: %w", n, err)
		}
	}
	return nil
}

// Delete removes a user by ID.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, userID)
}

// ReplaceRecoveryCodes discards existing recovery codes and stores the
// bcrypt hashes of codes.
func (s *UserStore) ReplaceRecoveryCodes(ctx context.Context, userID uuid.UUID, codes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear recovery codes: %w", err)
	}
	for _, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash recovery code: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recovery_codes (user_id, code_hash) VALUES ($1, $2)`, userID, string(hash)); err != nil {
			return fmt.Errorf("store recovery code: %w", err)
		}
	}
	return tx.Commit()
}

// RedeemRecoveryCode marks the matching unused code as used. It reports
// false when no unused code matches.
func (s *UserStore) RedeemRecoveryCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code_hash FROM recovery_codes WHERE user_id = $1 AND used_at IS NULL`, userID)
	if err != nil {
		return false, fmt.Errorf("load recovery codes: %w", err)
	}
	var match int64
	for rows.Next() {
		var id int64
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan recovery code: %w", err)
		}
		if match == 0 && bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			match = id
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if match == 0 {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE recovery_codes SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, match)
	if err != nil {
		return false, fmt.Errorf("redeem recovery code: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// RecoveryCodesLeft returns the number of unused recovery codes.
func (s *UserStore) RecoveryCodesLeft(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE user_id = $1 AND used_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recovery codes: %w", err)
	}
	return n, nil
}

// CountAll returns the total number of users.
func (s *UserStore) CountAll(ctx context.Context) (int, error) {
	return s.Count(ctx, "")
}
