package library

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// CheckPassword compares password with the stored value, which may be a
// bcrypt hash or a plain value carried over from seed data or an import.
func (u User) CheckPassword(password string) bool {
	if isBcryptHash(u.Password) {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// Login checks the credentials of the user whose id or email matches
// identifier. On success the visit counter and last-login time are saved.
func (lm *LibraryManager) Login(ctx context.Context, identifier, password string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	lm.mu.Lock()
	defer lm.mu.Unlock()

	idx := -1
	for i, u := range lm.cur.Users {
		if u.ID == identifier || (u.Email != "" && strings.EqualFold(u.Email, identifier)) {
			idx = i
			break
		}
	}
	if idx < 0 || !lm.cur.Users[idx].CheckPassword(password) {
		lm.log.Warn("login failed", zap.String("identifier", identifier))
		return User{}, ErrInvalidCredentials
	}
	user := lm.cur.Users[idx]
	if user.Status == UserSuspended {
		return User{}, fmt.Errorf("user %q is suspended: %w", user.ID, ErrForbidden)
	}

	now := lm.now().UTC()
	user.LastLogin = &now
	user.Visits++

	next := lm.cur
	next.Users, _ = replaceRecord(lm.cur.Users, user)
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return User{}, err
	}
	lm.log.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	if user.Role == RoleAdmin {
		lm.notify("Administrator signed in: %s", user.Name)
	} else {
		lm.notify("Welcome, %s", user.Name)
	}
	return user.clone(), nil
}

// ResetPassword stores a bcrypt hash of newPassword for userID.
func (lm *LibraryManager) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if err := (&Validator{}).Required("password", newPassword).Err(); err != nil {
		return err
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	user, ok := findRecord(lm.cur.Users, userID)
	if !ok {
		return notFound("user", userID)
	}
	user.Password = hashed
	next := lm.cur
	next.Users, _ = replaceRecord(lm.cur.Users, user)
	if err := lm.commit(ctx, next, SlotUsers); err != nil {
		return err
	}
	lm.notify("Password reset for %s", user.Name)
	return nil
}
