// Package auth implements account creation and PIN verification on top
// of the record store.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"depenses/internal/models"
	"depenses/internal/store"

	"golang.org/x/crypto/pbkdf2"
)

// pinSalt is a fixed application-wide salt. Identical PINs therefore
// produce identical digests across users; changing the salt would
// invalidate every stored hash.
const pinSalt = "depenses.pin.v1"

const (
	pinIterations = 4096
	pinDigestLen  = 32

	usernameMinLen = 2
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// HashPIN returns the hex digest of the salted PIN. The function is
// deterministic: verification is digest equality.
func HashPIN(pin string) string {
	sum := pbkdf2.Key([]byte(pin), []byte(pinSalt), pinIterations, pinDigestLen, sha256.New)
	return hex.EncodeToString(sum)
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Manager handles registration and authentication over the users
// collection.
type Manager struct {
	store *store.Store
}

// NewManager creates a credential manager backed by st.
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}

// Register creates a new account. confirm, when non-empty, must equal
// pin; callers that already verified the confirmation pass "".
// Returns ErrDuplicateUser when the normalized username is taken.
func (m *Manager) Register(ctx context.Context, username, pin, confirm string) (models.UserView, error) {
	username = NormalizeUsername(username)
	if utf8.RuneCountInString(username) < usernameMinLen {
		return models.UserView{}, &models.ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("must be at least %d characters", usernameMinLen),
		}
	}
	if !pinPattern.MatchString(pin) {
		return models.UserView{}, &models.ValidationError{
			Field:   "pin",
			Message: "must be 4 to 6 digits",
		}
	}
	if confirm != "" && confirm != pin {
		return models.UserView{}, &models.ValidationError{
			Field:   "pin",
			Message: "PINs do not match",
		}
	}

	_, err := m.store.FindUnique(ctx, "users", "username", username)
	if err == nil {
		return models.UserView{}, models.ErrDuplicateUser
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.UserView{}, fmt.Errorf("check username: %w", err)
	}

	user := models.User{
		Username:  username,
		PINHash:   HashPIN(pin),
		CreatedAt: time.Now().UTC(),
	}
	key, err := m.store.Insert(ctx, "users", user)
	if err != nil {
		// The unique index backs the duplicate check against races
		// between FindUnique and Insert.
		if store.IsUniqueConstraint(err) {
			return models.UserView{}, models.ErrDuplicateUser
		}
		return models.UserView{}, err
	}

	slog.Info("user registered", "id", key, "username", username)
	return models.UserView{ID: key, Username: username}, nil
}

// Authenticate verifies a username/PIN pair. It returns ErrNotFound for
// an unknown username and ErrInvalidCredential for a digest mismatch.
func (m *Manager) Authenticate(ctx context.Context, username, pin string) (models.UserView, error) {
	rec, err := m.store.FindUnique(ctx, "users", "username", NormalizeUsername(username))
	if errors.Is(err, models.ErrNotFound) {
		return models.UserView{}, models.ErrNotFound
	}
	if err != nil {
		return models.UserView{}, fmt.Errorf("find user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(rec.Data, &user); err != nil {
		return models.UserView{}, fmt.Errorf("decode user: %w", err)
	}
	user.ID = rec.Key

	digest := HashPIN(pin)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.PINHash)) != 1 {
		return models.UserView{}, models.ErrInvalidCredential
	}
	return user.View(), nil
}
