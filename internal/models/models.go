package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account. The PIN itself is never stored,
// only its salted digest.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	PINHash   string    `json:"pin_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// View strips credential material from the user.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username}
}

// UserView is the session-safe projection of a user returned to callers.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Expense represents a single expense record owned by a user. Ownership
// is by value of UserID; the store has no structural relationship.
type Expense struct {
	ID       int64           `json:"id"`
	UserID   int64           `json:"user_id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	// Date is a calendar date in YYYY-MM-DD form, no timezone.
	Date      string    `json:"date"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	CreatedAt time.Time `json:"created_at"`
}
