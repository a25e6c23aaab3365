// Package repository implements the domain operations over the expenses
// collection: validated add, owner-checked delete, and period-filtered
// query. Lookup is a full scan of the collection filtered in process;
// the store exposes no range queries.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"depenses/internal/models"
	"depenses/internal/store"

	"github.com/shopspring/decimal"
)

// Period selects the date window of a query, anchored at today.
type Period string

const (
	PeriodToday Period = "today"
	Period3Days Period = "3days"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// AllCategories is the sentinel disabling the category filter.
const AllCategories = "all"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// AddInput carries the raw field values collected by the form layer.
// The repository owns all validation.
type AddInput struct {
	Name     string
	Amount   string
	Category string
	Date     string
	Hour     string
	Minute   string
}

// Repository provides expense operations for authenticated users.
type Repository struct {
	store *store.Store
	now   func() time.Time
}

// New creates an expense repository backed by st.
func New(st *store.Store) *Repository {
	return &Repository{store: st, now: time.Now}
}

// Add validates the input and inserts a new expense owned by userID.
// It returns the store-assigned key.
func (r *Repository) Add(ctx context.Context, userID int64, in AddInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, &models.ValidationError{Field: "name", Message: "name is required"}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return 0, &models.ValidationError{Field: "amount", Message: "amount must be a number"}
	}
	if !amount.IsPositive() {
		return 0, &models.ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	amount = amount.Round(2)

	date := strings.TrimSpace(in.Date)
	if date == "" {
		return 0, &models.ValidationError{Field: "date", Message: "date is required"}
	}
	if !datePattern.MatchString(date) {
		return 0, &models.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	// The owner must exist at write time. Deleting a user later does not
	// cascade; this is the only point the reference is checked.
	if _, err := r.store.GetByKey(ctx, "users", userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}
		return 0, err
	}

	expense := models.Expense{
		UserID:    userID,
		Name:      name,
		Amount:    amount,
		Category:  category,
		Date:      date,
		Hour:      clampField(in.Hour, 23),
		Minute:    clampField(in.Minute, 59),
		CreatedAt: r.now().UTC(),
	}

	key, err := r.store.Insert(ctx, "expenses", expense)
	if err != nil {
		return 0, err
	}
	slog.Info("expense added", "id", key, "user_id", userID, "category", category, "amount", amount.String())
	return key, nil
}

// Remove deletes an expense owned by userID. An absent expense and one
// owned by another user both yield ErrNotFound: ownership is enforced
// here, the store has no concept of authorization.
func (r *Repository) Remove(ctx context.Context, userID, expenseID int64) error {
	rec, err := r.store.GetByKey(ctx, "expenses", expenseID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	var expense models.Expense
	if err := json.Unmarshal(rec.Data, &expense); err != nil {
		return fmt.Errorf("decode expense: %w", err)
	}
	if expense.UserID != userID {
		return models.ErrNotFound
	}

	if err := r.store.DeleteByKey(ctx, "expenses", expenseID); err != nil {
		return err
	}
	slog.Info("expense removed", "id", expenseID, "user_id", userID)
	return nil
}

// Query returns the user's expenses within the period, optionally
// restricted to one category, ordered descending by date, hour, minute
// and insertion timestamp. An empty result is not an error.
func (r *Repository) Query(ctx context.Context, userID int64, period Period, category string) ([]models.Expense, error) {
	records, err := r.store.ScanAll(ctx, "expenses")
	if err != nil {
		return nil, err
	}

	today := r.now()
	expenses := make([]models.Expense, 0, len(records))
	for _, rec := range records {
		var e models.Expense
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return nil, fmt.Errorf("decode expense %d: %w", rec.Key, err)
		}
		e.ID = rec.Key

		if e.UserID != userID {
			continue
		}
		if !matchesPeriod(e.Date, period, today) {
			continue
		}
		if category != AllCategories && category != "" && e.Category != category {
			continue
		}
		expenses = append(expenses, e)
	}

	sort.Slice(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Hour != b.Hour {
			return a.Hour > b.Hour
		}
		if a.Minute != b.Minute {
			return a.Minute > b.Minute
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return expenses, nil
}

// matchesPeriod filters an ISO date against the window anchored at
// today. ISO dates compare correctly as strings. An unrecognized period
// behaves like PeriodAll.
func matchesPeriod(date string, period Period, today time.Time) bool {
	switch period {
	case PeriodToday:
		return date == today.Format("2006-01-02")
	case Period3Days:
		return date >= today.AddDate(0, 0, -2).Format("2006-01-02")
	case PeriodWeek:
		return date >= startOfWeek(today).Format("2006-01-02")
	case PeriodMonth:
		return strings.HasPrefix(date, today.Format("2006-01"))
	case PeriodYear:
		return strings.HasPrefix(date, today.Format("2006"))
	default:
		return true
	}
}

// startOfWeek returns the Monday of today's week. Sunday counts as day 7.
func startOfWeek(today time.Time) time.Time {
	day := int(today.Weekday())
	if day == 0 {
		day = 7
	}
	return today.AddDate(0, 0, 1-day)
}

// clampField parses a time component, defaulting to 0 when the value is
// absent, malformed or out of range.
func clampField(raw string, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 || v > max {
		return 0
	}
	return v
}
