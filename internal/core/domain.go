package core

import (
	"fmt"
	"math"
	"time"
)

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryEntertainment = "Entertainment"
	CategoryBills         = "Bills"
)

// DateLayout is the canonical expense date format. Lexicographic comparison of
// two dates in this layout matches chronological order, which the range
// queries rely on.
const DateLayout = "2006-01-02"

type (
	Role string

	User struct {
		ID       int64  `json:"id"`
		Email    string `json:"email"`
		Password string `json:"-"`
		Role     Role   `json:"role"`
	}

	// Expense is a single recorded spend. UserID is nullable because rows
	// written by the legacy mobile client carry no user id.
	Expense struct {
		ID       int64   `json:"id"`
		UserID   *int64  `json:"userId,omitempty"`
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
		Date     string  `json:"date"`
	}

	// CategoryTotal is one row of a category breakdown.
	CategoryTotal struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}
)

// Categories returns the fixed client-side category set, in display order.
func Categories() []string {
	return []string{
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryBills,
	}
}

// ValidationError reports a rejected field at the storage boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsAdmin reports whether the user holds the Admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidateCategory checks membership in the fixed category set.
func ValidateCategory(category string) error {
	for _, c := range Categories() {
		if category == c {
			return nil
		}
	}
	return &ValidationError{Field: "category", Reason: fmt.Sprintf("%q is not a known category", category)}
}

// ValidateAmount checks that the amount is a finite, non-negative value.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &ValidationError{Field: "amount", Reason: "must be a finite number"}
	}
	if amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return nil
}

// ValidateDate checks for a real calendar date in YYYY-MM-DD form. time.Parse
// rejects impossible dates like 2024-02-31 but accepts unpadded fields like
// 2024-1-1, so the round-trip pins the canonical zero-padded form the range
// queries compare lexicographically.
func ValidateDate(date string) error {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return &ValidationError{Field: "date", Reason: "must be a date in YYYY-MM-DD form"}
	}
	if t.Format(DateLayout) != date {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a calendar date", date)}
	}
	return nil
}

// ValidateYear checks a 4-digit year string as used by the yearly total query.
func ValidateYear(year string) error {
	if len(year) != 4 {
		return &ValidationError{Field: "year", Reason: "must be a 4-digit year"}
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return &ValidationError{Field: "year", Reason: "must be a 4-digit year"}
		}
	}
	return nil
}

// ValidateExpense applies all field checks for an insert or update.
func ValidateExpense(category string, amount float64, date string) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	return ValidateDate(date)
}
