package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the storage format of transaction and goal timestamps.
// Values in this layout sort lexicographically in time order.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

const maxNameLength = 200

type (
	// Kind classifies transactions and categories.
	Kind string

	Transaction struct {
		ID         string          `json:"id"`
		CategoryID string          `json:"categoryId,omitempty"`
		Amount     decimal.Decimal `json:"amount"`
		Name       string          `json:"name"`
		Kind       Kind            `json:"kind"`
		WalletID   string          `json:"walletId,omitempty"`
		CreateTime string          `json:"createTime,omitempty"`
	}

	Wallet struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		Balance        decimal.Decimal `json:"balance"`
		OpeningBalance decimal.Decimal `json:"openingBalance"`
		Color          string          `json:"color,omitempty"`
		Type           string          `json:"type,omitempty"`
	}

	Budget struct {
		ID                string          `json:"id"`
		Name              string          `json:"name"`
		Limit             decimal.Decimal `json:"limit"`
		Balance           decimal.Decimal `json:"balance"`
		StartDate         string          `json:"startDate"`
		EndDate           string          `json:"endDate"`
		TrackedCategories []string        `json:"trackedCategories,omitempty"`
	}

	Goal struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Target     decimal.Decimal `json:"target"`
		Balance    decimal.Decimal `json:"balance"`
		Deadline   string          `json:"deadline,omitempty"`
		Priority   float64         `json:"priority"`
		CreateTime string          `json:"createTime,omitempty"`
		WalletID   string          `json:"walletId,omitempty"`
	}

	Category struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Description string           `json:"description,omitempty"`
		Type        Kind             `json:"type"`
		Limit       *decimal.Decimal `json:"limit,omitempty"`
		Custom      bool             `json:"custom"`
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)
	ErrGoalNotFound        = fmt.Errorf("goal %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)

	ErrInvalid          = errors.New("invalid input")
	ErrInvalidAmount    = fmt.Errorf("%w: amount must not be negative", ErrInvalid)
	ErrInvalidKind      = fmt.Errorf("%w: kind must be INCOME or EXPENSE", ErrInvalid)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrInvalid)
	ErrNameTooLong      = fmt.Errorf("%w: name too long (max 200 characters)", ErrInvalid)
	ErrInvalidTimestamp = fmt.Errorf("%w: timestamp must be YYYY-MM-DD HH:MM:SS", ErrInvalid)
	ErrInvalidDate      = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	ErrInvalidPeriod    = fmt.Errorf("%w: end date before start date", ErrInvalid)
	ErrDuplicateID      = fmt.Errorf("%w: id already exists", ErrInvalid)
	ErrDuplicateName    = fmt.Errorf("%w: name already exists", ErrInvalid)

	ErrBuiltinCategory = errors.New("built-in categories cannot be modified")
	ErrWalletInUse     = errors.New("wallet still has transactions")
)

// ParseKind accepts INCOME or EXPENSE in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindIncome):
		return KindIncome, nil
	case string(KindExpense):
		return KindExpense, nil
	}
	return "", ErrInvalidKind
}

// KindFromFlag maps the legacy numeric income flag: 1.0 is income, anything else expense.
func KindFromFlag(flag float64) Kind {
	if flag == 1.0 {
		return KindIncome
	}
	return KindExpense
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Flag returns the legacy numeric representation of k.
func (k Kind) Flag() float64 {
	if k == KindIncome {
		return 1.0
	}
	return 0.0
}

func (k Kind) String() string {
	return string(k)
}

// IsIncome reports whether t counts as income.
func (t Transaction) IsIncome() bool {
	return t.Kind == KindIncome
}

// Delta is the signed effect of t on its wallet balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.IsIncome() {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t Transaction) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.CreateTime != "" {
		if _, err := time.Parse(TimestampLayout, t.CreateTime); err != nil {
			return ErrInvalidTimestamp
		}
	}
	return nil
}

func (w Wallet) Validate() error {
	return validateName(w.Name)
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if b.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	start, err := time.Parse(DateLayout, b.StartDate)
	if err != nil {
		return ErrInvalidDate
	}
	end, err := time.Parse(DateLayout, b.EndDate)
	if err != nil {
		return ErrInvalidDate
	}
	if end.Before(start) {
		return ErrInvalidPeriod
	}
	return nil
}

// ActiveOn reports whether day (YYYY-MM-DD) falls inside the budget period.
func (b Budget) ActiveOn(day string) bool {
	return b.StartDate <= day && day <= b.EndDate
}

func (g Goal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return err
	}
	if g.Target.IsNegative() {
		return ErrInvalidAmount
	}
	if g.Deadline != "" {
		if _, err := time.Parse(DateLayout, g.Deadline); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return ErrInvalidKind
	}
	if c.Limit != nil && c.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}
