package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

const maxBodyBytes = 1 << 20

// ParseCriteria reads filter predicates from query parameters. Unknown
// parameters are ignored; malformed values are errors wrapping core.ErrInvalid.
func ParseCriteria(q url.Values) (core.TransactionCriteria, error) {
	var c core.TransactionCriteria

	if v := param(q, "min_amount"); v != "" {
		d, err := core.ParseAmount(v)
		if err != nil {
			return c, fmt.Errorf("%w: min_amount %q", core.ErrInvalid, v)
		}
		c = c.WithMinAmount(d)
	}
	if v := param(q, "max_amount"); v != "" {
		d, err := core.ParseAmount(v)
		if err != nil {
			return c, fmt.Errorf("%w: max_amount %q", core.ErrInvalid, v)
		}
		c = c.WithMaxAmount(d)
	}

	c.CategoryID = param(q, "category")
	c.WalletID = param(q, "wallet")

	for _, p := range []struct {
		name string
		dst  *string
	}{{"date_from", &c.DateFrom}, {"date_to", &c.DateTo}} {
		v := param(q, p.name)
		if v != "" && !validBound(v) {
			return c, fmt.Errorf("%w: %s must be YYYY-MM-DD or YYYY-MM-DD HH:MM:SS", core.ErrInvalid, p.name)
		}
		*p.dst = v
	}

	switch v := strings.ToLower(param(q, "income")); v {
	case "":
	case "true":
		c = c.WithIncome(true)
	case "false":
		c = c.WithIncome(false)
	default:
		return c, fmt.Errorf("%w: income must be true or false", core.ErrInvalid)
	}
	return c, nil
}

func validBound(v string) bool {
	if _, err := time.Parse(core.DateLayout, v); err == nil {
		return true
	}
	_, err := time.Parse(core.TimestampLayout, v)
	return err == nil
}

func param(q url.Values, key string) string {
	return sanitizeInput(q.Get(key))
}

// decodeJSON reads one JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", core.ErrInvalid)
		}
		return fmt.Errorf("%w: %v", core.ErrInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", core.ErrInvalid)
	}
	return nil
}

// amountValue accepts 12.5, "12.5" and "12,50".
type amountValue struct {
	decimal.Decimal
}

func (a *amountValue) UnmarshalJSON(b []byte) error {
	d, err := core.ParseAmount(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// signedAmountValue is amountValue allowing a leading minus.
type signedAmountValue struct {
	decimal.Decimal
}

func (a *signedAmountValue) UnmarshalJSON(b []byte) error {
	d, err := core.ParseSignedAmount(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

type transactionRequest struct {
	Name       string      `json:"name"`
	Amount     amountValue `json:"amount"`
	Kind       string      `json:"kind"`
	Income     *bool       `json:"income"`
	CategoryID string      `json:"categoryId"`
	WalletID   string      `json:"walletId"`
	CreateTime string      `json:"createTime"`
}

// toTransaction resolves kind, falling back to the legacy income flag.
func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	var kind core.Kind
	switch {
	case req.Kind != "":
		k, err := core.ParseKind(req.Kind)
		if err != nil {
			return core.Transaction{}, err
		}
		kind = k
	case req.Income != nil:
		kind = core.KindExpense
		if *req.Income {
			kind = core.KindIncome
		}
	default:
		return core.Transaction{}, core.ErrInvalidKind
	}
	return core.Transaction{
		ID:         id,
		Name:       sanitizeInput(req.Name),
		Amount:     req.Amount.Decimal,
		Kind:       kind,
		CategoryID: sanitizeInput(req.CategoryID),
		WalletID:   sanitizeInput(req.WalletID),
		CreateTime: sanitizeInput(req.CreateTime),
	}, nil
}

type walletRequest struct {
	Name           string            `json:"name"`
	OpeningBalance signedAmountValue `json:"openingBalance"`
	Color          string            `json:"color"`
	Type           string            `json:"type"`
}

type budgetRequest struct {
	Name              string      `json:"name"`
	Limit             amountValue `json:"limit"`
	StartDate         string      `json:"startDate"`
	EndDate           string      `json:"endDate"`
	TrackedCategories []string    `json:"trackedCategories"`
}

func (req budgetRequest) toBudget(id string) core.Budget {
	tracked := make([]string, 0, len(req.TrackedCategories))
	for _, c := range req.TrackedCategories {
		if c = sanitizeInput(c); c != "" {
			tracked = append(tracked, c)
		}
	}
	return core.Budget{
		ID:                id,
		Name:              sanitizeInput(req.Name),
		Limit:             req.Limit.Decimal,
		StartDate:         sanitizeInput(req.StartDate),
		EndDate:           sanitizeInput(req.EndDate),
		TrackedCategories: tracked,
	}
}

type budgetLinkRequest struct {
	CategoryID string       `json:"categoryId"`
	Limit      *amountValue `json:"limit"`
}

func toBudgetLinks(budgetID string, reqs []budgetLinkRequest) []core.BudgetCategory {
	links := make([]core.BudgetCategory, 0, len(reqs))
	for _, r := range reqs {
		var limit *decimal.Decimal
		if r.Limit != nil {
			d := r.Limit.Decimal
			limit = &d
		}
		links = append(links, core.NewBudgetCategory(budgetID, sanitizeInput(r.CategoryID), limit))
	}
	return links
}

type goalRequest struct {
	Name     string      `json:"name"`
	Target   amountValue `json:"target"`
	Balance  amountValue `json:"balance"`
	Deadline string      `json:"deadline"`
	Priority float64     `json:"priority"`
	WalletID string      `json:"walletId"`
}

// toGoal ignores Balance when updating; contributions move it.
func (req goalRequest) toGoal(id string) core.Goal {
	return core.Goal{
		ID:       id,
		Name:     sanitizeInput(req.Name),
		Target:   req.Target.Decimal,
		Balance:  req.Balance.Decimal,
		Deadline: sanitizeInput(req.Deadline),
		Priority: req.Priority,
		WalletID: sanitizeInput(req.WalletID),
	}
}

type contributionRequest struct {
	Amount signedAmountValue `json:"amount"`
}

type categoryRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Limit       *amountValue `json:"limit"`
}

func (req categoryRequest) toCategory() (core.Category, error) {
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Type:        kind,
	}
	if req.Limit != nil {
		d := req.Limit.Decimal
		c.Limit = &d
	}
	return c, nil
}
