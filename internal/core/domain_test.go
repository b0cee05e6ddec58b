package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"INCOME", KindIncome, true},
		{"expense", KindExpense, true},
		{" Income ", KindIncome, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidKind) {
			t.Fatalf("%q expected ErrInvalidKind, got %v", tc.in, err)
		}
	}
}

func TestKindFromFlag(t *testing.T) {
	if KindFromFlag(1.0) != KindIncome {
		t.Fatalf("1.0 should map to income")
	}
	for _, f := range []float64{0, 2, -1, 0.5} {
		if KindFromFlag(f) != KindExpense {
			t.Fatalf("%v should map to expense", f)
		}
	}
	if KindIncome.Flag() != 1.0 || KindExpense.Flag() != 0.0 {
		t.Fatalf("unexpected flag values")
	}
}

func TestTransactionDelta(t *testing.T) {
	in := Transaction{Amount: dec("10"), Kind: KindIncome}
	out := Transaction{Amount: dec("10"), Kind: KindExpense}
	if !in.Delta().Equal(dec("10")) {
		t.Fatalf("income delta: got %s", in.Delta())
	}
	if !out.Delta().Equal(dec("-10")) {
		t.Fatalf("expense delta: got %s", out.Delta())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Name: "Coffee", Amount: dec("2.5"), Kind: KindExpense, CreateTime: "2024-01-15 08:30:00"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Name: "", Amount: dec("1"), Kind: KindExpense}, ErrEmptyName},
		{Transaction{Name: strings.Repeat("x", 201), Amount: dec("1"), Kind: KindExpense}, ErrNameTooLong},
		{Transaction{Name: "a", Amount: dec("-1"), Kind: KindExpense}, ErrInvalidAmount},
		{Transaction{Name: "a", Amount: dec("1"), Kind: "BOTH"}, ErrInvalidKind},
		{Transaction{Name: "a", Amount: dec("1"), Kind: KindIncome, CreateTime: "2024-01-15"}, ErrInvalidTimestamp},
	}
	for i, tc := range bads {
		err := tc.tx.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d expected error to wrap ErrInvalid", i)
		}
	}
}

func TestBudgetValidateAndActive(t *testing.T) {
	b := Budget{Name: "January", Limit: dec("500"), StartDate: "2024-01-01", EndDate: "2024-01-31"}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !b.ActiveOn("2024-01-01") || !b.ActiveOn("2024-01-31") || b.ActiveOn("2024-02-01") {
		t.Fatalf("unexpected ActiveOn results")
	}

	reversed := b
	reversed.StartDate, reversed.EndDate = b.EndDate, b.StartDate
	if err := reversed.Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	badDate := b
	badDate.EndDate = "31/01/2024"
	if err := badDate.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	neg := dec("-5")
	cases := []struct {
		c  Category
		ok bool
	}{
		{Category{Name: "Books", Type: KindExpense}, true},
		{Category{Name: "Books", Type: ""}, false},
		{Category{Name: "", Type: KindIncome}, false},
		{Category{Name: "Books", Type: KindExpense, Limit: &neg}, false},
	}
	for i, tc := range cases {
		err := tc.c.Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("case %d: ok=%v err=%v", i, tc.ok, err)
		}
	}
}

func TestNotFoundSentinels(t *testing.T) {
	for _, err := range []error{ErrWalletNotFound, ErrTransactionNotFound, ErrBudgetNotFound, ErrGoalNotFound, ErrCategoryNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%v should wrap ErrNotFound", err)
		}
	}
}

func TestDefaultCategories(t *testing.T) {
	defaults := DefaultCategories()
	if len(defaults) != 6 {
		t.Fatalf("expected 6 defaults, got %d", len(defaults))
	}
	income := 0
	for _, c := range defaults {
		if err := c.Validate(); err != nil {
			t.Fatalf("default %s invalid: %v", c.Name, err)
		}
		if c.Custom {
			t.Fatalf("default %s flagged custom", c.Name)
		}
		if c.Type == KindIncome {
			income++
		}
	}
	if income != 2 {
		t.Fatalf("expected 2 income categories, got %d", income)
	}
	if !IsBuiltinCategory("3") || IsBuiltinCategory("1000") {
		t.Fatalf("unexpected IsBuiltinCategory results")
	}
}
