package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestUnitLabel(t *testing.T) {
	cases := []struct {
		pair string
		want string
	}{
		{"USD/RUB", "rubles"},
		{"RUB/USD", "dollars"},
		{"EUR/GBP", "units"},
		{"", "units"},
	}

	for _, tc := range cases {
		if got := UnitLabel(tc.pair); got != tc.want {
			t.Errorf("UnitLabel(%q) = %q, want %q", tc.pair, got, tc.want)
		}
	}
}

func TestOrderAvailableAmount(t *testing.T) {
	order := Order{
		Amount:         decimal.RequireFromString("100.00"),
		ReservedAmount: decimal.RequireFromString("60.00"),
	}

	if !order.AvailableAmount().Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected 40.00 available, got %s", order.AvailableAmount())
	}
}

func TestOrderRedact(t *testing.T) {
	original := &User{ID: 1, Username: "alice", Phone: "+7999", PasswordHash: "hash"}
	order := Order{Seller: original}

	order.Redact()

	if order.Seller.Phone != PhoneRedacted {
		t.Fatalf("expected phone %q, got %q", PhoneRedacted, order.Seller.Phone)
	}
	if order.Seller.PasswordHash != "" {
		t.Fatal("expected password hash to be cleared")
	}
	if original.Phone != "+7999" {
		t.Fatal("redaction must not mutate the shared user")
	}
}

func TestTransactionStateHelpers(t *testing.T) {
	tx := Transaction{BuyerID: 2, SellerID: 3, Status: TransactionStatusPending}

	if tx.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	tx.Status = TransactionStatusDone
	if !tx.IsTerminal() {
		t.Fatal("done must be terminal")
	}
	tx.Status = TransactionStatusCanceled
	if !tx.IsTerminal() {
		t.Fatal("canceled must be terminal")
	}

	if !tx.Involves(2) || !tx.Involves(3) {
		t.Fatal("buyer and seller are parties to the transaction")
	}
	if tx.Involves(4) {
		t.Fatal("a third user is not a party to the transaction")
	}
}
