package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderItemApplyPricingUsesPromoPrice(t *testing.T) {
	item := OrderItem{Qty: 3, Price: dec("1000"), DiscountPrice: dec("800")}
	item.ApplyPricing()
	if !item.FinalPrice.Equal(dec("800")) || !item.TotalPrice.Equal(dec("2400")) {
		t.Fatalf("expected 800/2400, got %s/%s", item.FinalPrice, item.TotalPrice)
	}

	item = OrderItem{Qty: 2, Price: dec("1000")}
	item.ApplyPricing()
	if !item.FinalPrice.Equal(dec("1000")) || !item.TotalPrice.Equal(dec("2000")) {
		t.Fatalf("expected 1000/2000, got %s/%s", item.FinalPrice, item.TotalPrice)
	}
}

func TestOrderRecomputeAndBalance(t *testing.T) {
	order := Order{
		Discount: dec("500"),
		Items: []OrderItem{
			{Qty: 2, TotalPrice: dec("2000")},
			{Qty: 1, TotalPrice: dec("1500")},
		},
	}
	order.Recompute()
	if !order.Value.Equal(dec("3500")) || !order.FinalValue.Equal(dec("3000")) {
		t.Fatalf("expected 3500/3000, got %s/%s", order.Value, order.FinalValue)
	}
	if order.ItemCount() != 3 {
		t.Fatalf("expected 3 units, got %d", order.ItemCount())
	}

	order.Payments = []Payment{{Amount: dec("1000")}}
	if !order.RemainingAmount().Equal(dec("2000")) {
		t.Fatalf("expected 2000 remaining, got %s", order.RemainingAmount())
	}
	if order.IsFullyPaid() {
		t.Fatalf("order should not be paid")
	}
	if !order.PaymentPercentage().Equal(dec("33.33")) {
		t.Fatalf("expected 33.33%%, got %s", order.PaymentPercentage())
	}

	order.Payments = append(order.Payments, Payment{Amount: dec("2000")})
	if !order.IsFullyPaid() || !order.RemainingAmount().IsZero() {
		t.Fatalf("order should be fully paid")
	}
}

func TestEmptyOrderIsNeverPaid(t *testing.T) {
	order := Order{}
	order.Recompute()
	if !order.Value.IsZero() || order.IsFullyPaid() {
		t.Fatalf("empty order: value %s paid %v", order.Value, order.IsFullyPaid())
	}
	if !order.PaymentPercentage().Equal(dec("100")) {
		t.Fatalf("expected 100%% for nothing billed, got %s", order.PaymentPercentage())
	}
}

func TestDisplayOrderNumber(t *testing.T) {
	cases := map[string]string{
		"CMD-20241215-1430-001":  "CMD-2024/12/15-14:30-001",
		"CMD-20241215-1430-1000": "CMD-2024/12/15-14:30-1000",
		"Table 4":                "Table 4",
		"CMD-bad":                "CMD-bad",
	}
	for title, want := range cases {
		if got := DisplayOrderNumber(title); got != want {
			t.Fatalf("DisplayOrderNumber(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestPaymentMethodValidation(t *testing.T) {
	if !PaymentCash.Valid() {
		t.Fatalf("cash should be valid")
	}
	if PaymentMethod("cheque-en-bois").Valid() {
		t.Fatalf("unknown method accepted")
	}
}
