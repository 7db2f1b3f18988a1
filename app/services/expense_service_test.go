package services

import (
	"errors"
	"testing"

	"ShopPOS/app/models"
)

func TestCreateExpense(t *testing.T) {
	svc, _, rec := newTestServices(t)

	rent, err := svc.Expenses.GetOrCreateType("Loyer", "Loyer du local", "#6f42c1")
	if err != nil {
		t.Fatalf("type: %v", err)
	}
	again, err := svc.Expenses.GetOrCreateType("Loyer", "", "")
	if err != nil || again.ID != rent.ID {
		t.Fatalf("type lookup should be idempotent")
	}

	expense, err := svc.Expenses.CreateExpense(ExpenseInput{
		ExpenseTypeID: rent.ID,
		Description:   "Loyer décembre",
		Amount:        d("15000"),
		Supplier:      "M. Jallow",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !expense.Date.Equal(businessDate(testNow)) {
		t.Fatalf("date should default to today, got %s", expense.Date)
	}
	if rec.count(EventExpenseRecorded) != 1 {
		t.Fatalf("expected one expense event")
	}

	if _, err := svc.Expenses.CreateExpense(ExpenseInput{ExpenseTypeID: rent.ID, Description: "x", Amount: d("0")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Expenses.CreateExpense(ExpenseInput{ExpenseTypeID: rent.ID, Description: "x", Amount: d("0.001")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected sub-cent amount rejection, got %v", err)
	}
	if _, err := svc.Expenses.CreateExpense(ExpenseInput{ExpenseTypeID: rent.ID, Amount: d("5")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing description, got %v", err)
	}
	if _, err := svc.Expenses.CreateExpense(ExpenseInput{ExpenseTypeID: 999, Description: "x", Amount: d("5")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}

func TestExpenseTotals(t *testing.T) {
	svc, _, _ := newTestServices(t)
	product := mustProduct(t, svc, "Gaz", "900", 0)

	transport, err := svc.Expenses.GetOrCreateType("Transport", "", "")
	if err != nil {
		t.Fatalf("type: %v", err)
	}
	for _, amount := range []string{"200", "300"} {
		if _, err := svc.Expenses.CreateExpense(ExpenseInput{ExpenseTypeID: transport.ID, Description: "Taxi", Amount: d(amount)}); err != nil {
			t.Fatalf("expense: %v", err)
		}
	}
	if _, err := svc.Replenishments.CreateReplenishment(ReplenishmentInput{ProductID: product.ID, Qty: 2, UnitCost: d("700")}); err != nil {
		t.Fatalf("replenish: %v", err)
	}

	total, err := svc.Expenses.TotalBetween(testNow, testNow)
	if err != nil || !total.Equal(d("1900")) {
		t.Fatalf("expected 1900, got %s (%v)", total, err)
	}

	byType, err := svc.Expenses.TotalsByType(testNow, testNow, 0)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(byType) != 2 || byType[0].Name != models.ReplenishmentTypeName || !byType[0].Total.Equal(d("1400")) {
		t.Fatalf("unexpected totals %+v", byType)
	}
	if byType[1].Count != 2 || !byType[1].Total.Equal(d("500")) {
		t.Fatalf("unexpected transport total %+v", byType[1])
	}

	listed, err := svc.Expenses.ListExpenses(ExpenseFilter{Search: "taxi"})
	if err != nil || len(listed) != 2 {
		t.Fatalf("expected 2 taxi expenses, got %d (%v)", len(listed), err)
	}
}

func TestCreateExpenseTypeValidatesColor(t *testing.T) {
	svc, _, _ := newTestServices(t)

	if err := svc.Expenses.CreateType(&models.ExpenseType{Name: "Divers", Color: "blue"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid color, got %v", err)
	}
	et := &models.ExpenseType{Name: "Divers"}
	if err := svc.Expenses.CreateType(et); err != nil {
		t.Fatalf("create type: %v", err)
	}
	if et.Color != models.DefaultExpenseTypeColor {
		t.Fatalf("expected default color, got %s", et.Color)
	}
	if err := svc.Expenses.CreateType(&models.ExpenseType{Name: "Divers"}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate name, got %v", err)
	}

	if err := svc.Expenses.SetTypeActive(et.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := svc.Expenses.ListTypes(true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tp := range active {
		if tp.ID == et.ID {
			t.Fatalf("inactive type listed")
		}
	}
}
