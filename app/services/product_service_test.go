package services

import (
	"errors"
	"testing"

	"ShopPOS/app/models"
)

func TestCreateProductBooksOpeningStock(t *testing.T) {
	svc, db, _ := newTestServices(t)

	p := &models.Product{Title: "  Thé vert ", Value: d("120"), DiscountValue: d("100"), Qty: 7}
	if err := svc.Products.CreateProduct(p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Title != "Thé vert" || !p.FinalValue.Equal(d("100")) || p.Qty != 7 {
		t.Fatalf("unexpected product %+v", p)
	}

	ms := movementsOf(t, db, p.ID)
	if len(ms) != 1 || ms[0].Type != models.MovementAdjustUp || ms[0].Quantity != 7 || ms[0].StockBefore != 0 {
		t.Fatalf("expected one opening movement, got %+v", ms)
	}

	dup := &models.Product{Title: "Thé vert", Value: d("1")}
	if err := svc.Products.CreateProduct(dup, nil); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate title, got %v", err)
	}
	if err := svc.Products.CreateProduct(&models.Product{Title: "X", Value: d("-1")}, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestUpdateProductBooksQuantityChange(t *testing.T) {
	svc, db, _ := newTestServices(t)
	p := mustProduct(t, svc, "Cahier", "35", 10)

	current := reloadProduct(t, db, p.ID)
	current.Qty = 6
	current.Value = d("40")
	if err := svc.Products.UpdateProduct(&current, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := reloadProduct(t, db, p.ID)
	if stored.Qty != 6 || !stored.FinalValue.Equal(d("40")) {
		t.Fatalf("unexpected stored product %+v", stored)
	}
	ms := movementsOf(t, db, p.ID)
	last := ms[len(ms)-1]
	if last.Type != models.MovementAdjustDown || last.Quantity != -4 {
		t.Fatalf("unexpected adjustment %+v", last)
	}
}

func TestDeleteProductInUseIsRefused(t *testing.T) {
	svc, db, _ := newTestServices(t)
	sold := mustProduct(t, svc, "Stylo", "10", 5)
	unused := mustProduct(t, svc, "Règle", "15", 5)
	order := mustOrder(t, svc)
	if _, err := svc.Orders.AddItem(order.ID, sold.ID, 1, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := svc.Products.DeleteProduct(sold.ID); !errors.Is(err, ErrProductInUse) {
		t.Fatalf("expected product in use, got %v", err)
	}
	if err := svc.Products.DeleteProduct(unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if len(movementsOf(t, db, unused.ID)) != 0 {
		t.Fatalf("ledger rows should go with the product")
	}
	if _, err := svc.Products.GetProduct(unused.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategoriesAndSearch(t *testing.T) {
	svc, _, _ := newTestServices(t)

	cat, err := svc.Products.CreateCategory(&models.Category{Title: "Boissons"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	p := &models.Product{Title: "Bissap", Value: d("25"), CategoryID: &cat.ID, Qty: 2}
	if err := svc.Products.CreateProduct(p, nil); err != nil {
		t.Fatalf("create product: %v", err)
	}
	mustProduct(t, svc, "Savon", "30", 0)

	found, err := svc.Products.SearchProducts("boisson")
	if err != nil || len(found) != 1 || found[0].ID != p.ID {
		t.Fatalf("search by category should find Bissap, got %v (%v)", found, err)
	}

	low, _ := svc.Products.GetLowStockProducts()
	if len(low) != 1 || low[0].ID != p.ID {
		t.Fatalf("expected Bissap as low stock, got %v", low)
	}
	out, _ := svc.Products.GetOutOfStockProducts()
	if len(out) != 1 || out[0].Title != "Savon" {
		t.Fatalf("expected Savon out of stock, got %v", out)
	}

	summary, err := svc.Products.GetInventorySummary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalProducts != 2 || summary.LowStock != 1 || summary.OutOfStock != 1 || summary.UnitsInStock != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if err := svc.Products.DeleteCategory(cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	reloaded, err := svc.Products.GetProduct(p.ID)
	if err != nil || reloaded.CategoryID != nil {
		t.Fatalf("product should be uncategorized, got %+v (%v)", reloaded, err)
	}
}
