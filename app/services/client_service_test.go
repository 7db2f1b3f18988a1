package services

import (
	"errors"
	"testing"

	"ShopPOS/app/models"
)

func TestCreateClientNormalizesPhone(t *testing.T) {
	svc, _, _ := newTestServices(t)

	c := &models.Client{Name: " Awa Ceesay ", Phone: "+220 771 2233"}
	if err := svc.Clients.CreateClient(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Awa Ceesay" || c.Phone != "+2207712233" || !c.IsActive {
		t.Fatalf("unexpected client %+v", c)
	}

	if err := svc.Clients.CreateClient(&models.Client{Name: "Autre", Phone: "+2207712233"}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate phone, got %v", err)
	}
	if err := svc.Clients.CreateClient(&models.Client{Name: "Sans tel"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing phone, got %v", err)
	}
	if err := svc.Clients.UpdateClient(&models.Client{ID: 999, Name: "X", Phone: "1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSearchByPhone(t *testing.T) {
	svc, _, _ := newTestServices(t)

	for _, c := range []*models.Client{
		{Name: "Lamin", Phone: "7001111"},
		{Name: "Fatou", Phone: "7002222"},
		{Name: "Modou", Phone: "3009999"},
	} {
		if err := svc.Clients.CreateClient(c); err != nil {
			t.Fatalf("create %s: %v", c.Name, err)
		}
	}

	found, err := svc.Clients.SearchByPhone("700")
	if err != nil || len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d (%v)", len(found), err)
	}

	fatou := found[0]
	if fatou.Name != "Fatou" {
		t.Fatalf("newest client should come first, got %s", fatou.Name)
	}
	fatou.IsActive = false
	if err := svc.Clients.UpdateClient(&fatou); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	found, _ = svc.Clients.SearchByPhone("700")
	if len(found) != 1 || found[0].Name != "Lamin" {
		t.Fatalf("inactive clients should not match, got %v", found)
	}

	empty, err := svc.Clients.SearchByPhone("  ")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("blank search should return an empty list")
	}
}

func TestClientStats(t *testing.T) {
	svc, _, _ := newTestServices(t)
	client := &models.Client{Name: "Isatou", Phone: "7445566"}
	if err := svc.Clients.CreateClient(client); err != nil {
		t.Fatalf("create client: %v", err)
	}

	stats, err := svc.Clients.ClientStats(client.ID)
	if err != nil || stats.TotalOrders != 0 || stats.LastOrderDate != nil {
		t.Fatalf("unexpected empty stats %+v (%v)", stats, err)
	}

	product := mustProduct(t, svc, "Pagne", "750", 4)
	order, err := svc.Orders.CreateOrder(OrderInput{ClientID: &client.ID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.Orders.AddItem(order.ID, product.ID, 2, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}

	stats, err = svc.Clients.ClientStats(client.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalOrders != 1 || !stats.TotalSpent.Equal(d("1500")) || stats.LastOrderDate == nil {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := svc.Clients.ClientStats(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
