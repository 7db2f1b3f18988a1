package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"ShopPOS/app/models"

	"gorm.io/gorm"
)

func TestOrderNumbersFollowEachOther(t *testing.T) {
	svc, _, _ := newTestServices(t)

	first := mustOrder(t, svc)
	second := mustOrder(t, svc)
	if first.Title != "CMD-20241215-1430-001" || second.Title != "CMD-20241215-1430-002" {
		t.Fatalf("unexpected sequence %q, %q", first.Title, second.Title)
	}
	if second.DisplayNumber() != "CMD-2024/12/15-14:30-002" {
		t.Fatalf("unexpected display number %q", second.DisplayNumber())
	}

	// Another business date restarts the sequence
	other, err := svc.Orders.CreateOrder(OrderInput{Date: testNow.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if other.Title != "CMD-20241216-1430-001" {
		t.Fatalf("unexpected number for next day %q", other.Title)
	}
}

func TestOrderNumberSkipsTakenTitles(t *testing.T) {
	svc, db, _ := newTestServices(t)

	if _, err := svc.Orders.CreateOrder(OrderInput{Title: "CMD-20241215-1430-002"}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	title, err := GenerateOrderNumber(db, businessDate(testNow), 0, testNow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "CMD-20241215-1430-003" {
		t.Fatalf("expected the search to skip 002, got %q", title)
	}
}

func TestOrderNumberExcludesOwnRow(t *testing.T) {
	svc, db, _ := newTestServices(t)
	order := mustOrder(t, svc)

	// Seed is 1, so 002 is proposed for anyone else; the order itself may keep 001
	title, err := GenerateOrderNumber(db, order.Date, order.ID, testNow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "CMD-20241215-1430-002" {
		t.Fatalf("unexpected title %q", title)
	}

	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("title", "CMD-20241215-1430-002").Error; err != nil {
		t.Fatalf("rename: %v", err)
	}
	title, err = GenerateOrderNumber(db, order.Date, order.ID, testNow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "CMD-20241215-1430-002" {
		t.Fatalf("own title should not count as taken, got %q", title)
	}
}

func seedOrderTitles(t *testing.T, db *gorm.DB, day time.Time, titles []string) {
	t.Helper()
	orders := make([]models.Order, 0, len(titles))
	for _, title := range titles {
		orders = append(orders, models.Order{Date: day, Title: title})
	}
	if err := db.CreateInBatches(&orders, 200).Error; err != nil {
		t.Fatalf("seed orders: %v", err)
	}
}

func TestOrderNumberTriesSeedPast999(t *testing.T) {
	_, db, _ := newTestServices(t)
	day := businessDate(testNow)

	titles := make([]string, 0, maxOrderSequence)
	for i := 1; i <= maxOrderSequence; i++ {
		titles = append(titles, fmt.Sprintf("CMD-20241215-0900-%03d", i))
	}
	seedOrderTitles(t, db, day, titles)

	title, err := GenerateOrderNumber(db, day, 0, testNow.Add(123456*time.Microsecond))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "CMD-20241215-1430-1000" {
		t.Fatalf("expected the seed to be tried first, got %q", title)
	}
}

func TestOrderNumberFallsBackPast999(t *testing.T) {
	svc, db, _ := newTestServices(t)
	day := businessDate(testNow)

	// 998 titles: seed+1 is 999, which is taken, so probing leaves the three-digit range
	titles := make([]string, 0, 998)
	for i := 1; i <= 996; i++ {
		titles = append(titles, fmt.Sprintf("CMD-20241215-0900-%03d", i))
	}
	titles = append(titles, "CMD-20241215-1430-999", "CMD-20241215-1430-123")
	seedOrderTitles(t, db, day, titles)

	now := testNow.Add(123456 * time.Microsecond)
	title, err := GenerateOrderNumber(db, day, 0, now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "CMD-20241215-1430-123" {
		t.Fatalf("expected sub-second fallback, got %q", title)
	}

	// The fallback is not checked: a clash with an existing title is left to the unique index
	svc.SetClock(func() time.Time { return now })
	if _, err := svc.Orders.CreateOrder(OrderInput{}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected the colliding fallback to be rejected, got %v", err)
	}
}

// The existence check and the insert are not atomic: two callers that check
// before either inserts get the same number, and the unique index rejects the second.
func TestOrderNumberRaceIsRejectedByUniqueIndex(t *testing.T) {
	svc, db, _ := newTestServices(t)
	day := businessDate(testNow)

	a, err := GenerateOrderNumber(db, day, 0, testNow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateOrderNumber(db, day, 0, testNow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != b {
		t.Fatalf("both callers should see the same free number, got %q and %q", a, b)
	}

	if _, err := svc.Orders.CreateOrder(OrderInput{Title: a}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := svc.Orders.CreateOrder(OrderInput{Title: b}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("second insert should hit the unique index, got %v", err)
	}

	// A caller that generates after the insert moves on
	next := mustOrder(t, svc)
	if next.Title != "CMD-20241215-1430-002" {
		t.Fatalf("unexpected next number %q", next.Title)
	}
}
