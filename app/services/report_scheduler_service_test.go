package services

import (
	"testing"
	"time"

	"ShopPOS/app/models"
)

func TestNextSyncDelay(t *testing.T) {
	now := time.Date(2024, 12, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name   string
		config models.GoogleSheetsConfig
		want   time.Duration
	}{
		{"interval", models.GoogleSheetsConfig{SyncMode: models.SyncModeInterval, SyncInterval: 15}, 15 * time.Minute},
		{"interval default", models.GoogleSheetsConfig{SyncMode: models.SyncModeInterval}, time.Hour},
		{"daily later today", models.GoogleSheetsConfig{SyncMode: models.SyncModeDaily, SyncTime: "23:00"}, 8*time.Hour + 30*time.Minute},
		{"daily tomorrow", models.GoogleSheetsConfig{SyncMode: models.SyncModeDaily, SyncTime: "14:30"}, 24 * time.Hour},
		{"daily bad time", models.GoogleSheetsConfig{SyncMode: models.SyncModeDaily, SyncTime: "25h"}, 8*time.Hour + 30*time.Minute},
	}
	for _, c := range cases {
		if got := NextSyncDelay(now, &c.config); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSchedulerStaysIdleWhenDisabled(t *testing.T) {
	svc, _, _ := newTestServices(t)
	scheduler := NewReportScheduler(svc.Sheets, nil)

	if err := scheduler.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if scheduler.IsRunning() {
		t.Fatalf("scheduler should not run without auto-sync")
	}
	scheduler.Stop()

	status := scheduler.GetStatus()
	if status["enabled"] != false || status["sync_mode"] != models.SyncModeDaily {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestGenerateDailyReport(t *testing.T) {
	svc, _, _ := newTestServices(t)
	tea := mustProduct(t, svc, "Attaya", "50", 20)
	sugar := mustProduct(t, svc, "Sucre", "80", 20)

	paid := mustOrder(t, svc)
	svc.Orders.AddItem(paid.ID, tea.ID, 4, nil)
	if _, err := svc.Payments.AddPayment(paid.ID, PaymentInput{Amount: d("200")}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	open := mustOrder(t, svc)
	svc.Orders.AddItem(open.ID, sugar.ID, 1, nil)
	if _, err := svc.Replenishments.CreateReplenishment(ReplenishmentInput{ProductID: sugar.ID, Qty: 5, UnitCost: d("60")}); err != nil {
		t.Fatalf("replenish: %v", err)
	}

	report, err := svc.Sheets.GenerateDailyReport(testNow)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Date != "2024-12-15" || report.Orders != 2 || report.ItemsSold != 5 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if !report.Sales.Equal(d("280")) || !report.Collected.Equal(d("200")) || !report.Unpaid.Equal(d("80")) {
		t.Fatalf("unexpected amounts %+v", report)
	}
	if !report.AverageTicket.Equal(d("140")) || !report.Replenishments.Equal(d("300")) {
		t.Fatalf("unexpected ticket or replenishment %+v", report)
	}
	if len(report.Products) != 2 || report.Products[0].Product != "Attaya" {
		t.Fatalf("unexpected product detail %+v", report.Products)
	}

	row, err := report.Row()
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if len(row) != len(reportHeaders) || row[1] != "280.00" {
		t.Fatalf("unexpected row %v", row)
	}
	if lastColumn() != "J" {
		t.Fatalf("unexpected last column %s", lastColumn())
	}
}
