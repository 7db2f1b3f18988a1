package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReceipt(t *testing.T) {
	svc, _, _ := newTestServices(t)
	product := mustProduct(t, svc, "Bougies", "60", 10)
	order := mustOrder(t, svc)
	if _, err := svc.Orders.AddItem(order.ID, product.ID, 3, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.Payments.AddPayment(order.ID, PaymentInput{Amount: d("100")}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	png, err := svc.Receipts.QRCode(order.ID, 0)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("QR code is not a PNG")
	}

	stored, _ := svc.Orders.GetOrder(order.ID)
	payload := svc.Receipts.QRPayload(stored)
	if payload != "Boutique Test|CMD-2024/12/15-14:30-001|180.00|80.00" {
		t.Fatalf("unexpected QR payload %q", payload)
	}

	text, err := svc.Receipts.ReceiptText(order.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	for _, want := range []string{"Boutique Test", "CMD-2024/12/15-14:30-001", "Bougies", "180 GMD", "80 GMD"} {
		if !strings.Contains(text, want) {
			t.Errorf("receipt misses %q:\n%s", want, text)
		}
	}

	if _, err := svc.Receipts.QRCode(999, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
