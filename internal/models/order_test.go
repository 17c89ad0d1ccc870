package models

import "testing"

func TestParseOrderStatusAcceptsAllStatuses(t *testing.T) {
	for _, value := range []string{"PENDING", "PROCESSING", "SENT", "DELIVERED", "CANCELLED"} {
		got, err := ParseOrderStatus(value)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", value, err)
		}
		if got != value {
			t.Fatalf("ParseOrderStatus(%q) = %q", value, got)
		}
	}
}

func TestParseOrderStatusNormalizes(t *testing.T) {
	got, err := ParseOrderStatus("  pending ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusPending {
		t.Fatalf("expected %q, got %q", OrderStatusPending, got)
	}
}

func TestParseOrderStatusRejectsUnknown(t *testing.T) {
	for _, value := range []string{"", "SHIPPED", "pending-ish"} {
		if _, err := ParseOrderStatus(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
