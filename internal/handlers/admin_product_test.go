package handlers

import (
	"reflect"
	"testing"
)

func TestValidateVariantAttributes(t *testing.T) {
	if err := validateVariantAttributes(nil); err == nil {
		t.Fatal("expected error for missing attributes")
	}
	if err := validateVariantAttributes(map[string]string{" ": "red"}); err == nil {
		t.Fatal("expected error for blank attribute key")
	}
	if err := validateVariantAttributes(map[string]string{"color": "  "}); err == nil {
		t.Fatal("expected error for blank attribute value")
	}
	if err := validateVariantAttributes(map[string]string{"color": "red", "size": "42"}); err != nil {
		t.Fatalf("expected valid attributes to pass, got %v", err)
	}
}

func TestBuildVariantsAssignsIDs(t *testing.T) {
	variants, err := buildVariants([]productVariantRequest{
		{Attributes: map[string]string{"color": "red"}, Price: 10, Stock: 5},
		{Attributes: map[string]string{"color": "blue"}, Price: 12, Stock: 0},
	})
	if err != nil {
		t.Fatalf("buildVariants returned error: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(variants))
	}
	for i, v := range variants {
		if v.ID.IsZero() {
			t.Fatalf("variant %d has no id", i)
		}
	}
	if variants[0].ID == variants[1].ID {
		t.Fatal("expected distinct variant ids")
	}
}

func TestBuildVariantsRejectsBadValues(t *testing.T) {
	if _, err := buildVariants([]productVariantRequest{
		{Attributes: map[string]string{"color": "red"}, Price: 0, Stock: 5},
	}); err == nil {
		t.Fatal("expected error for non-positive price")
	}
	if _, err := buildVariants([]productVariantRequest{
		{Attributes: map[string]string{"color": "red"}, Price: 10, Stock: -1},
	}); err == nil {
		t.Fatal("expected error for negative stock")
	}
}

func TestNormalizeCategories(t *testing.T) {
	got := normalizeCategories([]string{" Fruit ", "Fruit", "", "Dairy"})
	want := []string{"Fruit", "Dairy"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
