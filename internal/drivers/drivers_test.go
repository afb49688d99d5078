package drivers

import (
	"testing"

	"github.com/navid-fn/marketarchive/internal/crawler"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		sub       string
		namespace string
	}{
		{"bitstamp", "", "bitstamp"},
		{"Bitget", "", "bitget-umcbl"},
		{"bitget", "cmcbl", "bitget-cmcbl"},
		{"binance", "", "binance"},
		{"binance", "um", "binance-um"},
	}

	for _, tt := range tests {
		ex, err := New(tt.name, crawler.Options{Subcategory: tt.sub})
		if err != nil {
			t.Fatalf("New(%s, %s) failed: %v", tt.name, tt.sub, err)
		}
		if ex.Namespace() != tt.namespace {
			t.Errorf("New(%s, %s): expected namespace %s, got %s", tt.name, tt.sub, tt.namespace, ex.Namespace())
		}
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("mtgox", crawler.Options{}); err == nil {
		t.Error("Expected error for unknown exchange")
	}
	if _, err := New("bitstamp", crawler.Options{Subcategory: "um"}); err == nil {
		t.Error("Expected error for bad subcategory")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	want := []string{"binance", "bitget", "bitstamp"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
		}
	}
}
