package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCandleValidate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		candle  Candle
		wantErr bool
	}{
		{"valid", NewCandle(ts, d("10"), d("12"), d("9"), d("11"), d("5")), false},
		{"flat", NewCandle(ts, d("10"), d("10"), d("10"), d("10"), d("0")), false},
		{"high below close", NewCandle(ts, d("10"), d("10.5"), d("9"), d("11"), d("5")), true},
		{"low above open", NewCandle(ts, d("10"), d("12"), d("10.1"), d("11"), d("5")), true},
		{"negative volume", NewCandle(ts, d("10"), d("12"), d("9"), d("11"), d("-1")), true},
		{"not minute aligned", NewCandle(ts.Add(30*time.Second), d("10"), d("12"), d("9"), d("11"), d("5")), true},
		{"zero timestamp", Candle{Open: d("1"), High: d("1"), Low: d("1"), Close: d("1")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candle.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCandleEqualComparesDecimalsNumerically(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	a := NewCandle(ts, d("1.50"), d("2"), d("1"), d("1.5"), d("3"), IntField("trades", 4))
	b := NewCandle(ts, d("1.5"), d("2.0"), d("1.00"), d("1.5"), d("3"), IntField("trades", 4))

	if !a.Equal(b) {
		t.Error("Expected candles with equal decimal values to be equal")
	}

	c := NewCandle(ts, d("1.5"), d("2"), d("1"), d("1.5"), d("3"), IntField("trades", 5))
	if a.Equal(c) {
		t.Error("Expected candles with different extras to differ")
	}
}

func TestSortedUnique(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(mins ...int) []Candle {
		var out []Candle
		for _, m := range mins {
			out = append(out, NewCandle(base.Add(time.Duration(m)*time.Minute), d("1"), d("1"), d("1"), d("1"), d("1")))
		}
		return out
	}

	if !SortedUnique(mk(0, 1, 5)) {
		t.Error("Expected ascending candles to be sorted")
	}
	if SortedUnique(mk(0, 1, 1)) {
		t.Error("Expected duplicate timestamps to be rejected")
	}
	if SortedUnique(mk(2, 1)) {
		t.Error("Expected descending candles to be rejected")
	}
	if !SortedUnique(nil) {
		t.Error("Expected empty slice to be sorted")
	}
}

func TestExtrasJSON(t *testing.T) {
	extras := Extras{
		DecimalField("quote_volume", d("12.5")),
		IntField("trades", 7),
		StringField("note", `a"b`),
	}

	raw, err := json.Marshal(extras)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"quote_volume":12.5,"trades":7,"note":"a\"b"}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}

func TestFieldHeaderRoundTrip(t *testing.T) {
	fields := []Field{
		DecimalField("quote_volume", d("0.000123")),
		IntField("trades", -3),
		StringField("status", "ok"),
	}

	for _, f := range fields {
		t.Run(f.Name, func(t *testing.T) {
			name, kind, err := ParseHeader(f.Header())
			if err != nil {
				t.Fatalf("ParseHeader failed: %v", err)
			}
			got, err := ParseField(name, kind, f.String())
			if err != nil {
				t.Fatalf("ParseField failed: %v", err)
			}
			if !got.Equal(f) {
				t.Errorf("Expected %v, got %v", f, got)
			}
		})
	}

	if _, _, err := ParseHeader("trades"); err == nil {
		t.Error("Expected header without kind to fail")
	}
	if _, _, err := ParseHeader("trades:float"); err == nil {
		t.Error("Expected unknown kind to fail")
	}
}

func TestFieldAdd(t *testing.T) {
	sum := DecimalField("qv", d("1.1")).Add(DecimalField("qv", d("2.2")))
	if !sum.Decimal().Equal(d("3.3")) {
		t.Errorf("Expected 3.3, got %s", sum)
	}

	n := IntField("trades", 2).Add(IntField("trades", 3))
	if n.Int() != 5 {
		t.Errorf("Expected 5, got %d", n.Int())
	}

	if StringField("s", "x").Numeric() {
		t.Error("Expected string field to be non numeric")
	}
}
