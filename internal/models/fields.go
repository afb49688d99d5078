package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind is the value type of an extra column. It is written next to the
// column name in archive headers ("trades:int") so files decode without
// knowing which exchange produced them.
type FieldKind string

const (
	KindDecimal FieldKind = "decimal"
	KindInt     FieldKind = "int"
	KindString  FieldKind = "string"
)

// ParseFieldKind validates a kind read from an archive header.
func ParseFieldKind(s string) (FieldKind, error) {
	switch k := FieldKind(s); k {
	case KindDecimal, KindInt, KindString:
		return k, nil
	default:
		return "", fmt.Errorf("unknown field kind %q", s)
	}
}

// Field is one typed exchange-specific value.
type Field struct {
	Name string
	Kind FieldKind

	dec  decimal.Decimal
	num  int64
	text string
}

func DecimalField(name string, v decimal.Decimal) Field {
	return Field{Name: name, Kind: KindDecimal, dec: v}
}

func IntField(name string, v int64) Field {
	return Field{Name: name, Kind: KindInt, num: v}
}

func StringField(name, v string) Field {
	return Field{Name: name, Kind: KindString, text: v}
}

// ParseField decodes the textual form produced by Field.String.
func ParseField(name string, kind FieldKind, raw string) (Field, error) {
	switch kind {
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %w", name, err)
		}
		return DecimalField(name, d), nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %w", name, err)
		}
		return IntField(name, n), nil
	case KindString:
		return StringField(name, raw), nil
	default:
		return Field{}, fmt.Errorf("field %s: unknown kind %q", name, kind)
	}
}

// Numeric reports whether the field is summed during resampling.
func (f Field) Numeric() bool {
	return f.Kind == KindDecimal || f.Kind == KindInt
}

// Decimal returns the value as a decimal. Strings yield zero.
func (f Field) Decimal() decimal.Decimal {
	switch f.Kind {
	case KindDecimal:
		return f.dec
	case KindInt:
		return decimal.NewFromInt(f.num)
	default:
		return decimal.Zero
	}
}

func (f Field) Int() int64 { return f.num }

func (f Field) Text() string { return f.text }

// Add sums two numeric fields of the same kind.
func (f Field) Add(o Field) Field {
	switch f.Kind {
	case KindDecimal:
		return DecimalField(f.Name, f.dec.Add(o.Decimal()))
	case KindInt:
		return IntField(f.Name, f.num+o.num)
	default:
		return f
	}
}

// String is the archive representation of the value.
func (f Field) String() string {
	switch f.Kind {
	case KindDecimal:
		return f.dec.String()
	case KindInt:
		return strconv.FormatInt(f.num, 10)
	default:
		return f.text
	}
}

// Header is the archive column name, e.g. "quote_volume:decimal".
func (f Field) Header() string {
	return f.Name + ":" + string(f.Kind)
}

// ParseHeader splits "name:kind" into its parts.
func ParseHeader(h string) (string, FieldKind, error) {
	i := strings.LastIndexByte(h, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("extra column %q has no kind", h)
	}
	kind, err := ParseFieldKind(h[i+1:])
	if err != nil {
		return "", "", err
	}
	return h[:i], kind, nil
}

func (f Field) Equal(o Field) bool {
	if f.Name != o.Name || f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case KindDecimal:
		return f.dec.Equal(o.dec)
	case KindInt:
		return f.num == o.num
	default:
		return f.text == o.text
	}
}

// Extras is the ordered list of exchange-specific fields of a candle.
type Extras []Field

// Get looks a field up by name.
func (e Extras) Get(name string) (Field, bool) {
	for _, f := range e {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Headers returns the archive header of every field, in order.
func (e Extras) Headers() []string {
	out := make([]string, len(e))
	for i, f := range e {
		out[i] = f.Header()
	}
	return out
}

// SameLayout reports whether both lists have identical names and kinds.
func (e Extras) SameLayout(o Extras) bool {
	if len(e) != len(o) {
		return false
	}
	for i := range e {
		if e[i].Name != o[i].Name || e[i].Kind != o[i].Kind {
			return false
		}
	}
	return true
}

func (e Extras) Equal(o Extras) bool {
	if len(e) != len(o) {
		return false
	}
	for i := range e {
		if !e[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON renders extras as an object keeping declaration order.
func (e Extras) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		if f.Kind == KindString {
			text, err := json.Marshal(f.text)
			if err != nil {
				return nil, err
			}
			b.Write(text)
		} else {
			b.WriteString(f.String())
		}
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
