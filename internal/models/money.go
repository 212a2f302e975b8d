package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is a fixed-point currency amount with two decimal places. It is
// stored as BSON Decimal128 and rendered as a plain JSON number, so money
// fields never go through float64 arithmetic.
type Money struct {
	dec decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{dec: d.Round(2)}
}

func MoneyFromInt(units int64) Money {
	return Money{dec: decimal.NewFromInt(units)}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	return NewMoney(d), nil
}

func (m Money) Add(other Money) Money {
	return Money{dec: m.dec.Add(other.dec)}
}

// MulQty multiplies by an integer quantity, rounding to two decimal places.
func (m Money) MulQty(qty int) Money {
	return Money{dec: m.dec.Mul(decimal.NewFromInt(int64(qty))).Round(2)}
}

// MulRate applies a fractional rate such as a tax percentage, rounding to
// two decimal places.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{dec: m.dec.Mul(rate).Round(2)}
}

func (m Money) Equal(other Money) bool {
	return m.dec.Equal(other.dec)
}

func (m Money) LessThan(other Money) bool {
	return m.dec.LessThan(other.dec)
}

func (m Money) IsPositive() bool {
	return m.dec.IsPositive()
}

func (m Money) IsZero() bool {
	return m.dec.IsZero()
}

func (m Money) Decimal() decimal.Decimal {
	return m.dec
}

// MinorUnits returns the amount in minor currency units (1416.00 becomes
// 141600), the form payment providers report charges in.
func (m Money) MinorUnits() int64 {
	return m.dec.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

func (m Money) String() string {
	return m.dec.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.dec.StringFixed(2)), nil
}

// UnmarshalJSON accepts both a bare number and a quoted string, since some
// clients send prices as strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid money value %q: %w", raw, err)
	}
	m.dec = d.Round(2)
	return nil
}

// MarshalBSONValue always stores the amount as Decimal128, keeping new
// writes exact even when legacy documents used a double.
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(m.dec.StringFixed(2))
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue accepts Decimal128, double and integer BSON types,
// allowing legacy documents to be decoded without failing the entire request.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null:
		*m = Money{}
		return nil
	case bsontype.Decimal128:
		var d128 primitive.Decimal128
		if err := bson.UnmarshalValue(t, data, &d128); err != nil {
			return err
		}
		d, err := decimal.NewFromString(d128.String())
		if err != nil {
			return err
		}
		m.dec = d.Round(2)
		return nil
	case bsontype.Double:
		var f float64
		if err := bson.UnmarshalValue(t, data, &f); err != nil {
			return err
		}
		m.dec = decimal.NewFromFloat(f).Round(2)
		return nil
	case bsontype.Int32:
		var v int32
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		m.dec = decimal.NewFromInt(int64(v))
		return nil
	case bsontype.Int64:
		var v int64
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		m.dec = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into Money", t)
	}
}
