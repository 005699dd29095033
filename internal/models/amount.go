// internal/models/amount.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Amount is an unsigned arbitrary-precision integer used for every monetary
// value in the ledger. Amounts never go negative: Sub reports an error on
// underflow instead of wrapping, and accumulation cannot overflow. Stored in
// the database as a decimal string (numeric column on PostgreSQL).
type Amount struct {
	i *big.Int
}

var errNegativeAmount = errors.New("amount cannot be negative")

func NewAmount(v uint64) Amount {
	return Amount{i: new(big.Int).SetUint64(v)}
}

func AmountFromString(s string) (Amount, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if i.Sign() < 0 {
		return Amount{}, errNegativeAmount
	}
	return Amount{i: i}, nil
}

func ZeroAmount() Amount {
	return Amount{i: new(big.Int)}
}

func (a Amount) bigInt() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.bigInt(), b.bigInt())}
}

// Sub returns a-b, or an error when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := new(big.Int).Sub(a.bigInt(), b.bigInt())
	if r.Sign() < 0 {
		return Amount{}, errNegativeAmount
	}
	return Amount{i: r}, nil
}

// MulFrac returns a*num/den with truncating integer division.
func (a Amount) MulFrac(num, den uint64) Amount {
	r := new(big.Int).Mul(a.bigInt(), new(big.Int).SetUint64(num))
	r.Quo(r, new(big.Int).SetUint64(den))
	return Amount{i: r}
}

func (a Amount) Cmp(b Amount) int {
	return a.bigInt().Cmp(b.bigInt())
}

func (a Amount) IsZero() bool {
	return a.bigInt().Sign() == 0
}

func (a Amount) String() string {
	return a.bigInt().String()
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		a.i = new(big.Int)
		return nil
	case int64:
		if v < 0 {
			return errNegativeAmount
		}
		a.i = new(big.Int).SetInt64(v)
		return nil
	case []byte:
		parsed, err := AmountFromString(string(v))
		if err != nil {
			return err
		}
		a.i = parsed.i
		return nil
	case string:
		parsed, err := AmountFromString(v)
		if err != nil {
			return err
		}
		a.i = parsed.i
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", value)
	}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Accept bare numbers too; clients send amounts as strings normally.
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		s = n.String()
	}
	parsed, err := AmountFromString(s)
	if err != nil {
		return err
	}
	a.i = parsed.i
	return nil
}

// GormDataType keeps migrations portable between postgres and sqlite.
func (Amount) GormDataType() string {
	return "numeric(78,0)"
}
