package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"enclave-sdk/internal/utils"
)

var jsonNull = []byte("null")

// unquote returns the raw text of a JSON string or number. ok is false for null.
func unquote(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return "", false, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(b), true, nil
}

// FlexUint64 accepts a JSON number or a decimal string. The backend has
// emitted local_deposit_id both ways.
type FlexUint64 struct {
	Value uint64
	Valid bool
}

func (f *FlexUint64) UnmarshalJSON(b []byte) error {
	s, ok, err := unquote(b)
	if err != nil {
		return err
	}
	if !ok {
		*f = FlexUint64{}
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned integer %q: %w", s, err)
	}
	*f = FlexUint64{Value: v, Valid: true}
	return nil
}

func (f FlexUint64) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.FormatUint(f.Value, 10)), nil
}

// Ptr returns nil when the value was absent.
func (f FlexUint64) Ptr() *uint64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FlexAmount is a base-unit amount sent as a decimal string, a JSON number
// (possibly in exponent form) or 0x hex.
type FlexAmount struct {
	Int *big.Int
}

func (f *FlexAmount) UnmarshalJSON(b []byte) error {
	s, ok, err := unquote(b)
	if err != nil {
		return err
	}
	if !ok {
		f.Int = nil
		return nil
	}
	v, err := parseFlexAmount(s)
	if err != nil {
		return err
	}
	f.Int = v
	return nil
}

func (f FlexAmount) MarshalJSON() ([]byte, error) {
	if f.Int == nil {
		return jsonNull, nil
	}
	return json.Marshal(f.Int.String())
}

// OrZero never returns nil.
func (f FlexAmount) OrZero() *big.Int {
	if f.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.Int)
}

func parseFlexAmount(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return utils.ParseHexAmount(s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: fractional base units", s)
	}
	return d.BigInt(), nil
}

// FlexStringList decodes allocation_ids, which is a JSON column on the
// backend and arrives either as an array or as a JSON array inside a string.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*f = nil
		return nil
	}
	var list []string
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			*f = nil
			return nil
		}
		if err := json.Unmarshal([]byte(inner), &list); err != nil {
			return fmt.Errorf("invalid allocation id list %q: %w", inner, err)
		}
	} else if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

// FlexTime accepts RFC 3339 strings, unix seconds and null.
type FlexTime struct {
	time.Time
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	s, ok, err := unquote(b)
	if err != nil {
		return err
	}
	if !ok {
		f.Time = time.Time{}
		return nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	f.Time = t
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return jsonNull, nil
	}
	return json.Marshal(f.Time.Format(time.RFC3339Nano))
}
