package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Caller is the call contract the rest of the program depends on.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (json.RawMessage, error)
}

// CallFor calls method and decodes the result into T. Amount fields should be
// decimal.Decimal so that no precision is lost.
func CallFor[T any](ctx context.Context, caller Caller, method string, args ...any) (T, error) {
	var out T
	raw, err := caller.Call(ctx, method, args...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return out, nil
}

// DecodeValue decodes an arbitrary JSON value into maps, slices, strings,
// bools and nils, with every number as a decimal.Decimal.
func DecodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return toDecimals(v)
}

func toDecimals(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case map[string]any:
		for key, value := range v {
			converted, err := toDecimals(value)
			if err != nil {
				return nil, err
			}
			v[key] = converted
		}
		return v, nil
	case []any:
		for i, value := range v {
			converted, err := toDecimals(value)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	default:
		return v, nil
	}
}
