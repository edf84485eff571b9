package rpc

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits amounts are rounded to on the wire.
const AmountPlaces = 8

// Secret is a string param that is sent as-is but never written to trace logs.
type Secret string

const redacted = "********"

// encodeParams prepares call arguments for JSON encoding. Decimals, also when
// nested in maps and slices, become JSON numbers rounded half-even to AmountPlaces
// instead of the quoted strings decimal.Decimal marshals to by default.
func encodeParams(args []any, redact bool) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		params = append(params, encodeValue(arg, redact))
	}
	return params
}

func encodeValue(v any, redact bool) any {
	switch v := v.(type) {
	case decimal.Decimal:
		return encodeAmount(v)
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return encodeAmount(*v)
	case Secret:
		if redact {
			return redacted
		}
		return string(v)
	case map[string]decimal.Decimal:
		out := make(map[string]any, len(v))
		for key, amount := range v {
			out[key] = encodeAmount(amount)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = encodeValue(value, redact)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = encodeValue(value, redact)
		}
		return out
	default:
		return v
	}
}

func encodeAmount(d decimal.Decimal) json.Number {
	return json.Number(d.RoundBank(AmountPlaces).String())
}
