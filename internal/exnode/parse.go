package exnode

import (
	"encoding/json"
	"fmt"
	"strconv"

	"ratefeed/internal/fetcher"
)

// Key spellings observed across exchanger responses. Order matters: the
// first present key wins.
var (
	fromKeys    = []string{"from", "from_currency", "give", "send", "source", "currency_from"}
	toKeys      = []string{"to", "to_currency", "get", "receive", "target", "currency_to"}
	inKeys      = []string{"in", "in_amount"}
	outKeys     = []string{"out", "out_amount", "rate", "exchange_rate"}
	reserveKeys = []string{"reserve", "amount", "available"}
	minKeys     = []string{"min", "min_amount", "minamount"}
	maxKeys     = []string{"max", "max_amount", "maxamount"}
	paramKeys   = []string{"param", "params", "flags"}

	listKeys = []string{"rates", "data", "items", "directions", "exchanges", "result"}
)

// ParseRecords decodes an exnode JSON response into raw records. The
// payload is either a top-level array of rate objects or an object wrapping
// such an array under one of several known keys. Items that are not objects
// are dropped; items missing a currency pair are kept and left for the
// normalizer to count as skipped.
func ParseRecords(data []byte) ([]fetcher.RawRecord, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	items, err := extractItems(payload)
	if err != nil {
		return nil, err
	}

	records := make([]fetcher.RawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, fetcher.RawRecord{
			From:    firstString(obj, fromKeys),
			To:      firstString(obj, toKeys),
			In:      firstString(obj, inKeys),
			Out:     firstString(obj, outKeys),
			Reserve: firstString(obj, reserveKeys),
			Min:     firstString(obj, minKeys),
			Max:     firstString(obj, maxKeys),
			Param:   firstString(obj, paramKeys),
		})
	}

	return records, nil
}

func extractItems(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("no rate list found in response object")
	default:
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
}

func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch value := v.(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(value)
		case json.Number:
			return value.String()
		}
	}
	return ""
}
