package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Reading is one timestamped measurement payload reported by an asset.
// Field names are not normalized across sensor firmware variants; the
// rules resolver absorbs that variability.
type Reading struct {
	AssetID   string         `json:"asset_id"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// Field returns the named raw field as a finite float64. The second
// return is false when the field is absent, null, non-numeric, NaN or
// infinite.
func (r Reading) Field(name string) (float64, bool) {
	if r.Fields == nil {
		return 0, false
	}
	raw, ok := r.Fields[name]
	if !ok || raw == nil {
		return 0, false
	}
	return coerceFloat(raw)
}

func coerceFloat(raw any) (float64, bool) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int32:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	default:
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
