package api

import (
	"encoding/json/v2"
	"fmt"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// FlexTime is a time type that can unmarshal from either:
// - RFC3339 string: "2024-01-15T10:30:00Z"
// - Date string: "2024-01-15" (midnight UTC)
// - Epoch milliseconds (number): 1705314600000
// - Epoch milliseconds (string): "1705314600000"
//
// It always marshals to RFC3339 format for consistency.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON handles flexible time parsing from JSON.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ft.Time = t
			return nil
		}
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			ft.Time = t
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			ft.Time = time.UnixMilli(ms)
			return nil
		}
		return fmt.Errorf("cannot parse time string: %s", s)
	}

	// Some JSON encoders use float for large numbers.
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		ft.Time = time.UnixMilli(int64(ms))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
}

// MarshalJSON outputs time in RFC3339 format.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Format(time.RFC3339))
}

// Schema documents both accepted encodings so huma's request validation lets
// either through.
func (FlexTime) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "RFC3339 timestamp, YYYY-MM-DD date or epoch milliseconds",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString},
			{Type: huma.TypeInteger},
		},
	}
}

// timePtr returns nil for a nil FlexTime.
func (ft *FlexTime) timePtr() *time.Time {
	if ft == nil {
		return nil
	}
	t := ft.Time
	return &t
}
