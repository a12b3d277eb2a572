// Package models defines the records stored in the document store and the
// decoding rules applied when reading them back.
//
// Stored documents are plain JSON objects. Decoding goes through mapstructure
// using the json tags, so the same struct serves both directions. Numeric
// fields are coerced leniently (ints, floats and numeric strings are accepted,
// anything else becomes zero) while structural mismatches such as an object
// where an array is expected are reported as common.ErrMalformedRecord.
package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/mitchellh/mapstructure"
)

func decode(in any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numericHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return err
	}
	if err := d.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	return nil
}

func numericHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		return CoerceFloat(data), nil
	}
	return data, nil
}

// CoerceFloat accepts any numeric type or a numeric string. Everything else,
// including unparsable strings, yields 0.
func CoerceFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
