// pkg/normalizer/coerce.go
package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// isNull determines if a raw value should be treated as NULL
func isNull(value interface{}) bool {
	if value == nil {
		return true
	}

	if f, ok := value.(float64); ok {
		return math.IsNaN(f) || math.IsInf(f, 0)
	}

	if s, ok := value.(string); ok {
		switch strings.TrimSpace(s) {
		case "", "null", "NULL", "nil", "NIL", "NaN":
			return true
		}
	}

	return false
}

// coerceInt converts a raw value to int64
func coerceInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty string")
		}
		// Integer columns often arrive as floats with a trailing
		// decimal ("10001.0"); parse through float and truncate.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("cannot convert string %q to integer", s)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", value)
	}
}

// coerceFloat converts a raw value to float64
func coerceFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty string")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to float", s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

// coerceText converts a raw value to a trimmed string
func coerceText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// Zipcodes and census identifiers arrive as floats from loosely
		// typed readers; render whole values without the decimal.
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerceBool converts a raw value to a boolean
func coerceBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "yes", "y", "1", "on":
			return true, nil
		case "false", "f", "no", "n", "0", "off", "":
			return false, nil
		default:
			return false, fmt.Errorf("cannot convert string %q to boolean", v)
		}
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}
