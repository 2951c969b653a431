package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToBool converts various types to boolean, treating anything
// unrecognised as false. Used for env flags and DB TINYINT columns.
func ToBool(val interface{}) bool {
	b, err := ParseBool(val)
	return err == nil && b
}

// ParseBool is the strict variant of ToBool: it reports an error for
// values that have no boolean reading.
func ParseBool(val interface{}) (bool, error) {
	switch v := val.(type) {
	case nil:
		return false, fmt.Errorf("cannot convert nil to bool")
	case bool:
		return v, nil
	case int:
		return intToBool(int64(v))
	case int32:
		return intToBool(int64(v))
	case int64:
		return intToBool(v)
	case float64:
		if v != float64(int64(v)) {
			return false, fmt.Errorf("cannot convert %v to bool", v)
		}
		return intToBool(int64(v))
	case []byte:
		return parseBoolString(string(v))
	case string:
		return parseBoolString(v)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", val)
	}
}

func intToBool(v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("cannot convert %d to bool", v)
}

func parseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "t":
		return true, nil
	case "0", "false", "no", "off", "f":
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return false, fmt.Errorf("cannot convert %q to bool", s)
}
