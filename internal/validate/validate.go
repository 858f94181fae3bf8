package validate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reUser = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)
	reRole = regexp.MustCompile(`^(admin|user)$`)
)

// SKU trims the identifier; empty means missing.
func SKU(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Quantity coerces a loosely typed request value to a non-negative count.
// Numbers are truncated, numeric strings parsed, anything else is 0.
func Quantity(v any) int {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Truthy reads a direction flag sent as bool, number or string.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	default:
		return false
	}
}

// Username trims and checks the allowed characters.
func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUser.MatchString(s)
}

// Role maps unknown roles to user.
func Role(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if reRole.MatchString(s) {
		return s
	}
	return "user"
}
