package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClampedIntQuery reads an integer query parameter, falling back to def when
// missing or malformed, and clamps it to [lo, hi].
func ClampedIntQuery(c echo.Context, name string, def, lo, hi int) int {
	value := def
	if raw := strings.TrimSpace(c.QueryParam(name)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			value = n
		}
	}
	return min(max(value, lo), hi)
}

// ParseOptionalFloat parses a decimal form value. Empty, invalid or non-finite
// input is nil.
func ParseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
