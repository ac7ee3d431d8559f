package domain

import (
	"math"
	"strconv"
	"strings"
)

// Limit bounds used by the ingestion boundary and the retrieval engine.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	DefaultRelatedLimit = 5
	MaxRelatedLimit     = 50

	DefaultMinScore = 0.8
)

// ClampLimit coerces n into [1,max]. Zero means "unset" and yields def.
// It never fails.
func ClampLimit(n, def, maxLimit int) int {
	if n == 0 {
		n = def
	}
	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// ParseLimit parses a user-supplied limit and clamps it like ClampLimit.
// Non-numeric input yields def.
func ParseLimit(raw string, def, maxLimit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	return ClampLimit(n, def, maxLimit)
}

// ClampScore coerces a relevance floor into [0,1]. NaN yields DefaultMinScore.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) {
		return DefaultMinScore
	}
	return math.Max(0, math.Min(1, s))
}
