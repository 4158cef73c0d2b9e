// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageBounds converts 1-based page/size into slice bounds over a list of
// length total. Out-of-range pages yield an empty window (lo == hi).
// size is clamped to [1, maxSize]; page defaults to 1.
func PageBounds(total, page, size, maxSize int) (lo, hi int) {
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	if page < 1 {
		page = 1
	}
	lo = (page - 1) * size
	if lo > total {
		lo = total
	}
	hi = lo + size
	if hi > total {
		hi = total
	}
	return lo, hi
}
