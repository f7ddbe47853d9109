package util

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ExpandRange expands a range expression into individual values
// Supports formats like:
//   - "1-5" -> [1, 2, 3, 4, 5]
//   - "1,3,5" -> [1, 3, 5]
//   - "1-3,5,7-9" -> [1, 2, 3, 5, 7, 8, 9]
func ExpandRange(expr string) ([]int, error) {
	return ExpandRangeIn(expr, math.MinInt, math.MaxInt)
}

// ExpandRangeIn is ExpandRange with every value and range bound checked
// against [minVal, maxVal] before anything is expanded.
func ExpandRangeIn(expr string, minVal, maxVal int) ([]int, error) {
	if expr == "" {
		return nil, nil
	}

	var result []int
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			val, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			if val < minVal || val > maxVal {
				return nil, fmt.Errorf("value %d out of range %d-%d", val, minVal, maxVal)
			}
			result = append(result, val)
			continue
		}

		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid start value in range %s: %v", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid end value in range %s: %v", part, err)
		}
		if start > end {
			return nil, fmt.Errorf("start value %d greater than end value %d in range %s", start, end, part)
		}
		if start < minVal || end > maxVal {
			return nil, fmt.Errorf("range %s out of range %d-%d", part, minVal, maxVal)
		}
		for i := start; ; i++ {
			result = append(result, i)
			if i == end {
				break
			}
		}
	}

	sort.Ints(result)
	return dedupInts(result), nil
}

func dedupInts(sorted []int) []int {
	if len(sorted) <= 1 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// ExpandTargets expands an IPv4 address whose last octet may be a range,
// e.g. "10.0.0.10-12,20" -> [10.0.0.10 10.0.0.11 10.0.0.12 10.0.0.20].
// A plain address is normalized and returned alone.
func ExpandTargets(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	i := strings.LastIndexByte(expr, '.')
	if i < 0 || !strings.ContainsAny(expr[i+1:], "-,") {
		ip, err := NormalizeIPv4(expr)
		if err != nil {
			return nil, err
		}
		return []string{ip}, nil
	}

	prefix := expr[:i]
	if !IsValidIPv4(prefix + ".0") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, expr)
	}
	octets, err := ExpandRangeIn(expr[i+1:], 0, 255)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTarget, expr, err)
	}

	out := make([]string, 0, len(octets))
	for _, o := range octets {
		out = append(out, prefix+"."+strconv.Itoa(o))
	}
	return out, nil
}
