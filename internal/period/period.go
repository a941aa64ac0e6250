// Package period provides YYYYMM month arithmetic.
package period

import (
	"errors"
	"fmt"
)

// ErrInvalidMonth is returned when a value is not a YYYYMM month.
var ErrInvalidMonth = errors.New("invalid YYYYMM month")

// Valid reports whether m is a YYYYMM value with a month part in 1..12.
func Valid(m int) bool {
	if m < 100 {
		return false
	}
	mm := m % 100
	return mm >= 1 && mm <= 12
}

// Previous returns the month before m, wrapping January to December of the prior year.
func Previous(m int) int {
	year, month := m/100, m%100
	month--
	if month < 1 {
		month = 12
		year--
	}
	return year*100 + month
}

// Next returns the month after m, wrapping December to January of the next year.
func Next(m int) int {
	year, month := m/100, m%100
	month++
	if month > 12 {
		month = 1
		year++
	}
	return year*100 + month
}

// TrailingWindow returns the n consecutive months ending at and including target,
// in ascending order.
func TrailingWindow(target, n int) ([]int, error) {
	if !Valid(target) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, target)
	}
	if n < 1 {
		return nil, fmt.Errorf("window length must be positive, got %d", n)
	}

	months := make([]int, n)
	m := target
	for i := n - 1; i >= 0; i-- {
		months[i] = m
		m = Previous(m)
	}
	return months, nil
}

// Range returns every month in [start, end] inclusive, ascending.
// An end before start is an ErrInvalidMonth.
func Range(start, end int) ([]int, error) {
	if !Valid(start) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, start)
	}
	if !Valid(end) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, end)
	}
	if end < start {
		return nil, fmt.Errorf("%w: range end %d precedes start %d", ErrInvalidMonth, end, start)
	}

	var months []int
	for m := start; m <= end; m = Next(m) {
		months = append(months, m)
	}
	return months, nil
}
