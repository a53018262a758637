// Package utils provides small helpers shared by the HTTP layer that carry
// no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// not a valid int. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a bounded page request.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ParsePage reads raw page and size values, applying def for missing or
// malformed input and clamping size to [1, max].
func ParsePage(rawPage, rawSize string, def, max int) Page {
	p := Page{Number: AtoiDefault(rawPage, 1), Size: AtoiDefault(rawSize, def)}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if max > 0 && p.Size > max {
		p.Size = max
	}
	return p
}

// TotalPages is ceil(total/size); 0 when size is not positive.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
