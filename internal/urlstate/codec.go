// Package urlstate serializes the list view state (filters, search, sort and
// pagination) to and from URL query parameters.
package urlstate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rebelice/lazyadmin/internal/models"
)

const upperhex = "0123456789ABCDEF"

// EncodeFilters serializes filters as JSON and percent-encodes the result the
// way encodeURIComponent does.
func EncodeFilters(filters []models.FilterValue) (string, error) {
	if filters == nil {
		filters = []models.FilterValue{}
	}
	data, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("failed to encode filters: %w", err)
	}
	return escapeComponent(string(data)), nil
}

// DecodeFilters reverses EncodeFilters. It fails on malformed input; callers
// reading untrusted URLs should go through ParseQuery instead.
func DecodeFilters(s string) ([]models.FilterValue, error) {
	raw, err := url.PathUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape filters: %w", err)
	}

	var filters []models.FilterValue
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		return nil, fmt.Errorf("failed to parse filters: %w", err)
	}
	return filters, nil
}

// escapeComponent escapes everything except A-Z a-z 0-9 and -_.!~*'()
func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
