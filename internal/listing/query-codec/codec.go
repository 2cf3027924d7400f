// Package querycodec converts between a page's FilterState and its URL query string.
package querycodec

import (
	"net/url"
	"strconv"
	"strings"

	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

// Decode parses a raw query string (with or without a leading "?"). It never fails:
// pairs with malformed escapes are skipped, keys the page does not support are
// ignored and a page that is not a positive integer becomes 1. When a key repeats
// the last occurrence wins.
func Decode(s schema.Schema, rawQuery string) models.FilterState {
	state := models.DefaultFilterState()

	for _, pair := range strings.Split(strings.TrimPrefix(rawQuery, "?"), "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}

		field := models.Field(key)
		if field == models.FieldPage {
			state.Page = parsePage(value)
			continue
		}
		if s.Supports(field) {
			state.Set(field, value)
		}
	}
	return state
}

func parsePage(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Encode renders state in the page's field order, omitting empty fields and page 1.
// Spaces are written as %20.
func Encode(s schema.Schema, state models.FilterState) string {
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escape(value))
	}

	for _, f := range s.Fields {
		if v := state.Get(f); v != "" {
			write(string(f), v)
		}
	}
	if state.Page > 1 {
		write(string(models.FieldPage), strconv.Itoa(state.Page))
	}
	return b.String()
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Location joins a path and an encoded query, dropping the "?" when the query is empty.
func Location(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
