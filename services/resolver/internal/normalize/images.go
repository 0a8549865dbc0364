package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultImageKeys are tried, in order, on image entries that are objects.
var DefaultImageKeys = []string{"url", "url_default", "urlDefault", "original", "cdn_image_url", "url_list.0"}

// ImageList accepts a list of plain strings, of objects, or a mix of both,
// and returns the resolvable URLs in order. Empty and unresolvable entries are dropped.
func ImageList(list gjson.Result, keys ...string) []string {
	if !list.IsArray() {
		return nil
	}
	if len(keys) == 0 {
		keys = DefaultImageKeys
	}
	var out []string
	list.ForEach(func(_, item gjson.Result) bool {
		var u string
		switch {
		case item.Type == gjson.String:
			u = item.Str
		case item.IsObject():
			u = FirstString(item, keys...)
		}
		if u = Unescape(strings.TrimSpace(u)); u != "" {
			out = append(out, u)
		}
		return true
	})
	return out
}

// Unescape undoes the / escaping left in URLs scraped from inline scripts.
func Unescape(s string) string {
	return strings.ReplaceAll(s, `\u002F`, "/")
}

// Dedup keeps the first occurrence of every non-empty string.
func Dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
