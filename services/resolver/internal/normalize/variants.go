package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// WatermarkMarker is the path segment of the watermark-serving play endpoint.
	WatermarkMarker = "playwm"
	// CleanMarker is the same endpoint without the watermark.
	CleanMarker = "play"
)

// StripWatermark rewrites the literal watermark marker to its clean counterpart.
// Nothing else in the URL is touched.
func StripWatermark(u string) string {
	return strings.ReplaceAll(u, WatermarkMarker, CleanMarker)
}

// BestVariant picks the entry of list with the highest numeric rateKey.
// Entries without the field count as zero; on ties the earliest entry wins.
func BestVariant(list gjson.Result, rateKey string) (gjson.Result, bool) {
	var best gjson.Result
	bestRate := 0.0
	found := false
	if !list.IsArray() {
		return best, false
	}
	list.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		rate := v.Get(rateKey).Float()
		if !found || rate > bestRate {
			best, bestRate, found = v, rate, true
		}
		return true
	})
	return best, found
}
