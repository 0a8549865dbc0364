package normalize

import "github.com/tidwall/gjson"

var douyinStateKeys = []string{"itemInfo", "videoData", "aweme"}

// DouyinItem projects an aweme item, as returned by the item-info endpoint,
// the hybrid resolver or the rendered page state.
func DouyinItem(item gjson.Result) Fields {
	f := Fields{
		Title: FirstString(item, "desc", "title"),
		Cover: FirstString(item, "cover", "cover.url_list.0", "video.cover.url_list.0"),
		Images: ImageList(
			FirstList(item, "images", "image_post_info.images"),
			"url_list.0", "url",
		),
	}
	if len(f.Images) > 0 {
		return f
	}

	video := item.Get("video")
	u := video.Get("play_addr.url_list.0").String()
	if u == "" {
		if best, ok := BestVariant(video.Get("bit_rate"), "bit_rate"); ok {
			u = best.Get("play_addr.url_list.0").String()
		}
	}
	f.VideoURL = StripWatermark(u)
	return f
}

// DouyinState locates the aweme item inside rendered page state.
func DouyinState(state gjson.Result) (gjson.Result, bool) {
	for _, key := range douyinStateKeys {
		v := Member(state, key)
		if !v.Exists() {
			continue
		}
		if inner := Member(v, "itemStruct"); inner.IsObject() {
			v = inner
		}
		if v.IsObject() && NonEmpty(v) {
			return v, true
		}
		break
	}
	return FindObject(state, "desc", Bounds{MaxDepth: 4, MaxItems: ShallowBounds.MaxItems})
}
