package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// KuaishouPhoto projects a photo object from page state. Gallery images are
// only collected when the photo has no playable stream.
func KuaishouPhoto(photo gjson.Result) Fields {
	f := Fields{
		Title:    FirstString(photo, "caption", "desc"),
		Cover:    Unescape(FirstString(photo, "coverUrl", "poster", "webpCoverUrl")),
		VideoURL: Unescape(FirstString(photo, "srcNoMark", "photoUrl")),
	}
	if f.VideoURL != "" {
		return f
	}

	f.Images = ImageList(FirstList(photo, "ext_photo_list", "images"), "cdn_image_url", "url")
	if len(f.Images) == 0 {
		f.Images = atlasImages(Unwrap(photo, "ext_params", "extParams").Get("atlas"))
	}
	return f
}

// atlasImages joins the atlas CDN host with each relative list entry.
func atlasImages(atlas gjson.Result) []string {
	cdn := strings.TrimSpace(atlas.Get("cdn").String())
	if cdn == "" {
		return nil
	}
	if !strings.HasPrefix(cdn, "http") {
		cdn = "https://" + cdn
	}
	cdn = strings.TrimSuffix(cdn, "/")

	var out []string
	for _, p := range ImageList(atlas.Get("list")) {
		if strings.HasPrefix(p, "http") {
			out = append(out, p)
			continue
		}
		out = append(out, cdn+"/"+strings.TrimPrefix(p, "/"))
	}
	return out
}

// KuaishouState finds the photo object for id: first a top-level entry
// carrying a "photo" member, then a bounded search by photo id.
func KuaishouState(state gjson.Result, id string) (gjson.Result, bool) {
	var photo gjson.Result
	state.ForEach(func(_, v gjson.Result) bool {
		if p := Member(v, "photo"); v.IsObject() && p.IsObject() {
			photo = p
			return false
		}
		return true
	})
	if photo.Exists() {
		return photo, true
	}
	if id == "" {
		return gjson.Result{}, false
	}
	return FindObjectFunc(state, DefaultBounds, func(obj gjson.Result) bool {
		return Member(obj, "photoId").String() == id || Member(obj, "photo_id").String() == id
	})
}

// KuaishouRenderedState finds the photo object in rendered state when no id is known.
func KuaishouRenderedState(state gjson.Result) (gjson.Result, bool) {
	b := Bounds{MaxDepth: 5, MaxItems: ShallowBounds.MaxItems}
	if photo, ok := FindObject(state, "caption", b); ok {
		return photo, true
	}
	return FindObject(state, "srcNoMark", b)
}
