package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// XHSVideoHost serves origin video keys directly.
const XHSVideoHost = "https://sns-video-bd.xhscdn.com/"

var (
	xhsCodecs    = []string{"h264", "h265", "av1"}
	xhsImageKeys = []string{"urlDefault", "url", "original"}
)

// XiaohongshuNote projects a note. Notes carry their cover frames in
// imageList even for videos, so images are kept only when no video resolves.
func XiaohongshuNote(note gjson.Result) Fields {
	images := ImageList(FirstList(note, "imageList", "images"), xhsImageKeys...)
	f := Fields{
		Title:    FirstString(note, "title", "desc"),
		VideoURL: xhsVideo(note.Get("video")),
	}
	if len(images) > 0 {
		f.Cover = images[0]
	}
	if f.VideoURL == "" {
		f.Images = images
	}
	return f
}

func xhsVideo(video gjson.Result) string {
	if !video.IsObject() {
		return ""
	}
	stream := video.Get("media.stream")
	for _, codec := range xhsCodecs {
		var u string
		stream.Get(codec).ForEach(func(_, s gjson.Result) bool {
			u = FirstString(s, "masterUrl", "url")
			return u == ""
		})
		if u != "" {
			return Unescape(u)
		}
	}
	if key := strings.TrimSpace(video.Get("consumer.originVideoKey").String()); key != "" {
		return XHSVideoHost + key
	}
	if key := strings.TrimSpace(video.Get("originVideoKey").String()); key != "" {
		return XHSVideoHost + key
	}
	return ""
}

// XiaohongshuState locates the note for id in SSR state: the note detail
// maps first, then a bounded search for an object carrying the id and note content.
func XiaohongshuState(state gjson.Result, id string) (gjson.Result, bool) {
	for _, root := range []string{"note", "noteDetail"} {
		detail := Member(Member(Member(state, root), "noteDetailMap"), id)
		if !detail.IsObject() {
			continue
		}
		if note := Member(detail, "note"); note.IsObject() && NonEmpty(note) {
			return note, true
		}
		if NonEmpty(detail) {
			return detail, true
		}
	}

	return FindObjectFunc(state, DefaultBounds, func(obj gjson.Result) bool {
		if Member(obj, "noteId").String() != id && Member(obj, "id").String() != id {
			return false
		}
		return HasKey(obj, "title") || HasKey(obj, "desc") || HasKey(obj, "imageList")
	})
}

// XiaohongshuRenderedState locates the note in live page state, where the
// note id is not known up front: noteData.data first, then the first detail map entry.
func XiaohongshuRenderedState(state gjson.Result) (gjson.Result, bool) {
	if note := state.Get("noteData.data"); note.IsObject() && NonEmpty(note) {
		return note, true
	}
	var note gjson.Result
	Member(state, "note").Get("noteDetailMap").ForEach(func(_, v gjson.Result) bool {
		note = Unwrap(v, "note")
		return false
	})
	if note.IsObject() && NonEmpty(note) {
		return note, true
	}
	return gjson.Result{}, false
}
