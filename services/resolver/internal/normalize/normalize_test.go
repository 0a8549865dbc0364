package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

func TestFirstStringSkipsEmptyValues(t *testing.T) {
	obj := gjson.Parse(`{"title":"","desc":"  ","work_title":"caption","n":5}`)
	assert.Equal(t, "caption", FirstString(obj, "title", "desc", "work_title"))
	assert.Equal(t, "", FirstString(obj, "n", "missing"))
}

func TestImageListHeterogeneous(t *testing.T) {
	list := gjson.Parse(`["https://a/1.jpg",{"url":"https://a/2.jpg"},{"url":""},{"url_default":"https://a/3.jpg"},7,"",{"other":"x"}]`)
	assert.Equal(t,
		[]string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"},
		ImageList(list),
	)
	assert.Nil(t, ImageList(gjson.Parse(`{"url":"x"}`)))
}

func TestImageListUnescapesInlineScriptURLs(t *testing.T) {
	list := gjson.Parse(`["https:\\u002F\\u002Fcdn\\u002Fa.jpg"]`)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, ImageList(list))
}

func TestBestVariant(t *testing.T) {
	list := gjson.Parse(`[
		{"bit_rate":240,"play_addr":{"url_list":["u240"]}},
		{"bit_rate":720,"play_addr":{"url_list":["u720"]}},
		{"bit_rate":480,"play_addr":{"url_list":["u480"]}}
	]`)
	best, ok := BestVariant(list, "bit_rate")
	require.True(t, ok)
	assert.Equal(t, "u720", best.Get("play_addr.url_list.0").String())

	tie := gjson.Parse(`[{"bit_rate":720,"id":"first"},{"bit_rate":720,"id":"second"}]`)
	best, ok = BestVariant(tie, "bit_rate")
	require.True(t, ok)
	assert.Equal(t, "first", best.Get("id").String())

	missing := gjson.Parse(`[{"id":"a"},{"bit_rate":1,"id":"b"}]`)
	best, _ = BestVariant(missing, "bit_rate")
	assert.Equal(t, "b", best.Get("id").String())

	_, ok = BestVariant(gjson.Parse(`[]`), "bit_rate")
	assert.False(t, ok)
}

func TestStripWatermark(t *testing.T) {
	assert.Equal(t,
		"https://aweme.snssdk.com/aweme/v1/play/?video_id=v0",
		StripWatermark("https://aweme.snssdk.com/aweme/v1/playwm/?video_id=v0"),
	)
	assert.Equal(t, "https://x/play/a", StripWatermark("https://x/play/a"))
}

func TestBuild(t *testing.T) {
	t.Run("images win over video", func(t *testing.T) {
		res, err := Build(media.Douyin, Fields{VideoURL: "https://v", Images: []string{"https://a", " ", "https://b"}})
		require.NoError(t, err)
		assert.Equal(t, media.Images, res.Type)
		assert.Equal(t, []string{"https://a", "https://b"}, res.Images)
		assert.Empty(t, res.VideoURL)
		assert.Equal(t, "https://a", res.Cover)
		assert.Equal(t, "Douyin gallery", res.Title)
		assert.True(t, res.Valid())
	})

	t.Run("video", func(t *testing.T) {
		res, err := Build(media.Kuaishou, Fields{Title: "clip", Cover: "https://c", VideoURL: "https://v"})
		require.NoError(t, err)
		assert.Equal(t, media.Video, res.Type)
		assert.Equal(t, "https://v", res.VideoURL)
		assert.Empty(t, res.Images)
		assert.Equal(t, "clip", res.Title)
		assert.True(t, res.Valid())
	})

	t.Run("title only is no media", func(t *testing.T) {
		_, err := Build(media.Xiaohongshu, Fields{Title: "caption"})
		assert.ErrorIs(t, err, ErrNoMedia)
	})

	t.Run("placeholders", func(t *testing.T) {
		cases := map[media.Platform]string{
			media.Douyin:      "Douyin video",
			media.Kuaishou:    "Kuaishou video",
			media.Xiaohongshu: "Xiaohongshu note",
			media.Bilibili:    "Untitled",
		}
		for p, want := range cases {
			res, err := Build(p, Fields{VideoURL: "https://v"})
			require.NoError(t, err)
			assert.Equal(t, want, res.Title, p)
		}
	})
}

func TestPearktrueSchemaImageObjects(t *testing.T) {
	data := gjson.Parse(`{"title":"t","images":[{"url":"a"},{"url":""},{"url":"b"}]}`)
	res, err := Build(media.Douyin, PearktrueSchema.Extract(data))
	require.NoError(t, err)
	assert.Equal(t, media.Images, res.Type)
	assert.Equal(t, []string{"a", "b"}, res.Images)
	assert.Equal(t, "a", res.Cover)
}

func TestDouyinItem(t *testing.T) {
	t.Run("play address", func(t *testing.T) {
		item := gjson.Parse(`{"desc":"hello","video":{"cover":{"url_list":["https://c"]},"play_addr":{"url_list":["https://v/playwm/?id=1"]}}}`)
		f := DouyinItem(item)
		assert.Equal(t, "hello", f.Title)
		assert.Equal(t, "https://c", f.Cover)
		assert.Equal(t, "https://v/play/?id=1", f.VideoURL)
	})

	t.Run("bitrate fallback", func(t *testing.T) {
		item := gjson.Parse(`{"video":{"bit_rate":[
			{"bit_rate":240,"play_addr":{"url_list":["https://v/playwm/240"]}},
			{"bit_rate":720,"play_addr":{"url_list":["https://v/playwm/720"]}},
			{"bit_rate":480,"play_addr":{"url_list":["https://v/playwm/480"]}}]}}`)
		assert.Equal(t, "https://v/play/720", DouyinItem(item).VideoURL)
	})

	t.Run("gallery", func(t *testing.T) {
		item := gjson.Parse(`{"desc":"","images":[{"url_list":["https://i/1"]},{"url_list":[]},{"url_list":["https://i/2"]}],"video":{"play_addr":{"url_list":["https://v"]}}}`)
		res, err := Build(media.Douyin, DouyinItem(item))
		require.NoError(t, err)
		assert.Equal(t, media.Images, res.Type)
		assert.Equal(t, []string{"https://i/1", "https://i/2"}, res.Images)
		assert.Equal(t, "Douyin gallery", res.Title)
	})
}

func TestDouyinState(t *testing.T) {
	state := gjson.Parse(`{"itemInfo":{"itemStruct":{"desc":"from struct"}}}`)
	item, ok := DouyinState(state)
	require.True(t, ok)
	assert.Equal(t, "from struct", item.Get("desc").String())

	state = gjson.Parse(`{"app":{"page":{"detail":{"desc":"deep","video":{}}}}}`)
	item, ok = DouyinState(state)
	require.True(t, ok)
	assert.Equal(t, "deep", item.Get("desc").String())
}

func TestXiaohongshuState(t *testing.T) {
	const id = "64b0c0ffee0000000000abcd"

	t.Run("detail map", func(t *testing.T) {
		state := gjson.Parse(`{"note":{"noteDetailMap":{"` + id + `":{"note":{"title":"trip","imageList":[{"urlDefault":"https://img/1"},{"url":"https://img/2"}]}}}}}`)
		note, ok := XiaohongshuState(state, id)
		require.True(t, ok)
		res, err := Build(media.Xiaohongshu, XiaohongshuNote(note))
		require.NoError(t, err)
		assert.Equal(t, media.Images, res.Type)
		assert.Equal(t, []string{"https://img/1", "https://img/2"}, res.Images)
		assert.Equal(t, "https://img/1", res.Cover)
	})

	t.Run("bounded search", func(t *testing.T) {
		state := gjson.Parse(`{"feed":[{"id":"` + id + `"},{"wrap":{"noteId":"` + id + `","desc":"found"}}]}`)
		note, ok := XiaohongshuState(state, id)
		require.True(t, ok)
		assert.Equal(t, "found", note.Get("desc").String())
	})

	t.Run("video keeps cover frame", func(t *testing.T) {
		note := gjson.Parse(`{"title":"v","imageList":[{"urlDefault":"https://img/frame"}],"video":{"media":{"stream":{"h264":[],"h265":[{"masterUrl":"https://video/h265.mp4"}]}}}}`)
		res, err := Build(media.Xiaohongshu, XiaohongshuNote(note))
		require.NoError(t, err)
		assert.Equal(t, media.Video, res.Type)
		assert.Equal(t, "https://video/h265.mp4", res.VideoURL)
		assert.Equal(t, "https://img/frame", res.Cover)
		assert.Empty(t, res.Images)
	})

	t.Run("origin video key", func(t *testing.T) {
		note := gjson.Parse(`{"desc":"d","video":{"consumer":{"originVideoKey":"pre_post/abc"}}}`)
		assert.Equal(t, XHSVideoHost+"pre_post/abc", XiaohongshuNote(note).VideoURL)
	})
}

func TestKuaishou(t *testing.T) {
	t.Run("photo member", func(t *testing.T) {
		state := gjson.Parse(`{"VisionVideoDetail":{"photo":{"caption":"dance","coverUrl":"https://c","photoUrl":"https://v.mp4"}}}`)
		photo, ok := KuaishouState(state, "")
		require.True(t, ok)
		f := KuaishouPhoto(photo)
		assert.Equal(t, "dance", f.Title)
		assert.Equal(t, "https://v.mp4", f.VideoURL)
	})

	t.Run("by id", func(t *testing.T) {
		state := gjson.Parse(`{"a":[{"b":{"photoId":"3x9","caption":"x","srcNoMark":"https://nomark"}}]}`)
		photo, ok := KuaishouState(state, "3x9")
		require.True(t, ok)
		assert.Equal(t, "https://nomark", KuaishouPhoto(photo).VideoURL)
	})

	t.Run("atlas gallery", func(t *testing.T) {
		photo := gjson.Parse(`{"caption":"album","ext_params":{"atlas":{"cdn":"p1.a.yximgs.com","list":["/ufile/a.jpg","/ufile/b.jpg"]}}}`)
		assert.Equal(t,
			[]string{"https://p1.a.yximgs.com/ufile/a.jpg", "https://p1.a.yximgs.com/ufile/b.jpg"},
			KuaishouPhoto(photo).Images,
		)
	})

	t.Run("rendered", func(t *testing.T) {
		state := gjson.Parse(`{"x":{"y":{"srcNoMark":"https://s"}}}`)
		photo, ok := KuaishouRenderedState(state)
		require.True(t, ok)
		assert.Equal(t, "https://s", KuaishouPhoto(photo).VideoURL)
	})
}

func TestDOMSnapshot(t *testing.T) {
	f := DOMSnapshot(gjson.Parse(`{"title":"page","videoUrl":"","images":["https://i/1","https://i/1","https://i/2"]}`))
	assert.Equal(t, []string{"https://i/1", "https://i/2"}, f.Images)

	f = DOMSnapshot(gjson.Parse(`{"title":"page","videoUrl":"https://v","images":["https://i/1"]}`))
	assert.Empty(t, f.Images)
	assert.Equal(t, "https://i/1", f.Cover)
}
