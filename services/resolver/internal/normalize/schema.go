package normalize

import "github.com/tidwall/gjson"

// Schema is an ordered key-path table for payloads whose media fields sit
// flat on one object. Each list is tried front to back.
type Schema struct {
	Title     []string
	Cover     []string
	Video     []string
	Images    []string
	ImageKeys []string
}

// Extract projects obj through s.
func (s Schema) Extract(obj gjson.Result) Fields {
	return Fields{
		Title:    FirstString(obj, s.Title...),
		Cover:    FirstString(obj, s.Cover...),
		VideoURL: FirstString(obj, s.Video...),
		Images:   ImageList(FirstList(obj, s.Images...), s.ImageKeys...),
	}
}

var (
	// PearktrueSchema reads the flat record returned by the pearktrue resolver.
	PearktrueSchema = Schema{
		Title:     []string{"title", "desc"},
		Cover:     []string{"cover", "thumbnail"},
		Video:     []string{"url", "video", "video_url"},
		Images:    []string{"images", "pics", "image_list"},
		ImageKeys: []string{"url", "url_default"},
	}

	// GenericV1Schema reads the work_* flavoured record of the v1 resolver.
	GenericV1Schema = Schema{
		Title:     []string{"title", "work_title", "desc"},
		Cover:     []string{"cover", "work_cover", "thumbnail"},
		Video:     []string{"url", "work_url", "video_url"},
		Images:    []string{"images", "pics", "image_list"},
		ImageKeys: []string{"url"},
	}
)

// DOMSnapshot projects the {title, videoUrl, images} record scraped from
// rendered elements when a page exposes no state object. A playing video
// wins over carousel images, which are then only used for the cover.
func DOMSnapshot(dom gjson.Result) Fields {
	images := Dedup(ImageList(dom.Get("images")))
	f := Fields{
		Title:    FirstString(dom, "title"),
		VideoURL: FirstString(dom, "videoUrl"),
	}
	if len(images) > 0 {
		f.Cover = images[0]
	}
	if f.VideoURL == "" {
		f.Images = images
	}
	return f
}
