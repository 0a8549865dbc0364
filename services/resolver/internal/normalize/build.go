package normalize

import (
	"errors"
	"strings"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// ErrNoMedia means a payload parsed fine but held neither a video nor images.
var ErrNoMedia = errors.New("parsed but no media found")

// Fields is the loose record a projection fills before classification.
type Fields struct {
	Title    string
	Cover    string
	VideoURL string
	Images   []string
}

// Empty reports whether no field resolved at all.
func (f Fields) Empty() bool {
	return f.Title == "" && f.Cover == "" && f.VideoURL == "" && len(f.Images) == 0
}

// Build classifies f and returns a result satisfying the media.Result invariant.
// A non-empty image list wins over a video URL; with neither, ErrNoMedia is returned.
func Build(platform media.Platform, f Fields) (*media.Result, error) {
	images := make([]string, 0, len(f.Images))
	for _, img := range f.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	videoURL := strings.TrimSpace(f.VideoURL)

	res := &media.Result{
		Title:    strings.TrimSpace(f.Title),
		Cover:    strings.TrimSpace(f.Cover),
		Platform: platform,
		Images:   []string{},
	}

	switch {
	case len(images) > 0:
		res.Type = media.Images
		res.Images = images
		if res.Cover == "" {
			res.Cover = images[0]
		}
	case videoURL != "":
		res.Type = media.Video
		res.VideoURL = videoURL
	default:
		return nil, ErrNoMedia
	}

	if res.Title == "" {
		res.Title = Placeholder(platform, res.Type)
	}
	return res, nil
}

// Placeholder is the title used when a post carries no caption.
func Placeholder(platform media.Platform, kind media.ContentType) string {
	switch platform {
	case media.Douyin:
		if kind == media.Images {
			return "Douyin gallery"
		}
		return "Douyin video"
	case media.Kuaishou:
		return "Kuaishou video"
	case media.Xiaohongshu:
		return "Xiaohongshu note"
	default:
		return "Untitled"
	}
}
