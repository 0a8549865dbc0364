package media

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the social network a share link belongs to.
type Platform string

const (
	Douyin      Platform = "douyin"
	Kuaishou    Platform = "kuaishou"
	Xiaohongshu Platform = "xiaohongshu"
	Bilibili    Platform = "bilibili"
	Weibo       Platform = "weibo"
	TikTok      Platform = "tiktok"
	Unknown     Platform = "unknown"
)

// ContentType tells a video post from an image gallery.
type ContentType string

const (
	Video  ContentType = "video"
	Images ContentType = "images"
)

// Request is the raw share text handed in by a caller.
type Request struct {
	RawText string `json:"raw_text"`
}

// Result is the normalized, watermark-free description of a post.
// Exactly one of VideoURL and Images is populated, matching Type.
type Result struct {
	Title    string      `json:"title"`
	Cover    string      `json:"cover"`
	Type     ContentType `json:"type"`
	VideoURL string      `json:"video_url,omitempty"`
	Images   []string    `json:"images"`
	Platform Platform    `json:"platform"`
}

// HasMedia reports whether the result carries a video URL or at least one image.
func (r *Result) HasMedia() bool {
	if r == nil {
		return false
	}
	return r.VideoURL != "" || len(r.Images) > 0
}

// Valid checks the video/images exclusivity invariant.
func (r *Result) Valid() bool {
	if r == nil {
		return false
	}
	for _, img := range r.Images {
		if img == "" {
			return false
		}
	}
	switch r.Type {
	case Video:
		return r.VideoURL != "" && len(r.Images) == 0
	case Images:
		return r.VideoURL == "" && len(r.Images) > 0
	default:
		return false
	}
}

// Resolution is a successful resolve as persisted and indexed downstream.
type Resolution struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"source_url"`
	Strategy   string    `json:"strategy"`
	Result     Result    `json:"result"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ResolutionID is stable for a source link, so re-resolving the same link
// upserts rather than duplicates.
func ResolutionID(sourceURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String()
}
