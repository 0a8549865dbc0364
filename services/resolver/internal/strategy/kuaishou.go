package strategy

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/normalize"
)

var (
	kuaishouURLID = []*regexp.Regexp{
		regexp.MustCompile(`/short-video/(\w+)`),
		regexp.MustCompile(`photoId=(\w+)`),
		regexp.MustCompile(`/fw/photo/(\w+)`),
	}
	kuaishouHTMLID = []*regexp.Regexp{
		regexp.MustCompile(`"photoId"\s*:\s*"(\w+)"`),
		regexp.MustCompile(`"photo_id"\s*:\s*"(\w+)"`),
	}
	kuaishouStateGlobals = []string{"window.__APOLLO_STATE__", "window.__INITIAL_STATE__", "window._PAGE_DATA_"}

	ksCaption = regexp.MustCompile(`"caption"\s*:\s*"([^"]*)"`)
	ksCover   = []*regexp.Regexp{
		regexp.MustCompile(`"poster"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`"coverUrl"\s*:\s*"(https?:[^"]+)"`),
	}
	ksVideo = []*regexp.Regexp{
		regexp.MustCompile(`"srcNoMark"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`"photoUrl"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`"url"\s*:\s*"(https?:[^"]*\.mp4[^"]*)"`),
		regexp.MustCompile(`"playUrl"\s*:\s*"(https?:[^"]+)"`),
	}
	ksImages = []*regexp.Regexp{
		regexp.MustCompile(`"cdn_image_url"\s*:\s*"(https?:[^"]+)"`),
		regexp.MustCompile(`"imageUrl"\s*:\s*"(https?:[^"]+)"`),
	}
)

// Kuaishou reads the photo from the landing page's server-rendered state.
type Kuaishou struct {
	client *client.Client
	log    zerolog.Logger
}

func NewKuaishou(c *client.Client, log zerolog.Logger) *Kuaishou {
	return &Kuaishou{client: c, log: log.With().Str("component", NameKuaishou).Logger()}
}

func (k *Kuaishou) Name() string { return NameKuaishou }

func (k *Kuaishou) CanHandle(url string) bool { return media.Detect(url) == media.Kuaishou }

func (k *Kuaishou) Parse(ctx context.Context, url string) (*media.Result, error) {
	resp, err := k.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("follow share link: %w", err)
	}
	html := resp.Text()

	id := firstSubmatch(resp.FinalURL, kuaishouURLID...)
	if id == "" {
		id = firstSubmatch(html, kuaishouHTMLID...)
	}
	if id == "" {
		return nil, ErrNoItemID
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	if state, ok := scriptState(doc, kuaishouStateGlobals...); ok {
		if photo, ok := normalize.KuaishouState(state, id); ok {
			if res, err := normalize.Build(media.Kuaishou, normalize.KuaishouPhoto(photo)); err == nil {
				return res, nil
			}
		}
		k.log.Debug().Str("photo_id", id).Msg("state carried no usable photo, scanning html")
	}

	return normalize.Build(media.Kuaishou, kuaishouHTMLFields(html))
}

// kuaishouHTMLFields scans raw page text for the literal fields the
// photo object serialises to.
func kuaishouHTMLFields(html string) normalize.Fields {
	f := normalize.Fields{
		Cover:    normalize.Unescape(firstSubmatch(html, ksCover...)),
		VideoURL: normalize.Unescape(firstSubmatch(html, ksVideo...)),
	}
	if m := ksCaption.FindStringSubmatch(html); m != nil {
		f.Title = m[1]
	}
	if f.VideoURL != "" {
		return f
	}
	for _, p := range ksImages {
		matches := p.FindAllStringSubmatch(html, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			f.Images = append(f.Images, normalize.Unescape(m[1]))
		}
		break
	}
	return f
}
