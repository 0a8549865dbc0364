package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/media"
	"github.com/loviiin/unmark/services/resolver/internal/normalize"
)

var (
	xhsURLID = []*regexp.Regexp{
		regexp.MustCompile(`/(?:explore|discovery/item|item)/([a-f0-9]{24})`),
		regexp.MustCompile(`note_id=([a-f0-9]{24})`),
	}
	xhsHTMLID = []*regexp.Regexp{
		regexp.MustCompile(`"noteId"\s*:\s*"([a-f0-9]{24})"`),
		regexp.MustCompile(`"id"\s*:\s*"([a-f0-9]{24})"`),
	}
	xhsStateGlobals = []string{"window.__INITIAL_STATE__", "window.__INITIAL_SSR_STATE__"}

	xhsDesc   = regexp.MustCompile(`"desc"\s*:\s*"([^"]*)"`)
	xhsImages = []*regexp.Regexp{
		regexp.MustCompile(`"url"\s*:\s*"(https?:[^"]*sns-webpic-qc[^"]+)"`),
		regexp.MustCompile(`"url"\s*:\s*"(https?:(?:\\u002F|/){2}ci\.xiaohongshu\.com[^"]+)"`),
		regexp.MustCompile(`"urlDefault"\s*:\s*"(https?:[^"]+)"`),
	}
	xhsVideoKey = regexp.MustCompile(`"originVideoKey"\s*:\s*"([^"]+)"`)
	xhsVideo    = []*regexp.Regexp{
		regexp.MustCompile(`"url"\s*:\s*"(https?:(?:\\u002F|/){2}sns-video[^"]+)"`),
		regexp.MustCompile(`"masterUrl"\s*:\s*"(https?:[^"]+\.mp4[^"]*)"`),
	}
)

// Xiaohongshu reads the note from the page's SSR state, falling back to
// literal patterns in the HTML. The note page is fetched with a desktop agent.
type Xiaohongshu struct {
	client *client.Client
	log    zerolog.Logger
}

// NewXiaohongshu expects a client configured with client.PCUA.
func NewXiaohongshu(c *client.Client, log zerolog.Logger) *Xiaohongshu {
	return &Xiaohongshu{client: c, log: log.With().Str("component", NameXiaohongshu).Logger()}
}

func (x *Xiaohongshu) Name() string { return NameXiaohongshu }

func (x *Xiaohongshu) CanHandle(url string) bool { return media.Detect(url) == media.Xiaohongshu }

func (x *Xiaohongshu) Parse(ctx context.Context, url string) (*media.Result, error) {
	resp, err := x.client.Get(ctx, url,
		client.Header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
	)
	if err != nil {
		return nil, fmt.Errorf("follow share link: %w", err)
	}
	html := resp.Text()

	id := firstSubmatch(resp.FinalURL, xhsURLID...)
	if id == "" {
		id = firstSubmatch(url, xhsURLID...)
	}
	if id == "" {
		id = firstSubmatch(html, xhsHTMLID...)
	}
	if id == "" {
		return nil, ErrNoItemID
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	if state, ok := scriptState(doc, xhsStateGlobals...); ok {
		if note, ok := normalize.XiaohongshuState(state, id); ok {
			if res, err := normalize.Build(media.Xiaohongshu, normalize.XiaohongshuNote(note)); err == nil {
				return res, nil
			}
		}
		x.log.Debug().Str("note_id", id).Msg("state carried no usable note, scanning html")
	}

	return normalize.Build(media.Xiaohongshu, xhsHTMLFields(doc, html))
}

func xhsHTMLFields(doc *goquery.Document, html string) normalize.Fields {
	var f normalize.Fields

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		f.Title = strings.TrimSpace(strings.Split(title, " - ")[0])
	}
	if m := xhsDesc.FindStringSubmatch(html); m != nil && m[1] != "" {
		f.Title = m[1]
	}

	var images []string
	for _, p := range xhsImages {
		matches := p.FindAllStringSubmatch(html, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			images = append(images, normalize.Unescape(m[1]))
		}
		images = normalize.Dedup(images)
		break
	}
	if len(images) > 0 {
		f.Cover = images[0]
	}

	if m := xhsVideoKey.FindStringSubmatch(html); m != nil {
		f.VideoURL = normalize.XHSVideoHost + m[1]
	} else {
		f.VideoURL = normalize.Unescape(firstSubmatch(html, xhsVideo...))
	}
	if f.VideoURL == "" {
		f.Images = images
	}
	return f
}
