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

// DouyinDetailURL is the public item-info endpoint.
const DouyinDetailURL = "https://www.iesdouyin.com/web/api/v2/aweme/iteminfo/"

var (
	douyinURLID = []*regexp.Regexp{
		regexp.MustCompile(`/video/(\d+)`),
		regexp.MustCompile(`modal_id=(\d+)`),
	}
	douyinHTMLID = []*regexp.Regexp{
		regexp.MustCompile(`"aweme_id"\s*:\s*"(\d+)"`),
		regexp.MustCompile(`itemId\s*[:=]\s*["'](\d+)["']`),
	}
)

// Douyin resolves the item id from the share link and reads the item-info endpoint.
type Douyin struct {
	client    *client.Client
	detailURL string
	log       zerolog.Logger
}

func NewDouyin(c *client.Client, detailURL string, log zerolog.Logger) *Douyin {
	if detailURL == "" {
		detailURL = DouyinDetailURL
	}
	return &Douyin{client: c, detailURL: detailURL, log: log.With().Str("component", NameDouyin).Logger()}
}

func (d *Douyin) Name() string { return NameDouyin }

func (d *Douyin) CanHandle(url string) bool { return media.Detect(url) == media.Douyin }

func (d *Douyin) Parse(ctx context.Context, url string) (*media.Result, error) {
	id, err := d.itemID(ctx, url)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Str("item_id", id).Msg("item id resolved")

	resp, err := d.client.Get(ctx, d.detailURL,
		client.Query("item_ids", id),
		client.Header("Referer", "https://www.douyin.com/"),
	)
	if err != nil {
		return nil, err
	}
	if err := resp.Check(); err != nil {
		return nil, fmt.Errorf("item detail: %w", err)
	}
	root, err := resp.JSON()
	if err != nil {
		return nil, fmt.Errorf("item detail: %w", err)
	}

	item := root.Get("item_list.0")
	if !item.IsObject() {
		return nil, ErrEmptyDetail
	}
	return normalize.Build(media.Douyin, normalize.DouyinItem(item))
}

// itemID reads the id from the link, then from the redirect target, then
// from the landing page.
func (d *Douyin) itemID(ctx context.Context, url string) (string, error) {
	if id := firstSubmatch(url, douyinURLID...); id != "" {
		return id, nil
	}
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("follow share link: %w", err)
	}
	if id := firstSubmatch(resp.FinalURL, douyinURLID...); id != "" {
		return id, nil
	}
	if id := firstSubmatch(resp.Text(), douyinHTMLID...); id != "" {
		return id, nil
	}
	return "", ErrNoItemID
}
