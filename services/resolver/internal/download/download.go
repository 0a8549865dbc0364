// Package download saves resolved media to local disk.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/loviiin/unmark/services/resolver/internal/client"
	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// CDN hosts reject hotlinked requests without a matching referer.
var referers = map[media.Platform]string{
	media.Douyin:      "https://www.douyin.com/",
	media.Kuaishou:    "https://www.kuaishou.com/",
	media.Xiaohongshu: "https://www.xiaohongshu.com/",
}

var extensions = map[string]string{
	"video/mp4":  ".mp4",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/gif":  ".gif",
}

type Downloader struct {
	client   *http.Client
	progress io.Writer
	log      zerolog.Logger
}

// New returns a downloader drawing progress bars on progress; nil disables them.
func New(timeout time.Duration, progress io.Writer, log zerolog.Logger) *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		progress: progress,
		log:      log.With().Str("component", "download").Logger(),
	}
}

// Save writes the video, or every image in order, into dir and returns the paths.
func (d *Downloader) Save(ctx context.Context, res *media.Result, dir string) ([]string, error) {
	if !res.HasMedia() {
		return nil, fmt.Errorf("nothing to download")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create target dir: %w", err)
	}
	base := FileBase(res.Title)

	if res.Type == media.Video {
		path, err := d.fetch(ctx, res.VideoURL, res.Platform, filepath.Join(dir, base), ".mp4")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths := make([]string, 0, len(res.Images))
	for i, img := range res.Images {
		path, err := d.fetch(ctx, img, res.Platform, filepath.Join(dir, fmt.Sprintf("%s_%02d", base, i+1)), ".jpg")
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string, platform media.Platform, stem, fallbackExt string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", client.MobileUA)
	if ref, ok := referers[platform]; ok {
		req.Header.Set("Referer", ref)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, rawURL)
	}

	ext := fallbackExt
	ct, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	if e, ok := extensions[strings.TrimSpace(ct)]; ok {
		ext = e
	}
	path := stem + ext

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	var dst io.Writer = f
	if d.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.progress) }),
		)
		dst = io.MultiWriter(f, bar)
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	d.log.Debug().Str("path", path).Int64("bytes", n).Msg("saved")
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\s#]+`)

// FileBase turns a title into a file name stem.
func FileBase(title string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_.")
	if r := []rune(s); len(r) > 60 {
		s = string(r[:60])
	}
	if s == "" {
		return "media"
	}
	return s
}
