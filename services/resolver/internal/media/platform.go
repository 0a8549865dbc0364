package media

import (
	"regexp"
	"strings"
)

// domainTable is checked in order; the first platform with a matching domain substring wins.
var domainTable = []struct {
	platform Platform
	domains  []string
}{
	{Douyin, []string{"douyin.com", "iesdouyin.com"}},
	{Kuaishou, []string{"kuaishou.com", "gifshow.com", "chenzhongtech.com"}},
	{Xiaohongshu, []string{"xiaohongshu.com", "xhslink.com"}},
	{Bilibili, []string{"bilibili.com", "b23.tv"}},
	{Weibo, []string{"weibo.com", "weibo.cn"}},
	{TikTok, []string{"tiktok.com", "vm.tiktok.com"}},
}

// Detect maps a URL to its platform by domain substring.
func Detect(url string) Platform {
	for _, entry := range domainTable {
		for _, d := range entry.domains {
			if strings.Contains(url, d) {
				return entry.platform
			}
		}
	}
	return Unknown
}

// Domains returns the registered domain substrings of a platform.
func Domains(p Platform) []string {
	for _, entry := range domainTable {
		if entry.platform == p {
			return append([]string(nil), entry.domains...)
		}
	}
	return nil
}

// Platforms lists every detectable platform in table order.
func Platforms() []Platform {
	out := make([]Platform, 0, len(domainTable))
	for _, entry := range domainTable {
		out = append(out, entry.platform)
	}
	return out
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Clean pulls the first http(s) URL out of share text. Share messages usually
// wrap the link in prose; when no URL is present the trimmed input comes back as is.
func Clean(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := urlPattern.FindString(raw); m != "" {
		return m
	}
	return raw
}

// IsLink is the guard every strategy applies before touching the network.
func IsLink(s string) bool {
	return strings.HasPrefix(s, "http")
}
