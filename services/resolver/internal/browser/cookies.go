package browser

import (
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

var cookieDomains = map[string]string{
	"xiaohongshu": ".xiaohongshu.com",
	"douyin":      ".douyin.com",
	"kuaishou":    ".kuaishou.com",
}

// CookieDomain is the domain persisted cookies are scoped to for platform.
func CookieDomain(platform string) string {
	if d, ok := cookieDomains[platform]; ok {
		return d
	}
	return "." + platform + ".com"
}

// ParseCookieHeader turns a "k=v; k2=v2" header into browser cookies for platform.
// Pairs without "=" are skipped.
func ParseCookieHeader(header, platform string) []*proto.NetworkCookieParam {
	domain := CookieDomain(platform)
	var out []*proto.NetworkCookieParam
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, &proto.NetworkCookieParam{
			Name:   name,
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
		})
	}
	return out
}
