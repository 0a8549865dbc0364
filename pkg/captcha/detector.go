// Package captcha recognises verification interstitials served instead of content.
package captcha

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

var urlMarkers = []string{"verify", "captcha", "website-login/error", "/login?redirect"}

var selectors = []string{
	`iframe[src*="captcha"]`,
	"#captcha_container",
	".captcha_verify_container",
	"[class*='secsdk-captcha']",
	".red-captcha",
	"[class*='verify-container']",
	"[id*='captcha']",
}

var textPattern = regexp.MustCompile(`(?i)(drag.*slider|fit.*puzzle|请完成安全验证|拖动滑块|验证码)`)

// IsVerifyURL reports whether the landing URL is a verification or forced-login page.
func IsVerifyURL(u string) bool {
	u = strings.ToLower(u)
	for _, m := range urlMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

// IsVerifyText reports whether visible text looks like a slider or puzzle prompt.
func IsVerifyText(s string) bool {
	return textPattern.MatchString(s)
}

// IsCaptchaPresent checks the page URL, known widget selectors and the page title.
// Every probe is short so a clean page costs well under a few seconds.
func IsCaptchaPresent(page *rod.Page) bool {
	if info, err := page.Info(); err == nil && info != nil {
		if IsVerifyURL(info.URL) || IsVerifyText(info.Title) {
			return true
		}
	}

	for _, sel := range selectors {
		if has, _, err := page.Timeout(300 * time.Millisecond).Has(sel); err == nil && has {
			return true
		}
	}
	return false
}
